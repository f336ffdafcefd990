// Skirmish — headless match client.
//
// Connects to a relay, joins a room, and wanders the map while exercising the
// full sync stack: throttled state updates, proxy interpolation for everyone
// else, predicted combat, and voice mesh signaling (with a silent capture
// source, so peers negotiate real links against it).
//
// It can be launched interactively (no flags) or non-interactively via
// --url / --name / --room.
package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/app"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/config"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/event"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/util"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/voice"
)

var version = "dev"

var (
	configFile = kingpin.Flag("config.file", "Path to configuration file.").Default("config.yaml").String()
	relayURL   = kingpin.Flag("url", "Relay WebSocket URL.").String()
	playerName = kingpin.Flag("name", "Display name.").String()
	roomName   = kingpin.Flag("room", "Room to join.").String()
	fireEvery  = kingpin.Flag("fire-interval", "Seconds between test shots (0 = never fire).").Default("0").Float64()
	debugMode  = kingpin.Flag("debug", "Enable debug logging.").Bool()
)

const (
	tickRate    = 60
	wanderSpeed = 4.0 // units/s along the wander circle
	wanderRange = 15.0
	respawnWait = 3 * time.Second
)

func main() {
	kingpin.Version(version)
	kingpin.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		cfg = &config.Config{}
		cfg.SetDefaults()
	}
	if *relayURL != "" {
		cfg.Client.URL = *relayURL
	}
	if *playerName != "" {
		cfg.Client.Name = *playerName
	}
	if *roomName != "" {
		cfg.Client.Room = *roomName
	}

	pterm.Info.Println(fmt.Sprintf("Skirmish — v%s", version))
	pterm.Println()

	if cfg.Client.URL == "" {
		cfg.Client.URL = askURL()
	}
	if cfg.Client.Name == "" {
		cfg.Client.Name = askName()
	}
	wsURL, err := normalizeWSURL(cfg.Client.URL)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, wsURL, cfg.Client.Name, cfg.Client.Room); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	util.LogInfo("skirmish: left the match")
}

func run(ctx context.Context, wsURL, name, room string) error {
	client := app.NewClient(wsURL, voice.NullDeviceManager{})
	defer client.Close()

	logEvents(client)

	spawn := protocol.Vec3{X: rand.Float64()*20 - 10, Z: rand.Float64()*20 - 10}

	joinCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	id, err := client.Start(joinCtx, name, room, spawn)
	if err != nil {
		return fmt.Errorf("joining %q: %w", room, err)
	}

	util.StartStatsReporter(ctx)
	util.LogInfo("skirmish: joined room %q as %s (%d players present)", room, id, client.Interp.Len())

	wander(ctx, client, spawn)
	return nil
}

// wander drives the frame loop: the bot walks a circle around its spawn
// point, fires if asked to, and respawns itself after a short delay when
// killed.
func wander(ctx context.Context, client *app.Client, spawn protocol.Vec3) {
	ticker := time.NewTicker(time.Second / tickRate)
	defer ticker.Stop()

	var (
		angle     float64
		diedAt    time.Time
		lastShot  = time.Now()
		last      = time.Now()
	)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			if !client.Combat.Alive() {
				if diedAt.IsZero() {
					diedAt = now
				} else if now.Sub(diedAt) >= respawnWait {
					client.Respawn()
					diedAt = time.Time{}
				}
				client.Tick(dt)
				continue
			}

			angle += wanderSpeed / wanderRange * dt
			pos := protocol.Vec3{
				X: spawn.X + wanderRange*math.Cos(angle),
				Z: spawn.Z + wanderRange*math.Sin(angle),
			}
			// Face along the direction of travel.
			rot := protocol.Euler{Y: angle + math.Pi/2}

			client.SetPose(pos, rot, "rifle")
			client.Tick(dt)

			if *fireEvery > 0 && now.Sub(lastShot).Seconds() >= *fireEvery {
				lastShot = now
				fireAtNearest(client, pos)
			}
		}
	}
}

// fireAtNearest aims at the closest live proxy's body and pulls the trigger.
func fireAtNearest(client *app.Client, pos protocol.Vec3) {
	origin := protocol.Vec3{X: pos.X, Y: 1.6, Z: pos.Z}

	var (
		bestDir  protocol.Vec3
		bestDist = math.Inf(1)
	)
	for _, p := range client.Interp.Snapshot() {
		if p.Dead {
			continue
		}
		aim := protocol.Vec3{X: p.Pose.Position.X, Y: p.Pose.Position.Y + 0.9, Z: p.Pose.Position.Z}
		d := aim.Sub(origin)
		if l := d.Length(); l > 0 && l < bestDist {
			bestDist = l
			bestDir = d.Normalize()
		}
	}
	if math.IsInf(bestDist, 1) {
		return
	}

	if hit, ok := client.Fire(origin, bestDir, 20); ok {
		util.LogInfo("skirmish: hit %s for %d%s", hit.TargetID, hit.Damage, headshotTag(hit.Headshot))
	}
}

func headshotTag(headshot bool) string {
	if headshot {
		return " (headshot)"
	}
	return ""
}

// logEvents surfaces match happenings that a real client would render.
func logEvents(client *app.Client) {
	client.Bus.Subscribe(event.PlayerJoined, func(ev event.Event) {
		p := ev.Payload.(protocol.PlayerState)
		util.LogInfo("skirmish: %s (%s) is here", p.Name, p.ID)
	})
	client.Bus.Subscribe(event.PlayerLeft, func(ev event.Event) {
		util.LogInfo("skirmish: %s left", ev.Payload.(protocol.PlayerLeft).ID)
	})
	client.Bus.Subscribe(event.Killed, func(ev event.Event) {
		k := ev.Payload.(protocol.Killed)
		util.LogInfo("skirmish: %s killed %s", k.KillerName, k.VictimName)
	})
	client.Bus.Subscribe(event.Damaged, func(ev event.Event) {
		d := ev.Payload.(protocol.Damaged)
		if d.TargetID == client.Session.LocalID() {
			util.LogInfo("skirmish: took %d damage — now %d hp / %d armor",
				d.Damage, client.Combat.Health(), client.Combat.Armor())
		}
	})
	client.Bus.Subscribe(event.Chat, func(ev event.Event) {
		c := ev.Payload.(protocol.Chat)
		util.LogInfo("skirmish: [%s] %s", c.Name, c.Text)
	})
	client.Bus.Subscribe(event.VoiceSpeaking, func(ev event.Event) {
		s := ev.Payload.(voice.SpeakingUpdate)
		if s.Speaking {
			util.LogDebug("skirmish: %s is speaking", s.PeerID)
		}
	})
	client.Bus.Subscribe(event.Disconnected, func(ev event.Event) {
		if err, _ := ev.Payload.(error); err != nil {
			util.LogWarning("skirmish: connection lost: %v", err)
		}
	})
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// normalizeWSURL validates and normalizes a raw WebSocket URL string.
func normalizeWSURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}
	scheme := "ws"
	if u.Scheme == "ws" || u.Scheme == "wss" {
		scheme = u.Scheme
	}
	path := u.Path
	if path == "" || path == "/" {
		path = "/ws"
	}
	return fmt.Sprintf("%s://%s%s", scheme, u.Host, path), nil
}

// askURL prompts for a relay URL until a valid one is entered.
func askURL() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Relay URL (e.g. ws://localhost:8380/ws)").
			Show()

		if _, err := normalizeWSURL(raw); err == nil {
			pterm.Println()
			return raw
		}

		pterm.Println()
		util.LogWarning("invalid input: please enter a valid host or URL")
	}
}

// askName prompts for a display name.
func askName() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Display name").
			Show()

		if name := strings.TrimSpace(raw); name != "" {
			pterm.Println()
			return name
		}
	}
}
