// Package app assembles the sync layer: one session, one voice mesh, one
// proxy set and one combat tracker, connected through the event bus. The
// embedding game (or the headless client) drives it with pose updates and a
// frame tick, and reads proxies back for rendering.
package app

import (
	"context"
	"sync"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/combat"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/event"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/interp"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/protocol"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/session"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/util"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/voice"
)

// Hit volume geometry, in world units relative to a proxy's ground position.
const (
	bodyCenterHeight = 0.9
	bodyRadius       = 0.5
	headCenterHeight = 1.6
	headRadius       = 0.25
)

// Client is one player's view of a match.
type Client struct {
	Bus     *event.Bus
	Session *session.Manager
	Interp  *interp.Manager
	Voice   *voice.Manager
	Combat  *combat.Tracker

	mu     sync.Mutex
	pos    protocol.Vec3
	rot    protocol.Euler
	weapon string
}

// NewClient builds a client that dials the given relay WebSocket URL and
// captures voice through devices. Pass voice.NullDeviceManager{} for a
// headless client.
func NewClient(url string, devices voice.DeviceManager, opts ...session.Option) *Client {
	bus := event.NewBus()
	sess := session.NewManager(session.Dialer(url), bus, opts...)

	c := &Client{
		Bus:     bus,
		Session: sess,
		Interp:  interp.NewManager(),
		Voice:   voice.NewManager(sess, bus, devices),
	}
	c.Combat = combat.NewTracker(func() {
		if err := sess.SendRespawn(); err != nil {
			util.LogWarning("app: respawn request failed: %v", err)
		}
	})
	c.wire()
	return c
}

// Start connects, kicks off voice capture in the background, and joins the
// room. When it returns, the roster is populated and proxies exist for every
// player already present.
func (c *Client) Start(ctx context.Context, name, room string, pos protocol.Vec3) (string, error) {
	if err := c.Session.Connect(ctx); err != nil {
		return "", err
	}

	// Capture acquisition can outlast the join round-trip; the voice manager
	// queues roster events and signals that arrive before it is ready. Its
	// goroutines are tied to Close, not to the join deadline.
	go func() {
		if err := c.Voice.Init(); err != nil {
			util.LogWarning("app: voice init: %v", err)
		}
	}()

	id, err := c.Session.Join(ctx, name, room, pos)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.pos = pos
	c.mu.Unlock()
	return id, nil
}

// Close tears down voice links and the relay connection.
func (c *Client) Close() {
	c.Voice.Close()
	c.Session.Disconnect()
}

// ---------------------------------------------------------------------------
// Frame loop
// ---------------------------------------------------------------------------

// SetPose records the local player's pose for the next state update.
func (c *Client) SetPose(pos protocol.Vec3, rot protocol.Euler, weapon string) {
	c.mu.Lock()
	c.pos = pos
	c.rot = rot
	c.weapon = weapon
	c.mu.Unlock()
}

// Tick advances remote proxies by one frame and offers the local state for
// transmission. The session throttles; calling this every frame is correct.
func (c *Client) Tick(dt float64) {
	c.mu.Lock()
	pos, rot, weapon := c.pos, c.rot, c.weapon
	c.mu.Unlock()

	c.Interp.Tick(dt, pos)

	if err := c.Session.SendStateUpdate(pos, rot, weapon, c.Combat.Health()); err != nil && err != session.ErrNotConnected {
		util.LogDebug("app: state update: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Combat
// ---------------------------------------------------------------------------

// Fire resolves a hitscan shot from origin along dir against every live
// proxy, announces the shot, and reports any hit to the relay. The result is
// returned for local feedback (tracers, hit markers).
func (c *Client) Fire(origin, dir protocol.Vec3, baseDamage int) (combat.HitResult, bool) {
	if !c.Combat.Alive() {
		return combat.HitResult{}, false
	}

	var targets []combat.Target
	for _, p := range c.Interp.Snapshot() {
		if p.Dead {
			continue
		}
		ground := p.Pose.Position
		targets = append(targets, combat.Target{
			ID:   p.ID,
			Body: combat.Sphere{Center: protocol.Vec3{X: ground.X, Y: ground.Y + bodyCenterHeight, Z: ground.Z}, Radius: bodyRadius},
			Head: combat.Sphere{Center: protocol.Vec3{X: ground.X, Y: ground.Y + headCenterHeight, Z: ground.Z}, Radius: headRadius},
		})
	}

	if err := c.Session.SendFired(origin, dir); err != nil {
		util.LogDebug("app: fired: %v", err)
	}

	hit, ok := combat.Resolve(origin, dir, baseDamage, targets)
	if !ok {
		return combat.HitResult{}, false
	}
	if err := c.Session.SendHit(hit.TargetID, hit.Damage); err != nil {
		util.LogDebug("app: hit report: %v", err)
	}
	return hit, true
}

// Respawn puts the local player back in play.
func (c *Client) Respawn() {
	c.Combat.Respawn()
}

// ---------------------------------------------------------------------------
// Event wiring
// ---------------------------------------------------------------------------

func (c *Client) wire() {
	c.Bus.Subscribe(event.Connected, func(ev event.Event) {
		id := ev.Payload.(string)
		c.Voice.SetLocalID(id)
	})

	c.Bus.Subscribe(event.PlayerJoined, func(ev event.Event) {
		p := ev.Payload.(protocol.PlayerState)
		c.Interp.Register(p.ID, p)
		c.Voice.PeerJoined(p.ID)
	})

	c.Bus.Subscribe(event.PlayerLeft, func(ev event.Event) {
		left := ev.Payload.(protocol.PlayerLeft)
		c.Interp.Unregister(left.ID)
		c.Voice.PeerLeft(left.ID)
	})

	c.Bus.Subscribe(event.PlayerMoved, func(ev event.Event) {
		mv := ev.Payload.(protocol.PlayerMoved)
		c.Interp.SetTarget(mv.ID, mv.Position, mv.Rotation)
	})

	c.Bus.Subscribe(event.Damaged, func(ev event.Event) {
		d := ev.Payload.(protocol.Damaged)
		if d.TargetID != c.Session.LocalID() {
			return
		}
		health := d.Health
		c.Combat.ApplyDamage(d.Damage, d.ShooterID, &health, d.Armor)
	})

	c.Bus.Subscribe(event.Killed, func(ev event.Event) {
		k := ev.Payload.(protocol.Killed)
		if k.VictimID == c.Session.LocalID() {
			c.Combat.Kill(k.KillerID)
			return
		}
		c.Interp.SetDead(k.VictimID, true)
	})

	c.Bus.Subscribe(event.Respawned, func(ev event.Event) {
		r := ev.Payload.(protocol.Respawned)
		if r.ID == c.Session.LocalID() {
			return // local reset already happened in Respawn
		}
		c.Interp.SetDead(r.ID, false)
	})

	c.Bus.Subscribe(event.VoiceOffer, func(ev event.Event) {
		c.Voice.HandleSignal(protocol.MsgVoiceOffer, ev.Payload.(protocol.VoiceSignal))
	})
	c.Bus.Subscribe(event.VoiceAnswer, func(ev event.Event) {
		c.Voice.HandleSignal(protocol.MsgVoiceAnswer, ev.Payload.(protocol.VoiceSignal))
	})
	c.Bus.Subscribe(event.VoiceICE, func(ev event.Event) {
		c.Voice.HandleSignal(protocol.MsgVoiceICE, ev.Payload.(protocol.VoiceSignal))
	})
}
