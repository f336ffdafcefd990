// Relay server entry point.
//
// The relay assigns player identities, keeps per-room rosters, rebroadcasts
// state and combat events, and forwards voice signaling between peers. It
// exposes Prometheus metrics on the same listener.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/config"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/relay"
	"github.com/lo0pH0L3z/fpsditchworld-sub001/internal/util"
)

var version = "dev"

var (
	configFile    = kingpin.Flag("config.file", "Path to configuration file.").Default("config.yaml").String()
	listenAddress = kingpin.Flag("web.listen-address", "Address to listen on for game traffic and telemetry.").String()
	telemetryPath = kingpin.Flag("web.telemetry-path", "Path under which to expose metrics.").String()
	maxPerRoom    = kingpin.Flag("room.max-players", "Maximum players per room (0 = unlimited).").Default("0").Int()
	debugMode     = kingpin.Flag("debug", "Enable debug logging.").Bool()
)

func main() {
	kingpin.Version(version)
	kingpin.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		// A missing config file is fine; flags and defaults take over.
		util.LogWarning("config: %v — using defaults", err)
		cfg = &config.Config{}
		cfg.SetDefaults()
	}
	if *listenAddress != "" {
		cfg.Relay.Listen = *listenAddress
	}
	if *telemetryPath != "" {
		cfg.Relay.TelemetryPath = *telemetryPath
	}
	if *maxPerRoom > 0 {
		cfg.Relay.MaxPerRoom = *maxPerRoom
	}

	pterm.Info.Println(fmt.Sprintf("Relay — v%s", version))
	pterm.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := relay.NewServer(cfg.Relay).ListenAndServe(ctx); err != nil {
		util.LogError("relay: %v", err)
		os.Exit(1)
	}

	util.LogInfo("relay: shut down cleanly")
}
