// Udplink — CLI entry point.
//
// This tool links two peers over a reliable UDP message transport and runs
// a small line-based chat plus an optional watchdog ping on top of it. One
// side listens (passive), the other dials (active).
//
// It can be launched interactively (no flags), via CLI flags (-role, -bind,
// -remote, …), or from a YAML config file (-config).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/1ureka/udplink/internal/config"
	"github.com/1ureka/udplink/internal/console"
	"github.com/1ureka/udplink/internal/device"
	"github.com/1ureka/udplink/internal/payload"
	"github.com/1ureka/udplink/internal/protocol"
	"github.com/1ureka/udplink/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// CLI flags.
	configPath := flag.String("config", "", "Path to a YAML config file (overrides other flags except -debug)")
	role := flag.String("role", "", "Role: listen or dial")
	bind := flag.String("bind", "127.0.0.1:0", "Local UDP address to bind")
	remote := flag.String("remote", "", "Remote UDP address (dial role only)")
	consoleAddr := flag.String("console", "", "Bind address for the WebSocket stats console (empty = disabled)")
	watchdogSec := flag.Int("watchdog", 0, "Unreliable watchdog ping interval in seconds (0 = disabled)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	pterm.Info.Println(fmt.Sprintf("Udplink — v%s", version))
	pterm.Println()

	var cfg *config.Config
	switch {
	case *configPath != "":
		loaded, err := config.Load(*configPath)
		if err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
		cfg = loaded

	case *role == "":
		// No -role flag → interactive mode.
		cfg = askConfig()

	default:
		cfg = &config.Config{
			Role:        config.Role(*role),
			Bind:        *bind,
			Remote:      *remote,
			ConsoleAddr: *consoleAddr,
			WatchdogSec: *watchdogSec,
			Debug:       *debugMode,
		}
		if err := config.Validate(cfg); err != nil {
			util.LogError("%v", err)
			os.Exit(1)
		}
	}

	if cfg.Debug || *debugMode {
		util.EnableDebug()
	}

	if err := run(ctx, cfg); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	util.LogInfo("link closed")
}

// run establishes the device for the configured role and drives the chat
// session until ctx is cancelled or stdin closes.
func run(ctx context.Context, cfg *config.Config) error {
	var dev *device.Device
	var err error

	switch cfg.Role {
	case config.RoleListen:
		dev, err = device.Listen(cfg.Bind)
		if err != nil {
			return err
		}
		util.LogInfo("listening on %s, waiting for a peer", dev.LocalAddr())

	case config.RoleDial:
		util.LogInfo("connecting to %s ...", cfg.Remote)
		dev, err = device.Dial(cfg.Bind, cfg.Remote)
		if err != nil {
			return err
		}
	}
	defer dev.Close()

	if err := registerHandlers(dev); err != nil {
		return err
	}

	if cfg.ConsoleAddr != "" {
		srv := console.NewServer(dev)
		port, err := srv.Start(ctx, cfg.ConsoleAddr)
		if err != nil {
			return err
		}
		defer srv.Close()
		util.LogInfo("stats console: ws://127.0.0.1:%d/stats", port)
	}

	if cfg.WatchdogSec > 0 {
		go watchdogLoop(ctx, dev, time.Duration(cfg.WatchdogSec)*time.Second)
	}

	util.StartStatsReporter(ctx)
	util.LogSuccess("ready — type a line to send it to the peer")

	return chatLoop(ctx, dev)
}

// registerHandlers wires the reserved message types to their CLI behavior.
func registerHandlers(dev *device.Device) error {
	if err := dev.RegisterParser(protocol.MsgConsole, func(sendTime time.Time, data []byte) {
		text, err := payload.NewReader(data).ReadString()
		if err != nil {
			util.LogWarning("malformed console message: %v", err)
			return
		}
		latency := time.Since(sendTime).Round(time.Millisecond)
		pterm.Printf("peer> %s  (%s)\n", text, latency)
	}); err != nil {
		return err
	}

	return dev.RegisterParser(protocol.MsgWatchdog, func(_ time.Time, data []byte) {
		r := payload.NewReader(data)
		n, err := r.ReadInt64()
		if err != nil {
			util.LogWarning("malformed watchdog ping: %v", err)
			return
		}
		util.LogDebug("watchdog ping %d from peer", n)
	})
}

// chatLoop reads stdin lines and sends each reliably as a console message.
func chatLoop(ctx context.Context, dev *device.Device) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			w := &payload.Writer{}
			if err := w.WriteString(line); err != nil {
				util.LogWarning("%v", err)
				continue
			}
			if err := dev.SendReliable(protocol.MsgConsole, w.Bytes()); err != nil {
				util.LogError("send failed: %v", err)
				continue
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// watchdogLoop sends an unreliable numbered ping on a fixed interval. Lost
// or reordered pings are simply dropped by the peer.
func watchdogLoop(ctx context.Context, dev *device.Device, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var n int64
	for {
		select {
		case <-ticker.C:
			n++
			w := &payload.Writer{}
			w.WriteInt64(n)
			if err := dev.SendUnreliable(protocol.MsgWatchdog, w.Bytes()); err != nil {
				util.LogDebug("watchdog send failed: %v", err)
			}

		case <-ctx.Done():
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Interactive mode
// ---------------------------------------------------------------------------

// askConfig gathers a configuration through interactive prompts.
func askConfig() *config.Config {
	choice, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"Listen — wait for a peer to connect", "Dial   — connect to a listening peer"}).
		WithDefaultText("Select your role").
		Show()

	pterm.Println()

	cfg := &config.Config{Bind: "127.0.0.1:0"}
	if strings.HasPrefix(choice, "Listen") {
		cfg.Role = config.RoleListen
		cfg.Bind = askAddr("Local UDP address to bind (e.g. 127.0.0.1:9000)")
	} else {
		cfg.Role = config.RoleDial
		cfg.Remote = askAddr("Remote UDP address (e.g. 127.0.0.1:9000)")
	}
	return cfg
}

// askAddr prompts for a UDP address until a valid one is entered.
func askAddr(prompt string) string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()

		raw = strings.TrimSpace(raw)
		probe := config.Config{Role: config.RoleListen, Bind: raw}
		if config.Validate(&probe) == nil {
			pterm.Println()
			return raw
		}

		util.LogWarning("invalid address: %s", raw)
		pterm.Println()
	}
}
