// ABOUTME: Entry point for the pcmstream daemon
// ABOUTME: Runs the playback engine behind the WebSocket bridge with mDNS, metrics and TUI
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/pcmstream/internal/bridge"
	"github.com/Resonate-Protocol/pcmstream/internal/metrics"
	"github.com/Resonate-Protocol/pcmstream/internal/ui"
	"github.com/Resonate-Protocol/pcmstream/internal/version"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmstream/pkg/pcmstream"
	"github.com/Resonate-Protocol/pcmstream/pkg/volume"
)

var (
	port       = flag.Int("port", 8927, "WebSocket bridge port")
	name       = flag.String("name", "", "Daemon friendly name (default: hostname-pcmstream)")
	sampleRate = flag.Int("sample-rate", audio.DefaultSampleRate, "Sample rate used when a client writes before init")
	backend    = flag.String("backend", "oto", "Output backend: oto, portaudio or null")
	voice      = flag.Bool("voice", false, "Start in voice communication mode instead of media")
	duck       = flag.Float64("duck", volume.DefaultDuckFraction, "Share of max volume used while playing")
	stallMs    = flag.Int("stall-ms", int(pcmstream.DefaultStallDelay/time.Millisecond), "Stall watchdog delay in milliseconds")
	fallbackMs = flag.Int("fallback-ms", int(pcmstream.DefaultFallbackDelay/time.Millisecond), "Voice-to-media fallback delay in milliseconds")
	logFile    = flag.String("log-file", "pcmstreamd.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	daemonName := *name
	if daemonName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		daemonName = fmt.Sprintf("%s-pcmstream", hostname)
	}

	log.Printf("Starting %s: %s on port %d", version.String(), daemonName, *port)

	usage := audio.UsageMedia
	if *voice {
		usage = audio.UsageVoiceCommunication
	}

	mixer := volume.NewSoftwareMixer(volume.MixerConfig{})
	factory, err := output.NewFactory(*backend, mixer.Gain)
	if err != nil {
		log.Fatalf("Invalid backend: %v", err)
	}

	m := metrics.New()

	var tui *ui.TUI
	if useTUI {
		tui = ui.New(daemonName, *port)
	}

	player, err := pcmstream.NewPlayer(pcmstream.Config{
		SampleRate:    *sampleRate,
		Usage:         usage,
		Factory:       factory,
		Platform:      mixer,
		DuckFraction:  *duck,
		StallDelay:    time.Duration(*stallMs) * time.Millisecond,
		FallbackDelay: time.Duration(*fallbackMs) * time.Millisecond,
		OnEvent: func(ev pcmstream.Event) {
			m.Observe(ev)
			if tui != nil {
				tui.Event(ev)
			}
		},
	})
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}

	srv := bridge.NewServer(bridge.Config{
		Port:       *port,
		Name:       daemonName,
		EnableMDNS: !*noMDNS,
		Metrics:    m,
	}, player)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var quit <-chan struct{}
	if tui != nil {
		quit = runTUI(tui, player, mixer, srv)
	}

	bridgeRunning := true
	select {
	case sig := <-sigChan:
		log.Printf("Received %v signal, shutting down gracefully...", sig)
	case <-quit:
		log.Printf("Received quit from TUI")
	case err := <-serverDone:
		log.Printf("Bridge exited: %v", err)
		bridgeRunning = false
	}

	if tui != nil {
		tui.Stop()
	}

	// Sessions may still release the engine while the bridge drains
	srv.Stop()
	if bridgeRunning {
		if err := <-serverDone; err != nil {
			log.Printf("Bridge error: %v", err)
		}
	}

	if err := player.Close(); err != nil {
		log.Printf("Error closing player: %v", err)
	}

	log.Printf("Daemon stopped")
}

// runTUI starts the display, its status loop and its action handler.
// The returned channel closes when the user quits.
func runTUI(tui *ui.TUI, player *pcmstream.Player, mixer *volume.SoftwareMixer, srv *bridge.Server) <-chan struct{} {
	quit := make(chan struct{})

	go func() {
		if err := tui.Run(); err != nil {
			log.Printf("TUI error: %v", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				tui.Update(ui.StatusMsg{
					Stats:    player.Stats(),
					Mixer:    mixer.Snapshot(),
					Sessions: srv.SessionCount(),
				})
			}
		}
	}()

	go func() {
		for action := range tui.Actions() {
			log.Printf("TUI action: %s", action)

			var err error
			switch action {
			case ui.ActionTone:
				err = player.PlayTestTone()
			case ui.ActionStop:
				err = player.Stop()
			case ui.ActionRelease:
				err = player.Release()
			case ui.ActionQuit:
				close(quit)
				return
			}
			if err != nil {
				log.Printf("Action %s failed (%s): %v", action, pcmstream.Code(err), err)
			}
		}
	}()

	return quit
}
