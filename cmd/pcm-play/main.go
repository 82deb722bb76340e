// ABOUTME: Local playback tool for the pcmstream engine
// ABOUTME: Streams an audio file or the test tone through a Player in chunks
package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/decode"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/resample"
	"github.com/Resonate-Protocol/pcmstream/pkg/pcmstream"
	"github.com/Resonate-Protocol/pcmstream/pkg/volume"
)

var (
	file       = flag.String("file", "", "Audio file to play (.mp3, .flac, .pcm or - for stdin). Empty plays the test tone")
	rawRate    = flag.Int("raw-rate", audio.DefaultSampleRate, "Sample rate of raw PCM input")
	sampleRate = flag.Int("sample-rate", 0, "Output sample rate (default: the file's rate)")
	backend    = flag.String("backend", "oto", "Output backend: oto, portaudio or null")
	voice      = flag.Bool("voice", false, "Play with voice communication routing")
	chunkMs    = flag.Int("chunk-ms", 20, "Chunk duration in milliseconds")
)

func main() {
	flag.Parse()

	usage := audio.UsageMedia
	if *voice {
		usage = audio.UsageVoiceCommunication
	}

	mixer := volume.NewSoftwareMixer(volume.MixerConfig{})
	factory, err := output.NewFactory(*backend, mixer.Gain)
	if err != nil {
		log.Fatalf("Invalid backend: %v", err)
	}

	player, err := pcmstream.NewPlayer(pcmstream.Config{
		Usage:    usage,
		Factory:  factory,
		Platform: mixer,
		OnEvent: func(ev pcmstream.Event) {
			if ev.Kind == pcmstream.EventStall || ev.Kind == pcmstream.EventUsageFallback {
				log.Printf("Recovery: %s", ev.Kind)
			}
		},
	})
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}
	defer func() {
		if err := player.Close(); err != nil {
			log.Printf("Error closing player: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *file == "" {
		log.Printf("Playing test tone")
		if err := player.PlayTestTone(); err != nil {
			log.Fatalf("Test tone failed (%s): %v", pcmstream.Code(err), err)
		}
		// The tone call only queues audio
		select {
		case <-time.After(1200 * time.Millisecond):
		case <-sigChan:
		}
		return
	}

	source, err := decode.Open(*file, *rawRate)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *file, err)
	}
	defer func() { _ = source.Close() }()

	outRate := *sampleRate
	if outRate <= 0 {
		outRate = source.SampleRate()
	}
	resampler := resample.New(source.SampleRate(), outRate)

	if err := player.Init(outRate); err != nil {
		log.Fatalf("Init failed (%s): %v", pcmstream.Code(err), err)
	}
	log.Printf("Playing %s: %d Hz source, %d Hz output", *file, source.SampleRate(), outRate)

	if err := play(player, source, resampler, sigChan); err != nil {
		log.Fatalf("Playback failed (%s): %v", pcmstream.Code(err), err)
	}

	if err := player.Release(); err != nil {
		log.Printf("Release failed: %v", err)
	}
}

// play feeds source through the resampler into the player until EOF or a signal.
// Writes block on device backpressure, so the loop runs at playback speed.
func play(player *pcmstream.Player, source decode.Source, resampler *resample.Resampler, sigChan <-chan os.Signal) error {
	samples := make([]int16, source.SampleRate()**chunkMs/1000)
	var total int

	for {
		select {
		case sig := <-sigChan:
			log.Printf("Received %v, stopping", sig)
			return player.Stop()
		default:
		}

		n, err := source.Read(samples)
		if n > 0 {
			chunk := audio.EncodeInt16LE(resampler.Resample(samples[:n]))
			if werr := player.WriteChunk(chunk); werr != nil {
				return werr
			}
			total += n
		}
		if errors.Is(err, io.EOF) {
			log.Printf("Finished: %d samples", total)
			return nil
		}
		if err != nil {
			return err
		}
	}
}
