// ABOUTME: Streams an audio file to a running pcmstream daemon
// ABOUTME: Finds the daemon via mDNS when no address is given and sends PCM or Opus chunks
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/pcmstream/internal/client"
	"github.com/Resonate-Protocol/pcmstream/internal/discovery"
	"github.com/Resonate-Protocol/pcmstream/internal/protocol"
	"github.com/Resonate-Protocol/pcmstream/internal/version"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/decode"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/encode"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/resample"
)

var (
	serverAddr = flag.String("server", "", "Daemon address host:port (default: discover via mDNS)")
	name       = flag.String("name", "pcm-send", "Client friendly name")
	file       = flag.String("file", "", "Audio file to send (.mp3, .flac, .pcm or - for stdin). Empty sends a remote test tone")
	rawRate    = flag.Int("raw-rate", audio.DefaultSampleRate, "Sample rate of raw PCM input")
	sampleRate = flag.Int("sample-rate", 48000, "Stream sample rate")
	codec      = flag.String("codec", decode.CodecPCM, "Chunk codec: pcm or opus")
	usage      = flag.String("usage", "media", "Routing: media or voice")
	chunkMs    = flag.Int("chunk-ms", 20, "Chunk duration in milliseconds (opus always uses 20)")
	release    = flag.Bool("release", true, "Release the daemon's engine when done")
)

func main() {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	addr := *serverAddr
	path := discovery.DefaultPath
	if addr == "" {
		log.Printf("Discovering pcmstream daemons via mDNS...")
		mgr := discovery.NewManager(discovery.Config{})
		dctx, dcancel := context.WithTimeout(ctx, 5*time.Second)
		server, err := mgr.Discover(dctx)
		dcancel()
		mgr.Stop()
		if err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
		addr = server.Addr()
		path = server.Path
		log.Printf("Found %s at %s", server.Name, addr)
	}

	c := client.NewClient(client.Config{
		ServerAddr: addr,
		Path:       path,
		Name:       *name,
		DeviceInfo: protocol.DeviceInfo{
			ProductName:     "pcm-send",
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
	})
	if err := c.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer c.Close()
	log.Printf("Connected: session %s on %s", c.Welcome.SessionID, c.Welcome.Name)

	if *file == "" {
		if err := c.Tone(ctx); err != nil {
			log.Fatalf("Remote tone failed: %v", err)
		}
		log.Printf("Remote test tone queued")
		return
	}

	if err := send(ctx, c); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Send failed: %v", err)
	}

	// Detach from the signal context so cleanup still reaches the daemon
	cleanup, done := context.WithTimeout(context.Background(), 3*time.Second)
	defer done()
	if ctx.Err() != nil {
		if err := c.Stop(cleanup); err != nil {
			log.Printf("Stop failed: %v", err)
		}
	}
	if *release {
		if err := c.Release(cleanup); err != nil {
			log.Printf("Release failed: %v", err)
		}
	}

	if status, err := c.Status(cleanup); err == nil {
		log.Printf("Daemon: state=%s chunks=%d bytes=%d stalls=%d fallbacks=%d",
			status.State, status.Chunks, status.Bytes, status.Stalls, status.Fallbacks)
	}
}

func send(ctx context.Context, c *client.Client) error {
	source, err := decode.Open(*file, *rawRate)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	enc, err := encode.New(*codec, *sampleRate)
	if err != nil {
		return err
	}
	defer func() { _ = enc.Close() }()

	if err := c.Init(ctx, *sampleRate, *usage, *codec); err != nil {
		return err
	}

	resampler := resample.New(source.SampleRate(), *sampleRate)

	frame := enc.FrameSize()
	if frame == 0 {
		frame = *sampleRate * *chunkMs / 1000
	}

	log.Printf("Sending %s: %d Hz -> %d Hz %s, %d samples per chunk",
		*file, source.SampleRate(), *sampleRate, *codec, frame)

	in := make([]int16, source.SampleRate()**chunkMs/1000)
	var pending []int16
	var chunks int

	flush := func(samples []int16) error {
		payload, err := enc.Encode(samples)
		if err != nil {
			return err
		}
		chunks++
		return c.SendAudio(ctx, payload)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, rerr := source.Read(in)
		if n > 0 {
			pending = append(pending, resampler.Resample(in[:n])...)
			for len(pending) >= frame {
				if err := flush(pending[:frame]); err != nil {
					return err
				}
				pending = pending[frame:]
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	// Opus only accepts whole frames
	if len(pending) > 0 {
		if enc.FrameSize() > 0 {
			pending = append(pending, make([]int16, frame-len(pending))...)
		}
		if err := flush(pending); err != nil {
			return err
		}
	}

	log.Printf("Sent %d chunks", chunks)
	return nil
}
