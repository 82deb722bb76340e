// ABOUTME: Streaming PCM playback engine package
// ABOUTME: Self-healing player with stall watchdog, usage fallback and volume ducking
// Package pcmstream plays a stream of raw PCM chunks through an output device
// and keeps it audible when chunks arrive late, irregularly, or not at all.
//
// A Player owns one output device at a time. Every accepted chunk arms a
// stall watchdog that rebuilds the device if its playback head has not moved
// one second later. In voice-communication mode a second timer downgrades the
// player to media routing when nothing plays within two seconds. Output
// volumes are ducked for the session and restored on stop or release.
//
// All operations run on a single control queue (see package looper), so the
// player is safe to call from multiple goroutines.
//
// Example:
//
//	mixer := volume.NewSoftwareMixer(volume.MixerConfig{})
//	factory, _ := output.NewFactory("oto", mixer.Gain)
//
//	player := pcmstream.NewPlayer(pcmstream.Config{
//	    Factory:  factory,
//	    Platform: mixer,
//	})
//	defer player.Close()
//
//	if err := player.Init(24000); err != nil {
//	    log.Fatal(err)
//	}
//	err := player.WriteChunk(pcm)
package pcmstream
