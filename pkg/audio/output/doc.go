// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Device and Factory interfaces plus oto, PortAudio and null backends
// Package output provides streaming PCM output devices.
//
// A Device accepts mono 16-bit little-endian PCM through a blocking Write,
// exposes play/pause/flush/stop/release controls, and reports a monotonic
// playback head (frames handed to the audio backend) that callers use to
// detect stalled playback.
//
// Backends:
//   - oto (default, pure Go on most platforms)
//   - portaudio (build with -tags portaudio)
//   - null (consumes audio at real-time rate without a sound card)
//
// Example:
//
//	factory, err := output.NewFactory("oto", mixer.Gain)
//	dev, err := factory.Open(output.DeviceConfig{SampleRate: 24000, BufferSize: 48000})
//	err = dev.Play()
//	_, err = dev.Write(pcm)
package output
