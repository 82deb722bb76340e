// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines the mono 16-bit PCM format, usage modes, and sample helpers
// Package audio provides the PCM primitives shared by the playback engine.
//
// Everything in this module speaks a single wire format: signed 16-bit
// little-endian samples, one channel. This package defines:
//   - Format: sample rate plus the fixed channel count and bit depth
//   - Usage: the output routing mode a device is built for
//   - Sample helpers: int16 <-> bytes conversion, RMS, sine synthesis
//
// Example:
//
//	pcm := audio.SineTone(audio.DefaultSampleRate, 440, 0.3, time.Second)
//	rms := audio.RMS(pcm)
package audio
