// ABOUTME: Audio encoding for bridge clients
// ABOUTME: PCM and Opus encoders for mono 16-bit samples
// Package encode converts mono 16-bit samples into wire payloads.
//
// The Opus encoder consumes fixed 20ms frames; use FrameSize to chunk input.
package encode
