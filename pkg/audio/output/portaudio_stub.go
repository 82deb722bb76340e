//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"
)

// PortAudio output factory (stub)
type PortAudio struct{}

// NewPortAudio creates a PortAudio factory
func NewPortAudio(gain GainFunc) Factory {
	return &PortAudio{}
}

func (p *PortAudio) Name() string { return "portaudio" }

func (p *PortAudio) MinBufferSize(sampleRate int) int {
	return minBufferSize(sampleRate)
}

// Open always fails without the portaudio build tag
func (p *PortAudio) Open(config DeviceConfig) (Device, error) {
	return nil, fmt.Errorf("PortAudio support not enabled (build with -tags portaudio)")
}
