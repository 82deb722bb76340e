// ABOUTME: Engine error taxonomy
// ABOUTME: NoDeviceError, WriteError and ToneError plus their wire codes
package pcmstream

import (
	"errors"
	"fmt"
)

// ErrNoDevice matches any NoDeviceError via errors.Is
var ErrNoDevice = errors.New("output device not initialized")

// NoDeviceError reports that no device could be built for a write
type NoDeviceError struct {
	Err error
}

func (e *NoDeviceError) Error() string {
	if e.Err == nil {
		return ErrNoDevice.Error()
	}
	return fmt.Sprintf("%s: %v", ErrNoDevice, e.Err)
}

func (e *NoDeviceError) Unwrap() error { return e.Err }

func (e *NoDeviceError) Is(target error) bool { return target == ErrNoDevice }

// WriteError wraps a device submission failure. The device is kept.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ToneError wraps a self-test synthesis or submission failure
type ToneError struct {
	Err error
}

func (e *ToneError) Error() string {
	return fmt.Sprintf("test tone failed: %v", e.Err)
}

func (e *ToneError) Unwrap() error { return e.Err }

// Wire codes reported to bridge clients
const (
	CodeNoDevice = "E_NO_TRACK"
	CodeWrite    = "E_WRITE"
	CodeTone     = "E_TONE"
	CodeInit     = "E_INIT"
	CodeInternal = "E_INTERNAL"
)

// Code maps an engine error to its wire code. nil maps to "".
func Code(err error) string {
	if err == nil {
		return ""
	}

	var toneErr *ToneError
	var writeErr *WriteError
	var deviceErr *NoDeviceError
	var initErr *InitError

	switch {
	case errors.As(err, &toneErr):
		return CodeTone
	case errors.As(err, &deviceErr):
		return CodeNoDevice
	case errors.As(err, &writeErr):
		return CodeWrite
	case errors.As(err, &initErr):
		return CodeInit
	default:
		return CodeInternal
	}
}

// InitError reports that Init could not build a device
type InitError struct {
	SampleRate int
	Err        error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init at %dHz failed: %v", e.SampleRate, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }
