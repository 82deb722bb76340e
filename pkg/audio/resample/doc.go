// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts mono 16-bit audio between sample rates across chunk boundaries
// Package resample provides streaming sample rate conversion.
//
// Uses linear interpolation and carries the last input sample and the
// fractional read position between calls, so a stream split into arbitrary
// chunks resamples the same as the concatenated stream.
//
// Example:
//
//	r := resample.New(44100, 24000)
//	out := r.Resample(chunk)
package resample
