// ABOUTME: Audio decoding for the playback engine
// ABOUTME: Chunk decoders for streamed codecs and file sources for local playback
// Package decode turns encoded audio into mono 16-bit samples.
//
// Chunk decoders handle one wire payload at a time:
//
//	dec, err := decode.New(decode.CodecOpus, 24000)
//	samples, err := dec.Decode(packet)
//
// File sources read MP3, FLAC and raw PCM files, downmixing to mono:
//
//	src, err := decode.Open("speech.mp3", 0)
//	n, err := src.Read(buf)
package decode
