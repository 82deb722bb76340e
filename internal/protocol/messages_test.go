// ABOUTME: Tests for bridge protocol helpers
// ABOUTME: Covers message payload handling and binary frame layout
package protocol

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewMessageAndDecode(t *testing.T) {
	msg, err := NewMessage(TypePlayerInit, "req-1", PlayerInit{SampleRate: 16000, Usage: "voice"})
	if err != nil {
		t.Fatalf("failed to build message: %v", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.Type != TypePlayerInit || got.ID != "req-1" {
		t.Errorf("unexpected envelope: %+v", got)
	}

	var init PlayerInit
	if err := got.Decode(&init); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if init.SampleRate != 16000 || init.Usage != "voice" {
		t.Errorf("unexpected payload: %+v", init)
	}
}

func TestMessageWithoutPayload(t *testing.T) {
	msg, err := NewMessage(TypePlayerStop, "req-2", nil)
	if err != nil {
		t.Fatalf("failed to build message: %v", err)
	}

	data, _ := json.Marshal(msg)
	if bytes.Contains(data, []byte("payload")) {
		t.Errorf("expected payload to be omitted, got %s", data)
	}

	init := PlayerInit{SampleRate: 8000}
	if err := msg.Decode(&init); err != nil || init.SampleRate != 8000 {
		t.Errorf("empty payload must leave target untouched: %v %+v", err, init)
	}
}

func TestDecodeInvalidPayload(t *testing.T) {
	msg := Message{Type: TypePlayerInit, Payload: json.RawMessage(`"nope"`)}

	var init PlayerInit
	if err := msg.Decode(&init); err == nil {
		t.Error("expected error for mismatched payload")
	}
}

func TestAudioChunkFrame(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	frame := EncodeAudioChunk(0x01020304, payload)

	expected := []byte{4, 1, 2, 3, 4, 0xAA, 0xBB, 0xCC}
	if !bytes.Equal(frame, expected) {
		t.Fatalf("expected %v, got %v", expected, frame)
	}

	seq, got, err := DecodeAudioChunk(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if seq != 0x01020304 || !bytes.Equal(got, payload) {
		t.Errorf("unexpected decode: seq=%x payload=%v", seq, got)
	}
}

func TestDecodeAudioChunkErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{"empty", nil},
		{"short header", []byte{4, 0, 0}},
		{"wrong type", []byte{0, 0, 0, 0, 1, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeAudioChunk(tt.frame); err == nil {
				t.Error("expected error")
			}
		})
	}
}
