// ABOUTME: Bridge protocol message type definitions
// ABOUTME: JSON control messages and the binary audio frame layout
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// Version is the bridge protocol version
const Version = 1

// Message types
const (
	TypeSessionHello   = "session/hello"
	TypeSessionWelcome = "session/welcome"
	TypePlayerInit     = "player/init"
	TypePlayerWrite    = "player/write"
	TypePlayerStop     = "player/stop"
	TypePlayerRelease  = "player/release"
	TypePlayerTone     = "player/tone"
	TypePlayerStatus   = "player/status"
	TypePlayerResult   = "player/result"
)

// Message is the top-level wrapper for all text messages
type Message struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage builds a message with payload marshaled to JSON
func NewMessage(msgType, id string, payload interface{}) (Message, error) {
	msg := Message{Type: msgType, ID: id}
	if payload == nil {
		return msg, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	msg.Payload = data
	return msg, nil
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (m Message) Decode(v interface{}) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", m.Type, err)
	}
	return nil
}

// SessionHello is sent by clients to initiate the handshake
type SessionHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// SessionWelcome is the server's response to session/hello
type SessionWelcome struct {
	SessionID string   `json:"session_id"`
	ServerID  string   `json:"server_id"`
	Name      string   `json:"name"`
	Version   int      `json:"version"`
	Codecs    []string `json:"codecs"`
}

// PlayerInit configures the engine for a stream
type PlayerInit struct {
	SampleRate int    `json:"sample_rate"`
	Usage      string `json:"usage,omitempty"` // "media" or "voice"
	Codec      string `json:"codec,omitempty"` // "pcm" or "opus"
}

// PlayerWrite carries one base64-encoded PCM chunk
type PlayerWrite struct {
	Data string `json:"data"`
}

// PlayerStatus is a snapshot of the engine
type PlayerStatus struct {
	State        string  `json:"state"`
	SampleRate   int     `json:"sample_rate"`
	Usage        string  `json:"usage"`
	BufferSize   int     `json:"buffer_size"`
	PlaybackHead int64   `json:"playback_head"`
	Chunks       int64   `json:"chunks"`
	Bytes        int64   `json:"bytes"`
	LastRMS      float64 `json:"last_rms"`
	Stalls       int64   `json:"stalls"`
	Fallbacks    int64   `json:"fallbacks"`
}

// PlayerResult completes one request. Seq is set for binary chunks.
type PlayerResult struct {
	ID     string        `json:"id,omitempty"`
	Seq    uint32        `json:"seq,omitempty"`
	OK     bool          `json:"ok"`
	Code   string        `json:"code,omitempty"`
	Error  string        `json:"error,omitempty"`
	Status *PlayerStatus `json:"status,omitempty"`
}

// AudioChunkType is the first byte of a binary audio frame
const AudioChunkType = 4

// audioHeaderSize is the type byte plus the sequence number
const audioHeaderSize = 5

// EncodeAudioChunk builds a binary frame: type byte, big-endian seq, payload
func EncodeAudioChunk(seq uint32, payload []byte) []byte {
	frame := make([]byte, audioHeaderSize+len(payload))
	frame[0] = AudioChunkType
	binary.BigEndian.PutUint32(frame[1:5], seq)
	copy(frame[audioHeaderSize:], payload)
	return frame
}

// DecodeAudioChunk splits a binary frame into its sequence number and payload
func DecodeAudioChunk(frame []byte) (uint32, []byte, error) {
	if len(frame) < audioHeaderSize {
		return 0, nil, fmt.Errorf("binary frame too short: %d bytes", len(frame))
	}
	if frame[0] != AudioChunkType {
		return 0, nil, fmt.Errorf("unknown binary message type: %d", frame[0])
	}
	return binary.BigEndian.Uint32(frame[1:5]), frame[audioHeaderSize:], nil
}
