// ABOUTME: Bridge request handlers
// ABOUTME: Maps protocol requests onto engine calls and replies with player/result
package bridge

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/Resonate-Protocol/pcmstream/internal/protocol"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/decode"
	"github.com/Resonate-Protocol/pcmstream/pkg/pcmstream"
)

// badRequest marks errors caused by the client's message rather than the engine
type badRequest struct {
	err error
}

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

func badRequestf(format string, args ...interface{}) error {
	return &badRequest{err: fmt.Errorf(format, args...)}
}

// errorCode maps a handler error to its wire code
func errorCode(err error) string {
	if _, ok := err.(*badRequest); ok {
		return CodeBadRequest
	}
	return pcmstream.Code(err)
}

// handleMessage dispatches one JSON request
func (s *Server) handleMessage(session *Session, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		s.reply(session, "", "invalid", 0, badRequestf("invalid message: %v", err), nil)
		return
	}

	var err error
	var status *protocol.PlayerStatus

	switch msg.Type {
	case protocol.TypePlayerInit:
		err = s.handleInit(session, msg)
	case protocol.TypePlayerWrite:
		err = s.handleWrite(msg)
	case protocol.TypePlayerStop:
		err = s.engine.Stop()
	case protocol.TypePlayerRelease:
		err = s.engine.Release()
	case protocol.TypePlayerTone:
		err = s.engine.PlayTestTone()
	case protocol.TypePlayerStatus:
		status = StatusFromStats(s.engine.Stats())
	default:
		log.Printf("Unknown message type: %s", msg.Type)
		err = badRequestf("unknown message type: %s", msg.Type)
	}

	s.reply(session, msg.ID, msg.Type, 0, err, status)
}

func (s *Server) handleInit(session *Session, msg protocol.Message) error {
	var req protocol.PlayerInit
	if err := msg.Decode(&req); err != nil {
		return &badRequest{err: err}
	}

	codec := req.Codec
	if codec == "" {
		codec = decode.CodecPCM
	}
	dec, err := decode.New(codec, req.SampleRate)
	if err != nil {
		return &badRequest{err: err}
	}

	if req.Usage != "" {
		usage, err := audio.ParseUsage(req.Usage)
		if err != nil {
			dec.Close()
			return &badRequest{err: err}
		}
		if err := s.engine.SetUsage(usage); err != nil {
			dec.Close()
			return err
		}
	}

	session.decoder.Close()
	session.decoder = dec
	session.codec = codec

	log.Printf("Session %s init: rate=%d usage=%s codec=%s", session.Name, req.SampleRate, req.Usage, codec)

	return s.engine.Init(req.SampleRate)
}

// handleWrite submits a base64 PCM chunk. JSON writes are always raw PCM.
func (s *Server) handleWrite(msg protocol.Message) error {
	var req protocol.PlayerWrite
	if err := msg.Decode(&req); err != nil {
		return &badRequest{err: err}
	}

	pcm, err := decode.Base64PCM(req.Data)
	if err != nil {
		return &badRequest{err: err}
	}

	return s.engine.WriteChunk(pcm)
}

// handleAudio decodes a binary frame with the session codec and submits it
func (s *Server) handleAudio(session *Session, frame []byte) {
	seq, payload, err := protocol.DecodeAudioChunk(frame)
	if err != nil {
		log.Printf("Invalid binary message: %v", err)
		s.reply(session, "", "audio", 0, &badRequest{err: err}, nil)
		return
	}

	samples, err := session.decoder.Decode(payload)
	if err != nil {
		s.reply(session, "", "audio", seq, &badRequest{err: err}, nil)
		return
	}

	err = s.engine.WriteChunk(audio.EncodeInt16LE(samples))
	s.reply(session, "", "audio", seq, err, nil)
}

// reply sends player/result and records the outcome
func (s *Server) reply(session *Session, id, msgType string, seq uint32, err error, status *protocol.PlayerStatus) {
	result := protocol.PlayerResult{
		ID:     id,
		Seq:    seq,
		OK:     err == nil,
		Status: status,
	}
	if err != nil {
		result.Code = errorCode(err)
		result.Error = err.Error()
		log.Printf("Request %s failed (%s): %v", msgType, result.Code, err)
	}

	if s.config.Metrics != nil {
		s.config.Metrics.Request(msgType, result.Code)
	}

	if sendErr := s.send(session, protocol.TypePlayerResult, id, result); sendErr != nil {
		log.Printf("Error sending result: %v", sendErr)
	}
}

// StatusFromStats converts an engine snapshot to its wire form
func StatusFromStats(stats pcmstream.Stats) *protocol.PlayerStatus {
	return &protocol.PlayerStatus{
		State:        stats.State.String(),
		SampleRate:   stats.SampleRate,
		Usage:        stats.Usage.String(),
		BufferSize:   stats.BufferSize,
		PlaybackHead: stats.PlaybackHead,
		Chunks:       stats.Chunks,
		Bytes:        stats.Bytes,
		LastRMS:      stats.LastRMS,
		Stalls:       stats.Stalls,
		Fallbacks:    stats.Fallbacks,
	}
}
