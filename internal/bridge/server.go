// ABOUTME: WebSocket host bridge exposing the playback engine
// ABOUTME: Dispatches init/write/stop/release/tone/status requests and audio frames
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmstream/internal/discovery"
	"github.com/Resonate-Protocol/pcmstream/internal/metrics"
	"github.com/Resonate-Protocol/pcmstream/internal/protocol"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/decode"
	"github.com/Resonate-Protocol/pcmstream/pkg/pcmstream"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// CodeBadRequest is returned for malformed or unknown requests
const CodeBadRequest = "E_BAD_REQUEST"

const (
	sendBuffer    = 100
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	helloTimeout  = 5 * time.Second
)

// Engine is the playback engine driven by the bridge
type Engine interface {
	Init(sampleRate int) error
	WriteChunk(pcm []byte) error
	Stop() error
	Release() error
	PlayTestTone() error
	SetUsage(usage audio.Usage) error
	Stats() pcmstream.Stats
}

// Config holds bridge configuration
type Config struct {
	Port       int
	Name       string
	Path       string // default: /pcmstream
	EnableMDNS bool

	// Metrics, if set, is served on /metrics and counts requests
	Metrics *metrics.Metrics
}

// Server is the WebSocket bridge
type Server struct {
	config   Config
	serverID string
	engine   Engine
	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	sessions   map[string]*Session
	sessionsMu sync.RWMutex

	mdnsManager *discovery.Manager

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Session is one connected client
type Session struct {
	ID       string
	ClientID string
	Name     string
	Conn     *websocket.Conn

	// Owned by the connection's read loop
	codec   string
	decoder decode.Decoder

	sendChan chan interface{}
}

// NewServer creates a bridge in front of engine
func NewServer(config Config, engine Engine) *Server {
	if config.Path == "" {
		config.Path = discovery.DefaultPath
	}
	if config.Name == "" {
		config.Name = "pcmstream"
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		engine:   engine,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Local network bridge; non-browser clients send no Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}

	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	if config.Metrics != nil {
		s.mux.Handle("/metrics", config.Metrics.Handler())
	}

	return s
}

// Handler returns the HTTP handler serving the bridge
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Stop is called or the listener fails
func (s *Server) Start() error {
	log.Printf("Bridge starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        s.config.Path,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket bridge listening on %s%s", addr, s.config.Path)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Bridge shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Bridge stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the bridge
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// SessionCount returns the number of connected clients
func (s *Server) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	s.handleConnection(conn)
}

// handleConnection runs the handshake and then the read loop for one client
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	hello, err := readHello(conn)
	if err != nil {
		log.Printf("Handshake failed: %v", err)
		return
	}

	log.Printf("Session hello: %s (client ID: %s)", hello.Name, hello.ClientID)

	session := &Session{
		ID:       uuid.New().String(),
		ClientID: hello.ClientID,
		Name:     hello.Name,
		Conn:     conn,
		codec:    decode.CodecPCM,
		decoder:  decode.NewPCM(),
		sendChan: make(chan interface{}, sendBuffer),
	}

	s.sessionsMu.Lock()
	s.sessions[session.ID] = session
	s.sessionsMu.Unlock()

	defer s.removeSession(session)

	welcome := protocol.SessionWelcome{
		SessionID: session.ID,
		ServerID:  s.serverID,
		Name:      s.config.Name,
		Version:   protocol.Version,
		Codecs:    []string{decode.CodecPCM, decode.CodecOpus},
	}
	if err := s.send(session, protocol.TypeSessionWelcome, "", welcome); err != nil {
		log.Printf("Error sending welcome: %v", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sessionWriter(session)
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			s.handleMessage(session, data)
		case websocket.BinaryMessage:
			s.handleAudio(session, data)
		}
	}
}

// readHello waits for session/hello and validates it
func readHello(conn *websocket.Conn) (*protocol.SessionHello, error) {
	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse hello: %w", err)
	}
	if msg.Type != protocol.TypeSessionHello {
		return nil, fmt.Errorf("expected %s, got %s", protocol.TypeSessionHello, msg.Type)
	}

	var hello protocol.SessionHello
	if err := msg.Decode(&hello); err != nil {
		return nil, err
	}
	if hello.ClientID == "" {
		return nil, fmt.Errorf("hello missing client_id")
	}

	return &hello, nil
}

// removeSession unregisters a session and releases the engine after the last one leaves
func (s *Server) removeSession(session *Session) {
	s.sessionsMu.Lock()
	delete(s.sessions, session.ID)
	remaining := len(s.sessions)
	s.sessionsMu.Unlock()

	close(session.sendChan)
	session.decoder.Close()
	log.Printf("Session closed: %s (%s)", session.Name, session.ID)

	if remaining == 0 {
		log.Printf("Last client left, releasing engine")
		if err := s.engine.Release(); err != nil {
			log.Printf("Engine release failed: %v", err)
		}
	}
}

// sessionWriter sends queued messages and keepalive pings
func (s *Server) sessionWriter(session *Session) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-session.sendChan:
			if !ok {
				return
			}

			switch v := msg.(type) {
			case []byte:
				session.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := session.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Printf("Error writing binary message: %v", err)
					return
				}
			default:
				data, err := json.Marshal(v)
				if err != nil {
					log.Printf("Error marshaling message: %v", err)
					continue
				}
				session.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := session.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Printf("Error writing text message: %v", err)
					return
				}
			}

		case <-ticker.C:
			if err := session.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// send queues a JSON message for the session
func (s *Server) send(session *Session, msgType, id string, payload interface{}) error {
	msg, err := protocol.NewMessage(msgType, id, payload)
	if err != nil {
		return err
	}

	select {
	case session.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("session send buffer full")
	}
}
