// ABOUTME: WebSocket client for the pcmstream bridge
// ABOUTME: Handles connection, handshake, and request/result correlation
package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/Resonate-Protocol/pcmstream/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config holds client configuration
type Config struct {
	ServerAddr string
	Path       string // default: /pcmstream
	ClientID   string // default: random
	Name       string
	DeviceInfo protocol.DeviceInfo
}

// RemoteError is a failed player/result
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Client is a bridge connection
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	sendMu sync.Mutex

	// Session assigned by the server
	Welcome protocol.SessionWelcome

	pendingMu sync.Mutex
	pending   map[string]chan protocol.PlayerResult
	chunks    map[uint32]chan protocol.PlayerResult
	seq       uint32

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new bridge client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = "/pcmstream"
	}
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:  config,
		pending: make(map[string]chan protocol.PlayerResult),
		chunks:  make(map[uint32]chan protocol.PlayerResult),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Connect dials the bridge and performs the handshake
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

func (c *Client) handshake() error {
	hello := protocol.SessionHello{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		Version:    protocol.Version,
		DeviceInfo: &c.config.DeviceInfo,
	}

	msg, err := protocol.NewMessage(protocol.TypeSessionHello, "", hello)
	if err != nil {
		return err
	}
	if err := c.sendJSON(msg); err != nil {
		return fmt.Errorf("failed to send hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read welcome: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var reply protocol.Message
	if err := json.Unmarshal(data, &reply); err != nil {
		return fmt.Errorf("failed to parse welcome: %w", err)
	}
	if reply.Type != protocol.TypeSessionWelcome {
		return fmt.Errorf("expected %s, got %s", protocol.TypeSessionWelcome, reply.Type)
	}
	if err := reply.Decode(&c.Welcome); err != nil {
		return err
	}

	log.Printf("Handshake complete: session %s on %s", c.Welcome.SessionID, c.Welcome.Name)
	return nil
}

func (c *Client) sendJSON(msg protocol.Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *Client) sendBinary(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// readMessages routes results to waiting requests
func (c *Client) readMessages() {
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Printf("Read error: %v", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Failed to parse JSON message: %v", err)
			continue
		}

		if msg.Type != protocol.TypePlayerResult {
			log.Printf("Unknown message type: %s", msg.Type)
			continue
		}

		var result protocol.PlayerResult
		if err := msg.Decode(&result); err != nil {
			log.Printf("Failed to parse result: %v", err)
			continue
		}
		c.deliver(result)
	}
}

func (c *Client) deliver(result protocol.PlayerResult) {
	c.pendingMu.Lock()
	var ch chan protocol.PlayerResult
	if result.ID != "" {
		ch = c.pending[result.ID]
		delete(c.pending, result.ID)
	} else {
		ch = c.chunks[result.Seq]
		delete(c.chunks, result.Seq)
	}
	c.pendingMu.Unlock()

	if ch == nil {
		log.Printf("Unexpected result (id=%q seq=%d)", result.ID, result.Seq)
		return
	}
	ch <- result
}

// request sends msgType and waits for its result
func (c *Client) request(ctx context.Context, msgType string, payload interface{}) (protocol.PlayerResult, error) {
	id := uuid.New().String()
	ch := make(chan protocol.PlayerResult, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	msg, err := protocol.NewMessage(msgType, id, payload)
	if err == nil {
		err = c.sendJSON(msg)
	}
	if err != nil {
		c.forget(id, 0)
		return protocol.PlayerResult{}, err
	}

	return c.wait(ctx, ch, id, 0)
}

func (c *Client) wait(ctx context.Context, ch chan protocol.PlayerResult, id string, seq uint32) (protocol.PlayerResult, error) {
	select {
	case result := <-ch:
		if !result.OK {
			return result, &RemoteError{Code: result.Code, Message: result.Error}
		}
		return result, nil
	case <-ctx.Done():
		c.forget(id, seq)
		return protocol.PlayerResult{}, ctx.Err()
	case <-c.ctx.Done():
		return protocol.PlayerResult{}, fmt.Errorf("connection closed")
	}
}

func (c *Client) forget(id string, seq uint32) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if id != "" {
		delete(c.pending, id)
	} else {
		delete(c.chunks, seq)
	}
}

// Init configures the remote engine
func (c *Client) Init(ctx context.Context, sampleRate int, usage, codec string) error {
	_, err := c.request(ctx, protocol.TypePlayerInit, protocol.PlayerInit{
		SampleRate: sampleRate,
		Usage:      usage,
		Codec:      codec,
	})
	return err
}

// Write sends a PCM chunk as base64 JSON
func (c *Client) Write(ctx context.Context, pcm []byte) error {
	_, err := c.request(ctx, protocol.TypePlayerWrite, protocol.PlayerWrite{
		Data: base64.StdEncoding.EncodeToString(pcm),
	})
	return err
}

// SendAudio sends one payload in the session codec as a binary frame and
// waits for its result. Sequence numbers start at 1.
func (c *Client) SendAudio(ctx context.Context, payload []byte) error {
	ch := make(chan protocol.PlayerResult, 1)

	c.pendingMu.Lock()
	c.seq++
	seq := c.seq
	c.chunks[seq] = ch
	c.pendingMu.Unlock()

	if err := c.sendBinary(protocol.EncodeAudioChunk(seq, payload)); err != nil {
		c.forget("", seq)
		return err
	}

	_, err := c.wait(ctx, ch, "", seq)
	return err
}

// Stop pauses remote playback
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.request(ctx, protocol.TypePlayerStop, nil)
	return err
}

// Release tears the remote device down
func (c *Client) Release(ctx context.Context) error {
	_, err := c.request(ctx, protocol.TypePlayerRelease, nil)
	return err
}

// Tone plays the remote self-test tone
func (c *Client) Tone(ctx context.Context) error {
	_, err := c.request(ctx, protocol.TypePlayerTone, nil)
	return err
}

// Status returns the remote engine snapshot
func (c *Client) Status(ctx context.Context) (*protocol.PlayerStatus, error) {
	result, err := c.request(ctx, protocol.TypePlayerStatus, nil)
	if err != nil {
		return nil, err
	}
	return result.Status, nil
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
