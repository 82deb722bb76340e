// ABOUTME: Tests for the WebSocket bridge
// ABOUTME: Drives a fake engine and a real one through the bridge client
package bridge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/pcmstream/internal/client"
	"github.com/Resonate-Protocol/pcmstream/internal/metrics"
	"github.com/Resonate-Protocol/pcmstream/internal/protocol"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/encode"
	"github.com/Resonate-Protocol/pcmstream/pkg/audio/output"
	"github.com/Resonate-Protocol/pcmstream/pkg/pcmstream"
	"github.com/Resonate-Protocol/pcmstream/pkg/volume"
	"github.com/gorilla/websocket"
)

type fakeEngine struct {
	mu       sync.Mutex
	inits    []int
	usage    audio.Usage
	writes   [][]byte
	stops    int
	releases int
	tones    int
	writeErr error
}

func (e *fakeEngine) Init(sampleRate int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inits = append(e.inits, sampleRate)
	return nil
}

func (e *fakeEngine) WriteChunk(pcm []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.writeErr != nil {
		return e.writeErr
	}
	e.writes = append(e.writes, pcm)
	return nil
}

func (e *fakeEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stops++
	return nil
}

func (e *fakeEngine) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releases++
	return nil
}

func (e *fakeEngine) PlayTestTone() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tones++
	return nil
}

func (e *fakeEngine) SetUsage(usage audio.Usage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.usage = usage
	return nil
}

func (e *fakeEngine) Stats() pcmstream.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return pcmstream.Stats{State: pcmstream.StateActive, SampleRate: 16000, Chunks: int64(len(e.writes))}
}

func (e *fakeEngine) releaseCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.releases
}

func startBridge(t *testing.T, engine Engine, m *metrics.Metrics) *httptest.Server {
	t.Helper()
	s := NewServer(Config{Name: "test-bridge", Metrics: m}, engine)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *client.Client {
	t.Helper()

	c := client.NewClient(client.Config{
		ServerAddr: strings.TrimPrefix(srv.URL, "http://"),
		Name:       "test-sender",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	return c
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestHandshake(t *testing.T) {
	srv := startBridge(t, &fakeEngine{}, nil)

	c := dial(t, srv)
	defer c.Close()

	if c.Welcome.SessionID == "" || c.Welcome.ServerID == "" {
		t.Errorf("expected session and server ids, got %+v", c.Welcome)
	}
	if c.Welcome.Name != "test-bridge" || c.Welcome.Version != protocol.Version {
		t.Errorf("unexpected welcome: %+v", c.Welcome)
	}
}

func TestHandshakeRequiresClientID(t *testing.T) {
	srv := startBridge(t, &fakeEngine{}, nil)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/pcmstream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	hello, _ := protocol.NewMessage(protocol.TypeSessionHello, "", protocol.SessionHello{Name: "anonymous"})
	conn.WriteJSON(hello)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed without a welcome")
	}
}

func TestRequests(t *testing.T) {
	engine := &fakeEngine{}
	srv := startBridge(t, engine, nil)
	c := dial(t, srv)
	defer c.Close()

	ctx := testContext(t)

	if err := c.Init(ctx, 16000, "voice", "pcm"); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := c.Write(ctx, []byte{1, 0, 2, 0}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := c.SendAudio(ctx, []byte{3, 0}); err != nil {
		t.Fatalf("binary write failed: %v", err)
	}
	if err := c.Tone(ctx); err != nil {
		t.Fatalf("tone failed: %v", err)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	status, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if err := c.Release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()

	if len(engine.inits) != 1 || engine.inits[0] != 16000 {
		t.Errorf("expected init at 16000, got %v", engine.inits)
	}
	if engine.usage != audio.UsageVoiceCommunication {
		t.Errorf("expected voice usage, got %s", engine.usage)
	}
	if len(engine.writes) != 2 || len(engine.writes[0]) != 4 || len(engine.writes[1]) != 2 {
		t.Errorf("unexpected writes: %v", engine.writes)
	}
	if engine.tones != 1 || engine.stops != 1 || engine.releases != 1 {
		t.Errorf("expected one tone/stop/release, got %d/%d/%d", engine.tones, engine.stops, engine.releases)
	}
	if status.State != "active" || status.Chunks != 2 {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		writeErr error
		expected string
	}{
		{"write failure", &pcmstream.WriteError{Err: io.ErrShortWrite}, pcmstream.CodeWrite},
		{"no device", &pcmstream.NoDeviceError{}, pcmstream.CodeNoDevice},
		{"unexpected", errors.New("boom"), pcmstream.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startBridge(t, &fakeEngine{writeErr: tt.writeErr}, nil)
			c := dial(t, srv)
			defer c.Close()

			err := c.Write(testContext(t), []byte{0, 0})

			var remote *client.RemoteError
			if !errors.As(err, &remote) {
				t.Fatalf("expected remote error, got %v", err)
			}
			if remote.Code != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, remote.Code)
			}
		})
	}
}

func TestBadRequests(t *testing.T) {
	srv := startBridge(t, &fakeEngine{}, nil)
	c := dial(t, srv)
	defer c.Close()

	ctx := testContext(t)

	tests := []struct {
		name string
		call func() error
	}{
		{"unknown usage", func() error { return c.Init(ctx, 16000, "alarm", "") }},
		{"unknown codec", func() error { return c.Init(ctx, 16000, "", "aac") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var remote *client.RemoteError
			if err := tt.call(); !errors.As(err, &remote) || remote.Code != CodeBadRequest {
				t.Errorf("expected %s, got %v", CodeBadRequest, err)
			}
		})
	}
}

func TestOpusSession(t *testing.T) {
	engine := &fakeEngine{}
	srv := startBridge(t, engine, nil)
	c := dial(t, srv)
	defer c.Close()

	ctx := testContext(t)

	if err := c.Init(ctx, 16000, "", "opus"); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	enc, err := encode.NewOpus(16000)
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}
	tone := audio.DecodeInt16LE(audio.TestTone(16000))
	packet, err := enc.Encode(tone[:enc.FrameSize()])
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if err := c.SendAudio(ctx, packet); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if len(engine.writes) != 1 || len(engine.writes[0]) != enc.FrameSize()*2 {
		t.Errorf("expected one decoded 20ms frame, got %d writes", len(engine.writes))
	}
}

func TestLastDisconnectReleasesEngine(t *testing.T) {
	engine := &fakeEngine{}
	srv := startBridge(t, engine, nil)

	first := dial(t, srv)
	second := dial(t, srv)

	first.Close()
	time.Sleep(100 * time.Millisecond)
	if engine.releaseCount() != 0 {
		t.Fatal("engine released while a client is still connected")
	}

	second.Close()

	deadline := time.Now().Add(5 * time.Second)
	for engine.releaseCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if engine.releaseCount() != 1 {
		t.Errorf("expected one release after last disconnect, got %d", engine.releaseCount())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	srv := startBridge(t, &fakeEngine{}, m)

	c := dial(t, srv)
	c.Tone(testContext(t))
	c.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `pcmstream_bridge_requests_total{code="ok",type="player/tone"} 1`) {
		t.Errorf("expected tone request counted, got:\n%s", body)
	}
}

func TestBridgeWithRealEngine(t *testing.T) {
	m := metrics.New()
	player, err := pcmstream.NewPlayer(pcmstream.Config{
		Factory:  output.NewNull(nil),
		Platform: volume.NewSoftwareMixer(volume.MixerConfig{}),
		OnEvent:  m.Observe,
	})
	if err != nil {
		t.Fatalf("failed to create player: %v", err)
	}
	defer player.Close()

	srv := startBridge(t, player, m)
	c := dial(t, srv)
	defer c.Close()

	ctx := testContext(t)

	if err := c.Init(ctx, 8000, "media", "pcm"); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := c.Write(ctx, make([]byte, 1600)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	status, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.State != "active" || status.SampleRate != 8000 || status.Chunks != 1 {
		t.Errorf("unexpected status: %+v", status)
	}

	if err := c.Release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}
}
