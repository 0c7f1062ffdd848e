package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/gorilla/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	assert.Equal(t, websocket.TextMessage, typ)

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestHub_SnapshotThenPublish(t *testing.T) {
	hub := NewHub(nil, Config{
		Channels: map[string]string{"chat:turns": "turn"},
		Snapshot: func() []Envelope {
			return []Envelope{{Type: "status", Payload: json.RawMessage(`{"status":"ready"}`)}}
		},
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn := dial(t, srv)

	env := readEnvelope(t, conn)
	assert.Equal(t, "status", env.Type)
	assert.Equal(t, `{"status":"ready"}`, string(env.Payload))

	err := hub.Publish(context.Background(), "chat:turns", []byte(`{"id":"t1"}`))
	assert.Equal(t, nil, err)

	env = readEnvelope(t, conn)
	assert.Equal(t, "turn", env.Type)
	assert.Equal(t, `{"id":"t1"}`, string(env.Payload))
}

func TestHub_ConnectAfterShutdownIsClosed(t *testing.T) {
	hub := NewHub(nil, Config{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- hub.Run(ctx) }()
	cancel()

	select {
	case err := <-stopped:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWS(w, r)
		close(served)
	}))
	defer srv.Close()

	conn := dial(t, srv)

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleWS blocked after shutdown")
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.NotEqual(t, nil, err)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub := NewHub(nil, Config{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()
	conn := dial(t, srv)

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, 1, hub.ClientCount())

	cancel()
	<-stopped

	// the write pump sends a close frame once the hub drops the client
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Equal(t, true, websocket.IsCloseError(err, websocket.CloseNoStatusReceived))
}

func TestHub_FrameQuotesNonJSON(t *testing.T) {
	hub := NewHub(nil, Config{}, testLogger())

	frame, err := hub.frame("notice", []byte("plain text"))
	assert.Equal(t, nil, err)
	assert.Equal(t, `{"type":"notice","payload":"plain text"}`, string(frame))
}

func TestHub_PublishBacklog(t *testing.T) {
	hub := NewHub(nil, Config{}, testLogger())

	// Run is not started, so the queue fills up.
	var err error
	for i := 0; i <= broadcastBufferSize; i++ {
		err = hub.Publish(context.Background(), "x", []byte(`1`))
	}
	assert.Equal(t, ErrBacklog, err)
}

func TestHub_CheckOrigin(t *testing.T) {
	hub := NewHub(nil, Config{AllowedOrigins: []string{"http://localhost:5173"}}, testLogger())

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Equal(t, true, hub.checkOrigin(r))

	r.Header.Set("Origin", "http://localhost:5173")
	assert.Equal(t, true, hub.checkOrigin(r))

	r.Header.Set("Origin", "https://evil.example")
	assert.Equal(t, false, hub.checkOrigin(r))
}
