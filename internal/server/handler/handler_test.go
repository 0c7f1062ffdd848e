package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/alanyoungcy/marketchat/internal/chat"
	"github.com/alanyoungcy/marketchat/internal/domain"
	"github.com/alanyoungcy/marketchat/internal/market"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func sampleMarkets() []domain.Market {
	return []domain.Market{
		{ID: "m1", Title: "Manchester City to win Premier League", Volume24h: 2_000_000},
		{ID: "m2", Title: "Fed interest rate decision", Volume24h: 500_000},
		{ID: "m3", Title: "Bitcoin above 100k", Volume24h: 900_000},
	}
}

// --- key proxy ---

func TestKeyHandler(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		method string
		status int
		body   map[string]string
	}{
		{"configured", "sk-123", http.MethodGet, http.StatusOK, map[string]string{"apiKey": "sk-123"}},
		{"missing", "", http.MethodGet, http.StatusInternalServerError, map[string]string{"error": "API key not configured"}},
		{"post", "sk-123", http.MethodPost, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"}},
		{"delete without key", "", http.MethodDelete, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewKeyHandler(tt.key).ServeHTTP(w, httptest.NewRequest(tt.method, "/api/key", nil))

			assert.Equal(t, tt.status, w.Code)
			var got map[string]string
			decodeBody(t, w, &got)
			assert.Equal(t, tt.body, got)
		})
	}
}

// --- markets ---

type firstN struct{}

func (firstN) Select(_ string, markets []domain.Market, limit int) []domain.Market {
	return markets[:min(limit, len(markets))]
}

func marketMux(store MarketStore) *http.ServeMux {
	h := NewMarketHandler(store, firstN{}, 2, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/markets", h.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", h.GetMarket)
	return mux
}

func TestListMarkets(t *testing.T) {
	mux := marketMux(market.NewStore(sampleMarkets()))

	// paging parameters are not part of the API and are ignored
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/markets?limit=1&offset=2", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp listMarketsResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 3, len(resp.Markets))
	assert.Equal(t, "m1", resp.Markets[0].ID)
	assert.Equal(t, "m3", resp.Markets[2].ID)
}

func TestListMarkets_Query(t *testing.T) {
	mux := marketMux(market.NewStore(sampleMarkets()))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/markets?q=football", nil))

	var resp listMarketsResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "football", resp.Query)
}

func TestGetMarket(t *testing.T) {
	mux := marketMux(market.NewStore(sampleMarkets()))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/markets/m3", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var m domain.Market
	decodeBody(t, w, &m)
	assert.Equal(t, "Bitcoin above 100k", m.Title)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/markets/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkets_Unavailable(t *testing.T) {
	mux := marketMux(market.Failed("data/markets.json", errors.New("boom")))

	for _, path := range []string{"/api/markets", "/api/markets/m1"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	}
}

// --- status ---

type fixedState chat.State

func (s fixedState) State() chat.State { return chat.State(s) }

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		store  *market.Store
		state  chat.State
		status string
	}{
		{"ready", market.NewStore(sampleMarkets()), chat.StateIdle, StatusReady},
		{"busy", market.NewStore(sampleMarkets()), chat.StateSending, StatusBusy},
		{"error wins over busy", market.Failed("x", errors.New("boom")), chat.StateSending, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStatusHandler(tt.store, fixedState(tt.state), "openai:gpt-4o-mini")

			w := httptest.NewRecorder()
			h.GetStatus(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
			assert.Equal(t, http.StatusOK, w.Code)

			var resp StatusResponse
			decodeBody(t, w, &resp)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.store.Len(), resp.Markets)
		})
	}
}

func TestStatus_ErrorDetail(t *testing.T) {
	h := NewStatusHandler(market.Failed("s3://b/k", errors.New("no such bucket")), fixedState(chat.StateIdle), "")
	snap := h.Snapshot()

	assert.Equal(t, "no such bucket", snap.Error)
	assert.Equal(t, "s3://b/k", snap.Source)
	assert.Equal(t, true, snap.LoadedAt == nil)
}

// --- chat ---

type fakeChat struct {
	reply   chat.Reply
	err     error
	queries []string
	history []domain.Turn
}

func (f *fakeChat) Send(_ context.Context, query string) (chat.Reply, error) {
	f.queries = append(f.queries, query)
	return f.reply, f.err
}

func (f *fakeChat) DrillDown(_ context.Context, id string) (chat.Reply, error) {
	f.queries = append(f.queries, "drill:"+id)
	return f.reply, f.err
}

func (f *fakeChat) History() []domain.Turn { return f.history }

func (f *fakeChat) State() chat.State { return chat.StateIdle }

func chatMux(svc ChatService) *http.ServeMux {
	h := NewChatHandler(svc, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", h.Send)
	mux.HandleFunc("POST /api/markets/{id}/analyze", h.Analyze)
	mux.HandleFunc("GET /api/conversation", h.Conversation)
	return mux
}

func TestChat_Send(t *testing.T) {
	svc := &fakeChat{reply: chat.Reply{
		Question: domain.Turn{ID: "q", Sender: domain.SenderUser, Content: "hi"},
		Answer:   domain.Turn{ID: "a", Sender: domain.SenderAssistant, Content: "hello"},
	}}

	w := httptest.NewRecorder()
	chatMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"hi"}, svc.queries)

	var reply chat.Reply
	decodeBody(t, w, &reply)
	assert.Equal(t, "hello", reply.Answer.Content)
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("chat: send: %w", domain.ErrEmptyQuery), http.StatusBadRequest},
		{fmt.Errorf("chat: %w", domain.ErrBusy), http.StatusConflict},
		{fmt.Errorf("chat: drill down: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("chat: send: %w", domain.ErrUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("chat: %w: %w", domain.ErrModelCall, errors.New("timeout")), http.StatusBadGateway},
		{errors.New("surprise"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			mux := chatMux(&fakeChat{err: tt.err})

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"x"}`)))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestChat_ModelFailureBody(t *testing.T) {
	svc := &fakeChat{
		err: fmt.Errorf("chat: %w", domain.ErrModelCall),
		reply: chat.Reply{
			Answer: domain.Turn{ID: "a", Sender: domain.SenderAssistant, Content: chat.FailureMessage, Failed: true},
		},
	}

	w := httptest.NewRecorder()
	chatMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"x"}`)))

	var body failedReply
	decodeBody(t, w, &body)
	assert.Equal(t, chat.FailureMessage, body.Error)
	assert.Equal(t, true, body.Answer.Failed)
}

func TestChat_BadBody(t *testing.T) {
	svc := &fakeChat{}
	mux := chatMux(svc)

	for _, body := range []string{"", "{not json"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	assert.Equal(t, 0, len(svc.queries))
}

func TestChat_Analyze(t *testing.T) {
	svc := &fakeChat{}

	w := httptest.NewRecorder()
	chatMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/markets/m2/analyze", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"drill:m2"}, svc.queries)
}

func TestChat_Conversation(t *testing.T) {
	w := httptest.NewRecorder()
	chatMux(&fakeChat{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/conversation", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"state":"idle","turns":[]}`, w.Body.String())
}
