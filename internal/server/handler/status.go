package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/marketchat/internal/chat"
)

// Status values reported by GET /api/status.
const (
	StatusReady = "ready"
	StatusBusy  = "busy"
	StatusError = "error"
)

// StoreInfo is the read-only view of the market store the status endpoint
// reports on.
type StoreInfo interface {
	Len() int
	LoadedAt() time.Time
	Source() string
	Err() error
}

// StateReader reports whether a request is in flight.
type StateReader interface {
	State() chat.State
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status   string     `json:"status"`
	Markets  int        `json:"markets"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
	Source   string     `json:"source"`
	Model    string     `json:"model,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// StatusHandler serves the status indicator for the chat UI.
type StatusHandler struct {
	store StoreInfo
	chat  StateReader
	model string
}

// NewStatusHandler creates a StatusHandler. model is the display name of the
// configured model client.
func NewStatusHandler(store StoreInfo, chat StateReader, model string) *StatusHandler {
	return &StatusHandler{store: store, chat: chat, model: model}
}

// Snapshot computes the current status.
func (h *StatusHandler) Snapshot() StatusResponse {
	resp := StatusResponse{
		Status:  StatusReady,
		Markets: h.store.Len(),
		Source:  h.store.Source(),
		Model:   h.model,
	}
	if t := h.store.LoadedAt(); !t.IsZero() {
		resp.LoadedAt = &t
	}

	switch {
	case h.store.Err() != nil:
		resp.Status = StatusError
		resp.Error = h.store.Err().Error()
	case h.chat.State() == chat.StateSending:
		resp.Status = StatusBusy
	}
	return resp
}

// GetStatus responds with whether the service is ready, busy or failed.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Snapshot())
}
