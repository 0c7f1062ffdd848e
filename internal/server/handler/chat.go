package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketchat/internal/chat"
	"github.com/alanyoungcy/marketchat/internal/domain"
)

// ChatService is the conversation controller as seen by HTTP.
type ChatService interface {
	Send(ctx context.Context, query string) (chat.Reply, error)
	DrillDown(ctx context.Context, marketID string) (chat.Reply, error)
	History() []domain.Turn
	State() chat.State
}

// ChatHandler serves the conversation endpoints.
type ChatHandler struct {
	chat   ChatService
	logger *slog.Logger
}

// NewChatHandler creates a ChatHandler backed by svc.
func NewChatHandler(svc ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   svc,
		logger: logHandler(logger, "chat"),
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

// failedReply is returned with 502 when the model call fails. The failure
// turn is already in the history.
type failedReply struct {
	Error    string      `json:"error"`
	Question domain.Turn `json:"question"`
	Answer   domain.Turn `json:"answer"`
}

type conversationResponse struct {
	State chat.State    `json:"state"`
	Turns []domain.Turn `json:"turns"`
}

// Send answers a free-text question.
// POST /api/chat
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.chat.Send(r.Context(), req.Message)
	if err != nil {
		h.writeChatError(w, r, reply, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// Analyze asks for a deep dive into one market.
// POST /api/markets/{id}/analyze
func (h *ChatHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	reply, err := h.chat.DrillDown(r.Context(), id)
	if err != nil {
		h.writeChatError(w, r, reply, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// Conversation returns the history and current request state.
// GET /api/conversation
func (h *ChatHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	turns := h.chat.History()
	if turns == nil {
		turns = []domain.Turn{}
	}
	writeJSON(w, http.StatusOK, conversationResponse{
		State: h.chat.State(),
		Turns: turns,
	})
}

func (h *ChatHandler) writeChatError(w http.ResponseWriter, r *http.Request, reply chat.Reply, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "message must not be empty")
	case errors.Is(err, domain.ErrBusy):
		writeError(w, http.StatusConflict, "a question is already being answered")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "market not found")
	case errors.Is(err, domain.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, domain.ErrUnavailable.Error())
	case errors.Is(err, domain.ErrModelCall):
		writeJSON(w, http.StatusBadGateway, failedReply{
			Error:    chat.FailureMessage,
			Question: reply.Question,
			Answer:   reply.Answer,
		})
	default:
		h.logger.ErrorContext(r.Context(), "chat request failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
