// Package chat runs the question-answer pipeline and owns the conversation
// history.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/marketchat/internal/domain"
	"github.com/alanyoungcy/marketchat/internal/format"
	"github.com/alanyoungcy/marketchat/internal/market"
	"github.com/alanyoungcy/marketchat/internal/notify"
	"github.com/alanyoungcy/marketchat/internal/prompt"
	"github.com/alanyoungcy/marketchat/internal/relevance"
)

// TurnsChannel is the channel every appended turn is published on.
const TurnsChannel = "chat:turns"

// FailureMessage is the assistant turn recorded when the model call fails.
const FailureMessage = "Sorry, I couldn't get an answer right now. Please try again in a moment."

// State is the request state of the controller.
type State string

const (
	StateIdle    State = "idle"
	StateSending State = "sending"
)

// Alerter raises operator alerts. *notify.Notifier satisfies it.
type Alerter interface {
	Alert(event, title, message string)
}

// Reply is the outcome of one answered question.
type Reply struct {
	Question domain.Turn     `json:"question"`
	Answer   domain.Turn     `json:"answer"`
	Markets  []domain.Market `json:"markets"`
	Cards    []format.Card   `json:"cards"`
}

// Config holds the optional collaborators of a Controller.
type Config struct {
	// Scorer defaults to relevance.NewScorer(relevance.DefaultTable(), relevance.DefaultWeights()).
	Scorer *relevance.Scorer
	// Limit caps the markets sent to the model. Zero uses relevance.DefaultLimit.
	Limit     int
	Publisher domain.Publisher
	Alerter   Alerter
}

// Controller sequences one request at a time. A second request while one is
// in flight is rejected with domain.ErrBusy, never queued.
type Controller struct {
	store     *market.Store
	model     domain.Completer
	scorer    *relevance.Scorer
	limit     int
	publisher domain.Publisher
	alerter   Alerter
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	history []domain.Turn
}

// NewController creates a Controller answering from store with model.
func NewController(store *market.Store, model domain.Completer, cfg Config, logger *slog.Logger) *Controller {
	scorer := cfg.Scorer
	if scorer == nil {
		scorer = relevance.NewScorer(relevance.DefaultTable(), relevance.DefaultWeights())
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = relevance.DefaultLimit
	}
	return &Controller{
		store:     store,
		model:     model,
		scorer:    scorer,
		limit:     limit,
		publisher: cfg.Publisher,
		alerter:   cfg.Alerter,
		logger:    logger.With(slog.String("component", "chat")),
		state:     StateIdle,
	}
}

// Send answers query against the most relevant markets.
func (c *Controller) Send(ctx context.Context, query string) (Reply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Reply{}, fmt.Errorf("chat: send: %w", domain.ErrEmptyQuery)
	}
	if err := c.store.Err(); err != nil {
		return Reply{}, fmt.Errorf("chat: send: %w", domain.ErrUnavailable)
	}

	markets := c.scorer.Select(query, c.store.Markets(), c.limit)
	return c.run(ctx, query, prompt.BuildContext(query, markets), markets)
}

// DrillDown answers a deep-dive request about one market.
func (c *Controller) DrillDown(ctx context.Context, marketID string) (Reply, error) {
	if err := c.store.Err(); err != nil {
		return Reply{}, fmt.Errorf("chat: drill down: %w", domain.ErrUnavailable)
	}
	m, err := c.store.Get(marketID)
	if err != nil {
		return Reply{}, fmt.Errorf("chat: drill down: %w", err)
	}

	markets := []domain.Market{m}
	return c.run(ctx, prompt.DetailQuestion(m), prompt.BuildDetailContext(m), markets)
}

// History returns a copy of the conversation so far.
func (c *Controller) History() []domain.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}

// State returns the current request state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) run(ctx context.Context, question, promptText string, markets []domain.Market) (Reply, error) {
	userTurn, err := c.begin(question)
	if err != nil {
		return Reply{}, err
	}
	c.publish(ctx, userTurn)

	start := time.Now()
	text, err := c.complete(ctx, promptText)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty answer")
	}

	if err != nil {
		failed := c.finish(newTurn(domain.SenderAssistant, FailureMessage, true))
		c.publish(ctx, failed)

		c.logger.ErrorContext(ctx, "model call failed",
			slog.String("model", c.model.Name()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
		if c.alerter != nil {
			c.alerter.Alert(notify.EventModelCallFailed, "Model call failed",
				fmt.Sprintf("%s: %v", c.model.Name(), err))
		}
		return Reply{Question: userTurn, Answer: failed}, fmt.Errorf("chat: %w: %w", domain.ErrModelCall, err)
	}

	answer := c.finish(newTurn(domain.SenderAssistant, format.FormatAnswer(text, markets), false))
	c.publish(ctx, answer)

	c.logger.InfoContext(ctx, "question answered",
		slog.String("model", c.model.Name()),
		slog.Int("markets", len(markets)),
		slog.Duration("elapsed", time.Since(start)),
	)

	return Reply{
		Question: userTurn,
		Answer:   answer,
		Markets:  markets,
		Cards:    format.Cards(markets),
	}, nil
}

// complete calls the model. A panic in the client is returned as an error so
// the request still ends with a failure turn and the controller goes idle.
func (c *Controller) complete(ctx context.Context, promptText string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model client panic: %v", r)
		}
	}()
	return c.model.Complete(ctx, domain.Completion{
		System: prompt.SystemPrompt,
		Prompt: promptText,
	})
}

// begin claims the controller and records the user turn.
func (c *Controller) begin(question string) (domain.Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSending {
		return domain.Turn{}, fmt.Errorf("chat: %w", domain.ErrBusy)
	}
	c.state = StateSending

	t := newTurn(domain.SenderUser, question, false)
	c.history = append(c.history, t)
	return t, nil
}

// finish records the assistant turn and releases the controller.
func (c *Controller) finish(t domain.Turn) domain.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.history = append(c.history, t)
	c.state = StateIdle
	return t
}

func (c *Controller) publish(ctx context.Context, t domain.Turn) {
	if c.publisher == nil {
		return
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := c.publisher.Publish(ctx, TurnsChannel, payload); err != nil {
		c.logger.WarnContext(ctx, "publish turn failed",
			slog.String("turn_id", t.ID),
			slog.String("error", err.Error()),
		)
	}
}

func newTurn(sender domain.Sender, content string, failed bool) domain.Turn {
	return domain.Turn{
		ID:        uuid.NewString(),
		Sender:    sender,
		Content:   content,
		Failed:    failed,
		CreatedAt: time.Now().UTC(),
	}
}
