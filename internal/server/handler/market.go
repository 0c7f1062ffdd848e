package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketchat/internal/domain"
)

// MarketStore defines what the market handler reads. It is declared locally
// so the handler package does not depend on the concrete store.
type MarketStore interface {
	Markets() []domain.Market
	Get(id string) (domain.Market, error)
	Err() error
}

// Selector ranks markets against a free-text query.
type Selector interface {
	Select(query string, markets []domain.Market, limit int) []domain.Market
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	store    MarketStore
	selector Selector
	limit    int
	logger   *slog.Logger
}

// NewMarketHandler creates a MarketHandler. selector may be nil, which
// disables the ?q= filter.
func NewMarketHandler(store MarketStore, selector Selector, limit int, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		store:    store,
		selector: selector,
		limit:    limit,
		logger:   logHandler(logger, "market"),
	}
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Total   int             `json:"total"`
	Query   string          `json:"query,omitempty"`
}

// ListMarkets returns every market in snapshot order. With ?q= it returns
// the markets the relevance scorer would send to the model for that
// question.
// GET /api/markets?q=...
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Err(); err != nil {
		writeError(w, http.StatusServiceUnavailable, domain.ErrUnavailable.Error())
		return
	}

	markets := h.store.Markets()

	q := r.URL.Query().Get("q")
	if q != "" && h.selector != nil {
		markets = h.selector.Select(q, markets, h.limit)
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Total:   len(markets),
		Query:   q,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Err(); err != nil {
		writeError(w, http.StatusServiceUnavailable, domain.ErrUnavailable.Error())
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	m, err := h.store.Get(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, m)
}
