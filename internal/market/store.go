// Package market owns the in-memory market snapshot and the sources it is
// loaded from.
package market

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/alanyoungcy/marketchat/internal/domain"
)

// Store is the ordered, read-only market list loaded once at startup. A
// Store built with Failed holds no markets and reports the load error.
type Store struct {
	markets  []domain.Market
	byID     map[string]int
	loadedAt time.Time
	source   string
	err      error
}

// Load fetches and decodes the snapshot from src.
func Load(ctx context.Context, src Source) (*Store, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("market: load %s: %w", src.String(), err)
	}
	markets, err := DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("market: load %s: %w", src.String(), err)
	}

	s := NewStore(markets)
	s.source = src.String()
	return s, nil
}

// NewStore builds a Store over markets. The slice is copied.
func NewStore(markets []domain.Market) *Store {
	s := &Store{
		markets:  slices.Clone(markets),
		byID:     make(map[string]int, len(markets)),
		loadedAt: time.Now().UTC(),
	}
	for i, m := range s.markets {
		if m.ID == "" {
			continue
		}
		// first entry wins on duplicate IDs
		if _, ok := s.byID[m.ID]; !ok {
			s.byID[m.ID] = i
		}
	}
	return s
}

// Failed returns an empty Store recording why loading failed.
func Failed(source string, err error) *Store {
	return &Store{byID: map[string]int{}, source: source, err: err}
}

// Markets returns a copy of every market in snapshot order.
func (s *Store) Markets() []domain.Market {
	out := make([]domain.Market, len(s.markets))
	for i, m := range s.markets {
		m.Outcomes = slices.Clone(m.Outcomes)
		out[i] = m
	}
	return out
}

// Get returns the market with id, or domain.ErrNotFound.
func (s *Store) Get(id string) (domain.Market, error) {
	i, ok := s.byID[id]
	if !ok {
		return domain.Market{}, fmt.Errorf("market %q: %w", id, domain.ErrNotFound)
	}
	m := s.markets[i]
	m.Outcomes = slices.Clone(m.Outcomes)
	return m, nil
}

// Len returns the number of markets.
func (s *Store) Len() int { return len(s.markets) }

// LoadedAt returns when the snapshot was loaded. Zero for a failed store.
func (s *Store) LoadedAt() time.Time { return s.loadedAt }

// Source returns the snapshot location.
func (s *Store) Source() string { return s.source }

// Err returns the load error for a store built with Failed.
func (s *Store) Err() error { return s.err }
