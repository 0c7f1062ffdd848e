// Package relevance ranks markets against a free-text query using keyword
// and category heuristics. Scoring is a linear pass over the market list.
package relevance

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/alanyoungcy/marketchat/internal/domain"
)

const (
	// DefaultLimit is the number of markets returned when no limit is given.
	DefaultLimit = 6
	// FallbackLimit caps the volume-ranked fallback list.
	FallbackLimit = 5
)

// Weights holds the scoring constants.
type Weights struct {
	TitleToken       int
	DescriptionToken int
	CategoryKeyword  int
	// MinTokenRunes is the shortest query word that counts as a token.
	MinTokenRunes int

	VolumeTier1      float64
	VolumeTier1Bonus int
	VolumeTier2      float64
	VolumeTier2Bonus int
}

// DefaultWeights returns the standard scoring constants.
func DefaultWeights() Weights {
	return Weights{
		TitleToken:       10,
		DescriptionToken: 5,
		CategoryKeyword:  15,
		MinTokenRunes:    3,
		VolumeTier1:      1_000_000,
		VolumeTier1Bonus: 3,
		VolumeTier2:      5_000_000,
		VolumeTier2Bonus: 2,
	}
}

// Scorer selects the markets most relevant to a query.
type Scorer struct {
	table   Table
	weights Weights
}

// NewScorer creates a Scorer over the given keyword table and weights.
func NewScorer(table Table, weights Weights) *Scorer {
	return &Scorer{table: table.clone(), weights: weights}
}

// defaultScorer backs the package-level SelectRelevantMarkets.
var defaultScorer = NewScorer(defaultTable, DefaultWeights())

// SelectRelevantMarkets ranks markets against query with the built-in table
// and weights. See Scorer.Select.
func SelectRelevantMarkets(query string, markets []domain.Market, limit int) []domain.Market {
	return defaultScorer.Select(query, markets, limit)
}

// Score is the per-market breakdown for one query.
type Score struct {
	// Match is the token and category part of the score. A market is
	// relevant only when Match > 0.
	Match int
	// Volume is the 24h-volume bonus.
	Volume int
}

// Total returns the ranking score.
func (s Score) Total() int { return s.Match + s.Volume }

// Select returns up to limit markets ordered from most to least relevant.
// Markets with a token or category hit are ranked by total score; ties keep
// their original order. When no market has a hit it falls back to the
// FallbackLimit markets with the highest positive 24h volume. A limit <= 0
// means DefaultLimit.
func (s *Scorer) Select(query string, markets []domain.Market, limit int) []domain.Market {
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := s.newQuery(query)

	type ranked struct {
		market domain.Market
		score  int
	}
	var hits []ranked
	for _, m := range markets {
		sc := s.score(q, m)
		if sc.Match > 0 {
			hits = append(hits, ranked{market: m, score: sc.Total()})
		}
	}

	if len(hits) == 0 {
		return fallback(markets)
	}

	slices.SortStableFunc(hits, func(a, b ranked) int {
		return cmp.Compare(b.score, a.score)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Market, len(hits))
	for i, h := range hits {
		out[i] = h.market
	}
	return out
}

// ScoreMarket returns the score breakdown of a single market for query.
func (s *Scorer) ScoreMarket(query string, m domain.Market) Score {
	return s.score(s.newQuery(query), m)
}

// parsedQuery is the normalized form of a user question.
type parsedQuery struct {
	text     string
	tokens   []string
	keywords []string // table phrases present in text
}

func (s *Scorer) newQuery(raw string) parsedQuery {
	q := parsedQuery{text: strings.ToLower(raw)}

	for _, w := range strings.Fields(q.text) {
		if utf8.RuneCountInString(w) >= s.weights.MinTokenRunes {
			q.tokens = append(q.tokens, w)
		}
	}

	if q.text == "" {
		return q
	}
	for _, c := range s.table {
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(q.text, kw) {
				q.keywords = append(q.keywords, kw)
			}
		}
	}
	return q
}

func (s *Scorer) score(q parsedQuery, m domain.Market) Score {
	title := strings.ToLower(m.Title)
	desc := strings.ToLower(m.Description)

	var sc Score
	for _, tok := range q.tokens {
		if strings.Contains(title, tok) {
			sc.Match += s.weights.TitleToken
		}
		if strings.Contains(desc, tok) {
			sc.Match += s.weights.DescriptionToken
		}
	}

	// A phrase listed under several categories scores once per listing.
	for _, kw := range q.keywords {
		if strings.Contains(title, kw) || strings.Contains(desc, kw) {
			sc.Match += s.weights.CategoryKeyword
		}
	}

	if m.Volume24h > s.weights.VolumeTier1 {
		sc.Volume += s.weights.VolumeTier1Bonus
	}
	if m.Volume24h > s.weights.VolumeTier2 {
		sc.Volume += s.weights.VolumeTier2Bonus
	}
	return sc
}

// fallback returns the highest 24h-volume markets with positive volume.
func fallback(markets []domain.Market) []domain.Market {
	var out []domain.Market
	for _, m := range markets {
		if m.Volume24h > 0 {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Market) int {
		return cmp.Compare(b.Volume24h, a.Volume24h)
	})
	if len(out) > FallbackLimit {
		out = out[:FallbackLimit]
	}
	return out
}
