package relevance

import (
	"fmt"
	"testing"

	"github.com/alanyoungcy/marketchat/internal/domain"
	"github.com/go-playground/assert/v2"
)

func ids(markets []domain.Market) []string {
	out := make([]string, len(markets))
	for i, m := range markets {
		out[i] = m.ID
	}
	return out
}

func TestSelect_EmptyTextFieldsDoNotFail(t *testing.T) {
	markets := []domain.Market{
		{ID: "a"},
		{ID: "b", Volume24h: 10},
		{ID: "c", Outcomes: nil},
	}

	first := SelectRelevantMarkets("will bitcoin hit 100k", markets, 6)
	second := SelectRelevantMarkets("will bitcoin hit 100k", markets, 6)

	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, []string{"b"}, ids(first))
}

func TestSelect_PremierLeagueOutranksFed(t *testing.T) {
	markets := []domain.Market{
		{ID: "fed", Title: "Fed interest rate decision", Volume24h: 9_000_000},
		{ID: "mci", Title: "Manchester City to win Premier League"},
	}

	got := SelectRelevantMarkets("who will win the premier league", markets, 6)

	assert.NotEqual(t, 0, len(got))
	assert.Equal(t, "mci", got[0].ID)
	for i, m := range got {
		if m.ID == "fed" && i == 0 {
			t.Fatalf("fed market ranked first: %v", ids(got))
		}
	}
}

func TestSelect_FallbackOrdersByVolume(t *testing.T) {
	markets := []domain.Market{
		{ID: "zero", Title: "Market A", Volume24h: 0},
		{ID: "two-million", Title: "Market B", Volume24h: 2_000_000},
		{ID: "half-million", Title: "Market C", Volume24h: 500_000},
	}

	got := SelectRelevantMarkets("aliens landing tomorrow", markets, 6)

	assert.Equal(t, []string{"two-million", "half-million"}, ids(got))
}

func TestSelect_FallbackCapsAtFive(t *testing.T) {
	var markets []domain.Market
	for i := 1; i <= 8; i++ {
		markets = append(markets, domain.Market{ID: fmt.Sprintf("m%d", i), Volume24h: float64(i * 100)})
	}

	got := SelectRelevantMarkets("", markets, 6)

	assert.Equal(t, []string{"m8", "m7", "m6", "m5", "m4"}, ids(got))
}

func TestSelect_EmptyQueryFallsBack(t *testing.T) {
	markets := []domain.Market{
		{ID: "a", Title: "Bitcoin above 100k", Volume24h: 50},
		{ID: "b", Title: "Ethereum above 5k", Volume24h: 75},
	}

	got := SelectRelevantMarkets("", markets, 6)

	assert.Equal(t, []string{"b", "a"}, ids(got))
}

func TestSelect_RespectsLimitHighestFirst(t *testing.T) {
	markets := []domain.Market{
		{ID: "low", Title: "Bitcoin price", Volume24h: 0},
		{ID: "mid", Title: "Bitcoin price", Volume24h: 2_000_000},
		{ID: "high", Title: "Bitcoin price", Volume24h: 6_000_000},
		{ID: "desc", Description: "bitcoin related"},
		{ID: "other", Title: "Bitcoin price"},
	}

	got := SelectRelevantMarkets("bitcoin", markets, 3)

	assert.Equal(t, 3, len(got))
	assert.Equal(t, []string{"high", "mid", "low"}, ids(got))
}

func TestSelect_TiesKeepOriginalOrder(t *testing.T) {
	markets := []domain.Market{
		{ID: "first", Title: "Ethereum ETF approval"},
		{ID: "second", Title: "Ethereum ETF approval"},
		{ID: "third", Title: "Ethereum ETF approval"},
	}

	got := SelectRelevantMarkets("ethereum etf", markets, 2)

	assert.Equal(t, []string{"first", "second"}, ids(got))
}

func TestSelect_DefaultLimit(t *testing.T) {
	var markets []domain.Market
	for i := 0; i < 10; i++ {
		markets = append(markets, domain.Market{ID: fmt.Sprintf("m%d", i), Title: "Super Bowl winner"})
	}

	got := SelectRelevantMarkets("super bowl", markets, 0)

	assert.Equal(t, DefaultLimit, len(got))
	assert.Equal(t, "m0", got[0].ID)
}

func TestScoreMarket(t *testing.T) {
	s := NewScorer(DefaultTable(), DefaultWeights())

	tests := []struct {
		name   string
		query  string
		market domain.Market
		want   Score
	}{
		{
			name:   "title and description tokens",
			query:  "tesla deliveries",
			market: domain.Market{Title: "Tesla Q3 deliveries", Description: "Resolves on tesla filings"},
			// tesla: title 10 + desc 5 + keyword 15; deliveries: title 10
			want: Score{Match: 40},
		},
		{
			name:   "category keywords stack",
			query:  "bitcoin ethereum flippening",
			market: domain.Market{Title: "Bitcoin vs Ethereum"},
			want:   Score{Match: 50},
		},
		{
			name:   "short words ignored",
			query:  "is it up",
			market: domain.Market{Title: "is it up or down"},
			want:   Score{},
		},
		{
			name:   "volume tier one",
			query:  "anything",
			market: domain.Market{Volume24h: 2_000_000},
			want:   Score{Volume: 3},
		},
		{
			name:   "volume tier two",
			query:  "anything",
			market: domain.Market{Volume24h: 6_000_000},
			want:   Score{Volume: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ScoreMarket(tt.query, tt.market))
		})
	}
}

func TestSelect_VolumeBonusAloneDoesNotQualify(t *testing.T) {
	markets := []domain.Market{
		{ID: "busy", Title: "Unrelated", Volume24h: 7_000_000},
		{ID: "match", Title: "Oscars best picture", Volume24h: 10},
	}

	got := SelectRelevantMarkets("oscars best picture", markets, 6)

	assert.Equal(t, []string{"match"}, ids(got))
}

func TestSelect_CustomWeights(t *testing.T) {
	w := DefaultWeights()
	w.DescriptionToken = 50
	s := NewScorer(DefaultTable(), w)

	markets := []domain.Market{
		{ID: "title", Title: "Drought declared"},
		{ID: "desc", Description: "drought declared"},
	}

	assert.Equal(t, []string{"desc", "title"}, ids(s.Select("drought declared", markets, 6)))
}
