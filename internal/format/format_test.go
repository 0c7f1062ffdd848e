package format

import (
	"math"
	"strings"
	"testing"

	"github.com/alanyoungcy/marketchat/internal/domain"
	"github.com/go-playground/assert/v2"
)

func TestFormatVolume(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{name: "plain dollars", in: 250, want: "$250"},
		{name: "thousands", in: 2_500, want: "$2.5K"},
		{name: "millions", in: 3_400_000, want: "$3.4M"},
		{name: "zero", in: 0, want: "$0"},
		{name: "exactly one thousand", in: 1_000, want: "$1000"},
		{name: "exactly one million", in: 1_000_000, want: "$1000.0K"},
		{name: "negative", in: -5, want: "$0"},
		{name: "nan", in: math.NaN(), want: "$0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatVolume(tt.in))
		})
	}
}

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		price float64
		want  Sentiment
	}{
		{0.65, SentimentFavored},
		{0.35, SentimentUnderdog},
		{0.5, SentimentNeutral},
		{0.6, SentimentNeutral},
		{0.4, SentimentNeutral},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyOutcome(tt.price))
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "65.0%", FormatPercent(0.65))
	assert.Equal(t, "12.3%", FormatPercent(0.123))
	assert.Equal(t, "0.0%", FormatPercent(math.NaN()))
}

func TestFormatAnswer(t *testing.T) {
	markets := []domain.Market{
		{
			ID:    "m1",
			Title: "Bitcoin above 100k by June",
			Outcomes: []domain.Outcome{
				{Name: "Yes", Price: 0.65},
				{Name: "No", Price: 0.35},
			},
			Volume24h:   2_500,
			VolumeTotal: 3_400_000,
			Liquidity:   250,
		},
	}

	got := FormatAnswer("  Bitcoin looks likely.  ", markets)

	want := "Bitcoin looks likely.\n\n" +
		"Bitcoin above 100k by June\n" +
		"  Yes: 65.0% (favored)\n" +
		"  No: 35.0% (underdog)\n" +
		"  24h Volume: $2.5K | Total Volume: $3.4M | Liquidity: $250"
	assert.Equal(t, want, got)
}

func TestFormatAnswer_MissingFields(t *testing.T) {
	got := FormatAnswer("answer", []domain.Market{{ID: "x"}})

	assert.Equal(t, true, strings.Contains(got, "Untitled market"))
	assert.Equal(t, true, strings.Contains(got, "24h Volume: $0 | Total Volume: $0 | Liquidity: $0"))
}

func TestCards(t *testing.T) {
	cards := Cards([]domain.Market{
		{ID: "a", Title: "A", Outcomes: []domain.Outcome{{Name: "Yes", Price: 0.5}}},
		{ID: "b", Title: "B"},
	})

	assert.Equal(t, 2, len(cards))
	assert.Equal(t, "a", cards[0].ID)
	assert.Equal(t, SentimentNeutral, cards[0].Outcomes[0].Sentiment)
	assert.Equal(t, "50.0%", cards[0].Outcomes[0].Percent)
	assert.Equal(t, 0, len(cards[1].Outcomes))
}
