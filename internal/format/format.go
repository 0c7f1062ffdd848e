// Package format renders model answers and market summary cards for display.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/alanyoungcy/marketchat/internal/domain"
)

// Sentiment tags an outcome for presentation. It plays no part in scoring.
type Sentiment string

const (
	SentimentFavored  Sentiment = "favored"
	SentimentUnderdog Sentiment = "underdog"
	SentimentNeutral  Sentiment = "neutral"
)

// ClassifyOutcome tags a price above 0.6 as favored and below 0.4 as
// underdog.
func ClassifyOutcome(price float64) Sentiment {
	switch {
	case price > 0.6:
		return SentimentFavored
	case price < 0.4:
		return SentimentUnderdog
	default:
		return SentimentNeutral
	}
}

// FormatVolume renders a dollar amount with an M or K suffix. Zero, negative
// and NaN values render as "$0".
func FormatVolume(v float64) string {
	switch {
	case math.IsNaN(v) || v <= 0:
		return "$0"
	case v > 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v > 1_000:
		return fmt.Sprintf("$%.1fK", v/1_000)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

// FormatPercent renders a [0,1] price as a percentage with one decimal.
func FormatPercent(price float64) string {
	if math.IsNaN(price) {
		price = 0
	}
	return fmt.Sprintf("%.1f%%", price*100)
}

// OutcomeCard is the display form of one outcome.
type OutcomeCard struct {
	Name      string    `json:"name"`
	Percent   string    `json:"percent"`
	Sentiment Sentiment `json:"sentiment"`
}

// Card is the display form of one market.
type Card struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Outcomes    []OutcomeCard `json:"outcomes"`
	Volume24h   string        `json:"volume_24h"`
	VolumeTotal string        `json:"volume_total"`
	Liquidity   string        `json:"liquidity"`
	EndTime     string        `json:"end_time,omitempty"`
}

// NewCard builds the display card for m.
func NewCard(m domain.Market) Card {
	c := Card{
		ID:          m.ID,
		Title:       m.Title,
		Outcomes:    make([]OutcomeCard, 0, len(m.Outcomes)),
		Volume24h:   FormatVolume(m.Volume24h),
		VolumeTotal: FormatVolume(m.VolumeTotal),
		Liquidity:   FormatVolume(m.Liquidity),
		EndTime:     m.EndTime,
	}
	for _, o := range m.Outcomes {
		c.Outcomes = append(c.Outcomes, OutcomeCard{
			Name:      o.Name,
			Percent:   FormatPercent(o.Price),
			Sentiment: ClassifyOutcome(o.Price),
		})
	}
	return c
}

// Cards builds one card per market, preserving order.
func Cards(markets []domain.Market) []Card {
	out := make([]Card, len(markets))
	for i, m := range markets {
		out[i] = NewCard(m)
	}
	return out
}

// FormatAnswer appends a text card for every market after the model answer.
func FormatAnswer(modelText string, markets []domain.Market) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(modelText))

	for _, m := range markets {
		sb.WriteString("\n\n")
		writeCard(&sb, NewCard(m))
	}
	return sb.String()
}

func writeCard(sb *strings.Builder, c Card) {
	title := c.Title
	if title == "" {
		title = "Untitled market"
	}
	fmt.Fprintf(sb, "%s\n", title)
	for _, o := range c.Outcomes {
		fmt.Fprintf(sb, "  %s: %s (%s)\n", o.Name, o.Percent, o.Sentiment)
	}
	fmt.Fprintf(sb, "  24h Volume: %s | Total Volume: %s | Liquidity: %s",
		c.Volume24h, c.VolumeTotal, c.Liquidity)
}
