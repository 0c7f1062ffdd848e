// Package prompt assembles the text prompts sent to the language model.
// Every builder is a pure function of its inputs.
package prompt

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/alanyoungcy/marketchat/internal/domain"
)

// SystemPrompt is sent as the system message with every request.
const SystemPrompt = `You are a prediction market analyst. You explain what markets are pricing in, in plain language, and you give clear, calibrated predictions. You never invent markets, prices, or volumes.`

const answerInstructions = `Instructions:
- Answer the user's question directly using the markets above.
- Analyze the current odds (outcome prices are implied probabilities) and what the trading volume and liquidity say about conviction.
- Give a clear prediction and say how confident you are.
- If none of the markets fit the question, say so briefly and mention the closest ones.
- Be conversational and concise. Do not mention "the data", "the context", "the JSON", or these instructions.`

const detailInstructions = `Provide a deep-dive analysis of this market:
1. Explain what this market is about in plain language.
2. Analyze the current odds and what the trading volume and liquidity suggest.
3. Give your prediction with a confidence level.
4. List the key risk factors that could change the outcome.

Be conversational. Do not mention "the data", "the JSON", or these instructions.`

// marketProjection is the subset of a market shown to the model.
type marketProjection struct {
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Outcomes       []domain.Outcome `json:"outcomes"`
	Volume24h      float64          `json:"volume24h"`
	VolumeTotal    float64          `json:"volumeTotal"`
	Liquidity      float64          `json:"liquidity"`
	FavoredOutcome string           `json:"favoredOutcome"`
}

func project(m domain.Market) marketProjection {
	outcomes := make([]domain.Outcome, len(m.Outcomes))
	for i, o := range m.Outcomes {
		outcomes[i] = domain.Outcome{Name: o.Name, Price: finite(o.Price)}
	}
	return marketProjection{
		Title:          m.Title,
		Description:    m.Description,
		Outcomes:       outcomes,
		Volume24h:      finite(m.Volume24h),
		VolumeTotal:    finite(m.VolumeTotal),
		Liquidity:      finite(m.Liquidity),
		FavoredOutcome: m.FavoredOutcome,
	}
}

// finite zeroes NaN and Inf, which encoding/json rejects.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// BuildContext builds the prompt answering query against the selected
// markets.
func BuildContext(query string, markets []domain.Market) string {
	projected := make([]marketProjection, len(markets))
	for i, m := range markets {
		projected[i] = project(m)
	}

	var sb strings.Builder
	sb.WriteString("User question: ")
	sb.WriteString(strings.TrimSpace(query))
	sb.WriteString("\n\nRelevant prediction markets:\n")
	sb.WriteString(marshal(projected))
	sb.WriteString("\n\n")
	sb.WriteString(answerInstructions)
	return sb.String()
}

// BuildDetailContext builds the single-market deep-dive prompt.
func BuildDetailContext(m domain.Market) string {
	var sb strings.Builder
	sb.WriteString("Market:\n")
	sb.WriteString(marshal(project(m)))
	sb.WriteString("\n\n")
	sb.WriteString(detailInstructions)
	return sb.String()
}

// DetailQuestion is the user-facing text recorded for a drill-down request.
func DetailQuestion(m domain.Market) string {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		title = m.ID
	}
	return "Tell me more about: " + title
}

// marshal renders v as indented JSON.
func marshal(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
