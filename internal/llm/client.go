// Package llm adapts hosted language-model APIs to domain.Completer.
package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/marketchat/internal/domain"
)

// Config selects and parameterises a model client.
type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// New returns the Completer for cfg.Provider. An empty provider selects the
// OpenAI-compatible client.
func New(cfg Config) (domain.Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return NewOpenAIClient(cfg), nil
	case "anthropic":
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
