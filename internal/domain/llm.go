package domain

import "context"

// Completion is a single prompt sent to a language model.
type Completion struct {
	System string
	Prompt string
}

// Completer sends a prompt to a language model and returns its text answer.
type Completer interface {
	Complete(ctx context.Context, req Completion) (string, error)
	Name() string
}
