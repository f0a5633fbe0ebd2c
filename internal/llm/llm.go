// Package llm wraps text-generation backends behind a prompt-in, text-out
// interface. Every backend generates deterministically (temperature 0).
package llm

import "context"

// Generator produces a single completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Model names the generation model.
	Model() string
}

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
