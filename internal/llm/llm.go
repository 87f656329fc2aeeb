// Package llm calls AI reviewers and fans a prompt out to several of them.
package llm

import (
	"context"
	"errors"
)

// Provider is one AI backend. Complete returns the model's raw text reply.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrEmptyResponse is returned when a provider replies without any text.
var ErrEmptyResponse = errors.New("no text content in response")

// maxTokens bounds every completion. Conflict resolutions echo a whole file
// back, so this is sized for that rather than for reviews.
const maxTokens = 8192
