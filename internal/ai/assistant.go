package ai

import (
	"context"
	"errors"
)

// ErrRejected marks a model-level rejection (safety block, empty completion).
// Callers must not retry it; only transient transport errors are retryable.
var ErrRejected = errors.New("rejected by model")

// Generator is the AI backend capability. The outreach generator consumes it
// and never reaches a global client.
type Generator interface {
	// GenerateContent sends the prompt and returns the textual completion.
	GenerateContent(ctx context.Context, prompt string) (string, error)
	// Healthy reports whether the backend is currently reachable.
	Healthy(ctx context.Context) bool
	// Model returns the configured model identifier for logging.
	Model() string
}
