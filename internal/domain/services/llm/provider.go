package llm

import (
	"context"
)

// DeltaFunc receives each incremental text fragment as it streams from
// the provider. Returning a non-nil error stops the stream; providers
// treat it as a deliberate early stop, not a failure.
type DeltaFunc func(text string) error

// ErrStop is the sentinel a DeltaFunc returns to end a stream early.
// Providers swallow it and return nil.
var ErrStop = stopError{}

type stopError struct{}

func (stopError) Error() string { return "stream stopped by consumer" }

// StreamRequest describes one text-generation call: system instructions
// and prompt in, token deltas out. Everything about the model's internals
// stays behind this boundary.
type StreamRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature *float32
}

// GetMaxTokens returns the requested token budget or the fallback.
func (r *StreamRequest) GetMaxTokens(fallback int) int {
	if r.MaxTokens > 0 {
		return r.MaxTokens
	}
	return fallback
}

// Provider defines the interface that all generation providers implement.
// This abstraction allows multiple providers (Anthropic, OpenAI, mock)
// behind a consistent interface.
type Provider interface {
	// StreamText streams text deltas for the request through fn. It
	// returns once the stream finishes, fn returns ErrStop, or ctx is
	// cancelled.
	StreamText(ctx context.Context, req *StreamRequest, fn DeltaFunc) error

	// Name returns the provider name (e.g., "anthropic", "openai")
	Name() string

	// SupportsModel returns true if the provider supports the given model.
	SupportsModel(model string) bool
}
