package lorem

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	domainllm "inkwell/internal/domain/services/llm"
)

// Provider is a mock generation provider that streams lorem ipsum text.
// Used for development and tests without requiring real API keys.
type Provider struct {
	generator *loremgen.Lorem
}

// NewProvider creates a new lorem ipsum provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
// Example models: "lorem-fast", "lorem-slow"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// StreamText streams lorem ipsum word by word, pacing by model name.
func (p *Provider) StreamText(ctx context.Context, req *domainllm.StreamRequest, fn domainllm.DeltaFunc) error {
	if !p.SupportsModel(req.Model) {
		return fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	// 1 token ≈ 4 characters
	targetChars := req.GetMaxTokens(256) * 4
	delay := streamDelay(req.Model)

	var emitted int
	for emitted < targetChars {
		sentence := p.generator.Sentence(5, 12)
		for _, word := range strings.Fields(sentence) {
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			chunk := word + " "
			emitted += len(chunk)
			if err := fn(chunk); err != nil {
				if errors.Is(err, domainllm.ErrStop) {
					return nil
				}
				return err
			}
			if emitted >= targetChars {
				break
			}
		}
		if err := fn("\n"); err != nil {
			if errors.Is(err, domainllm.ErrStop) {
				return nil
			}
			return err
		}
		emitted++
	}

	return nil
}

// streamDelay returns the delay between words based on the model name.
//   - lorem-slow: 2 words/second
//   - lorem-fast: 30 words/second
//   - lorem-instant: no delay (tests)
func streamDelay(model string) time.Duration {
	switch {
	case strings.Contains(model, "instant"):
		return 0
	case strings.Contains(model, "slow"):
		return 500 * time.Millisecond
	case strings.Contains(model, "fast"):
		return 33 * time.Millisecond
	default:
		return 100 * time.Millisecond
	}
}
