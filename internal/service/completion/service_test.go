package completion

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/config"
	domainllm "inkwell/internal/domain/services/llm"
	"inkwell/internal/service/llm"
)

// countingProvider replays deltas and counts how many requests reached it.
type countingProvider struct {
	deltas []string
	calls  atomic.Int64
}

func (p *countingProvider) StreamText(ctx context.Context, req *domainllm.StreamRequest, fn domainllm.DeltaFunc) error {
	p.calls.Add(1)
	for _, d := range p.deltas {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(d); err != nil {
			if err == domainllm.ErrStop {
				return nil
			}
			return err
		}
	}
	return nil
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) SupportsModel(model string) bool { return true }

// threadSafeSink collects frames from concurrent requests.
type threadSafeSink struct {
	mu     sync.Mutex
	frames []SuggestionFrame
}

func (s *threadSafeSink) Send(frame SuggestionFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return nil
}

func (s *threadSafeSink) snapshot() []SuggestionFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SuggestionFrame(nil), s.frames...)
}

func newCompletionService(deltas []string, debounce time.Duration) (*Service, *countingProvider) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := &countingProvider{deltas: deltas}
	registry := llm.NewRegistry([]domainllm.Provider{provider}, logger)

	cfg := &config.Config{
		CompletionModel: "counting-1",
		Completion: config.CompletionConfig{
			Debounce:   debounce,
			MinContext: 4,
			MaxLength:  100,
			MaxTokens:  32,
		},
	}
	return NewService(registry, cfg, logger), provider
}

func TestSuggestBelowMinimumContext(t *testing.T) {
	svc, provider := newCompletionService([]string{"x"}, 0)

	err := svc.Suggest(context.Background(), "s1", &Request{Prefix: "ab"}, &threadSafeSink{})
	assert.ErrorIs(t, err, ErrBelowMinimumContext)
	assert.Zero(t, provider.calls.Load(), "gated trigger must not reach the provider")
}

func TestSuggestStreamsUntilStopRule(t *testing.T) {
	svc, _ := newCompletionService([]string{"The end", " is near. more text"}, 0)
	sink := &threadSafeSink{}

	err := svc.Suggest(context.Background(), "s1", &Request{
		Prefix: "Some paragraph in progress ",
		Class:  ClassText,
	}, sink)
	require.NoError(t, err)

	frames := sink.snapshot()
	require.NotEmpty(t, frames)
	assert.Equal(t, "finish", frames[len(frames)-1].Type)

	var text string
	for _, f := range frames[:len(frames)-1] {
		assert.Equal(t, "suggestion-delta", f.Type)
		text += f.Content
	}
	assert.Equal(t, "The end is near.", text, "suggestion must cut at the sentence boundary")
}

func TestSuggestDebounceSupersedes(t *testing.T) {
	svc, provider := newCompletionService([]string{"continuation text"}, 60*time.Millisecond)
	sink := &threadSafeSink{}

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- svc.Suggest(context.Background(), "s1", &Request{Prefix: "first trigger "}, sink)
	}()

	// Second trigger lands inside the first one's debounce window
	time.Sleep(15 * time.Millisecond)
	err := svc.Suggest(context.Background(), "s1", &Request{Prefix: "second trigger "}, sink)
	require.NoError(t, err)

	assert.ErrorIs(t, <-firstErr, ErrSuperseded)
	assert.EqualValues(t, 1, provider.calls.Load(), "only the later trigger may reach the provider")
}

func TestSuggestIndependentSessions(t *testing.T) {
	svc, provider := newCompletionService([]string{"short answer. x"}, 10*time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, sessionID := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(i int, sessionID string) {
			defer wg.Done()
			errs[i] = svc.Suggest(context.Background(), sessionID, &Request{Prefix: "typing away "}, &threadSafeSink{})
		}(i, sessionID)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.EqualValues(t, 2, provider.calls.Load(), "sessions must not supersede each other")
}

func TestCancelAbortsInFlight(t *testing.T) {
	svc, provider := newCompletionService([]string{"never shown"}, 60*time.Millisecond)

	result := make(chan error, 1)
	go func() {
		result <- svc.Suggest(context.Background(), "s1", &Request{Prefix: "typing away "}, &threadSafeSink{})
	}()

	time.Sleep(15 * time.Millisecond)
	svc.Cancel("s1")

	assert.ErrorIs(t, <-result, ErrSuperseded)
	assert.Zero(t, provider.calls.Load())
}

func TestSuggestDefaultsToTextClass(t *testing.T) {
	svc, _ := newCompletionService([]string{"one sentence. two"}, 0)
	sink := &threadSafeSink{}

	err := svc.Suggest(context.Background(), "s1", &Request{Prefix: "write more here "}, sink)
	require.NoError(t, err)

	var text string
	for _, f := range sink.snapshot() {
		if f.Type == "suggestion-delta" {
			text += f.Content
		}
	}
	assert.Equal(t, "one sentence.", text)
}
