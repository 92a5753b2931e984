// Package completion implements the inline ghost-text engine. It is
// independent of the versioning stack: suggestions are ephemeral, at most
// one request is in flight per editing session, and nothing here ever
// touches the version store.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	domainllm "inkwell/internal/domain/services/llm"
	"inkwell/internal/service/llm"
)

// Sentinel results for triggers that legitimately produce no suggestion.
var (
	// ErrBelowMinimumContext gates triggers on very short context.
	ErrBelowMinimumContext = errors.New("context below minimum length")

	// ErrSuperseded reports that newer editing activity cancelled this
	// request before or during generation.
	ErrSuperseded = errors.New("superseded by newer activity")
)

// Sink receives suggestion events in order.
type Sink interface {
	Send(event SuggestionFrame) error
}

// SuggestionFrame is one event of the completion stream.
type SuggestionFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Request is one completion trigger: the text around the cursor within
// the current block, and the block's content class.
type Request struct {
	Prefix string     `json:"prefix"`
	Suffix string     `json:"suffix"`
	Class  BlockClass `json:"blockClass"`
}

// sessionState models each session explicitly:
// Idle → Debouncing → Requesting → Displaying, back to Idle on supersede.
type sessionState int

const (
	stateIdle sessionState = iota
	stateDebouncing
	stateRequesting
	stateDisplaying
)

// session tracks the single in-flight request for one editing session.
// generation is a monotonic counter: a request whose generation is no
// longer current has been superseded, regardless of timing.
type session struct {
	state      sessionState
	generation uint64
	cancel     context.CancelFunc
}

// Service produces inline completions with debounce,
// supersede-on-new-activity, and content-aware early stops.
type Service struct {
	providers *llm.Registry
	cfg       config.CompletionConfig
	model     string
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewService creates a completion service.
func NewService(providers *llm.Registry, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		providers: providers,
		cfg:       cfg.Completion,
		model:     cfg.CompletionModel,
		logger:    logger,
		sessions:  make(map[string]*session),
	}
}

// begin supersedes any in-flight request for the session and registers a
// new one. It returns the request's generation and a context owned by it.
func (s *Service) begin(ctx context.Context, sessionID string) (uint64, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[sessionID]
	if sess == nil {
		sess = &session{}
		s.sessions[sessionID] = sess
	}

	if sess.cancel != nil {
		sess.cancel()
	}

	sess.generation++
	reqCtx, cancel := context.WithCancel(ctx)
	sess.cancel = cancel
	sess.state = stateDebouncing

	return sess.generation, reqCtx
}

// advance moves the session to next iff the request is still current.
func (s *Service) advance(sessionID string, generation uint64, next sessionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[sessionID]
	if sess == nil || sess.generation != generation {
		return false
	}
	sess.state = next
	return true
}

// Cancel supersedes without starting a new request: the caller's cursor
// moved or typing resumed past the suggestion. Rejection needs nothing
// beyond this.
func (s *Service) Cancel(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions[sessionID]
	if sess == nil {
		return
	}
	if sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}
	sess.generation++
	sess.state = stateIdle
}

// Suggest runs one completion request for the session. It debounces,
// streams deltas through sink until a stop rule fires, and ends with a
// finish frame. Newer activity on the same session cancels it at any
// point; the superseded request returns ErrSuperseded after its channel
// is aborted.
func (s *Service) Suggest(ctx context.Context, sessionID string, req *Request, sink Sink) error {
	if len(req.Prefix) < s.cfg.MinContext {
		return ErrBelowMinimumContext
	}

	class := req.Class
	if class == "" {
		class = ClassText
	}

	generation, reqCtx := s.begin(ctx, sessionID)

	select {
	case <-time.After(s.cfg.Debounce):
	case <-reqCtx.Done():
		return ErrSuperseded
	}

	if !s.advance(sessionID, generation, stateRequesting) {
		return ErrSuperseded
	}

	provider, err := s.providers.ForModel(s.model)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	var accumulated string
	streamErr := provider.StreamText(reqCtx, &domainllm.StreamRequest{
		Model:     s.model,
		System:    completionSystem(class),
		Prompt:    completionPrompt(req),
		MaxTokens: s.cfg.MaxTokens,
	}, func(text string) error {
		grown := accumulated + text
		cut, stopped := StopIndex(class, grown, s.cfg.MaxLength)

		if cut > len(accumulated) {
			delta := grown[len(accumulated):cut]
			if err := sink.Send(SuggestionFrame{Type: models.SuggestionEventDelta, Content: delta}); err != nil {
				return err
			}
		}
		accumulated = grown[:cut]

		if stopped {
			return domainllm.ErrStop
		}
		return nil
	})

	if streamErr != nil {
		if reqCtx.Err() != nil {
			return ErrSuperseded
		}
		return fmt.Errorf("%w: %v", domain.ErrGeneration, streamErr)
	}

	if !s.advance(sessionID, generation, stateDisplaying) {
		return ErrSuperseded
	}

	if err := sink.Send(SuggestionFrame{Type: models.SuggestionEventFinish}); err != nil {
		return err
	}

	s.logger.Debug("suggestion delivered",
		"session", sessionID,
		"class", class,
		"length", len(accumulated),
	)
	return nil
}

// completionSystem returns class-appropriate instructions.
func completionSystem(class BlockClass) string {
	switch class {
	case ClassCode:
		return "Continue the code at the cursor. Output only the continuation, no explanation, no markdown fences."
	case ClassMarkdown:
		return "Continue the markdown at the cursor. Output only the continuation of the current block; do not start new headings or lists."
	default:
		return "Continue the text at the cursor. Output only a short natural continuation of the current sentence or thought."
	}
}

// completionPrompt frames the text around the cursor.
func completionPrompt(req *Request) string {
	if req.Suffix == "" {
		return req.Prefix
	}
	return fmt.Sprintf("Text before cursor:\n%s\n\nText after cursor:\n%s\n\nContinue from the cursor position.", req.Prefix, req.Suffix)
}
