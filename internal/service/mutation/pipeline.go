// Package mutation wraps AI-driven content generation in a
// propose/accept/reject protocol. Streamed content reaches the store only
// through two doors: a stream-fill into a fresh empty version, or the
// coordinator call made when a human accepts a proposal.
package mutation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/repositories"
	domainllm "inkwell/internal/domain/services/llm"
	"inkwell/internal/service/llm"
	"inkwell/internal/service/version"
)

// Pipeline executes the three mutation capabilities, streaming the shared
// event vocabulary to a sink while deciding what may touch storage.
type Pipeline struct {
	coordinator *version.Coordinator
	repo        repositories.VersionRepository
	providers   *llm.Registry
	logger      *slog.Logger

	model       string
	settleDelay time.Duration
}

// NewPipeline creates a mutation pipeline.
func NewPipeline(
	coordinator *version.Coordinator,
	repo repositories.VersionRepository,
	providers *llm.Registry,
	cfg *config.Config,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		coordinator: coordinator,
		repo:        repo,
		providers:   providers,
		logger:      logger,
		model:       cfg.DefaultModel,
		settleDelay: cfg.SettleDelay,
	}
}

// CreateArgs are the model-supplied arguments of the create capability.
type CreateArgs struct {
	Title string      `json:"title"`
	Kind  models.Kind `json:"kind"`
}

// Create persists a brand-new empty version immediately and emits the
// deterministic id → title → clear sequence the client initializes from,
// then finish after a settle delay. No generated content is involved yet;
// the follow-up turn stream-fills the empty document.
func (p *Pipeline) Create(ctx context.Context, userID string, args CreateArgs, chatID *string, sink EventSink) (*models.DocumentVersion, error) {
	v, err := p.coordinator.Create(ctx, &version.CreateRequest{
		UserID: userID,
		Title:  args.Title,
		Kind:   args.Kind,
		ChatID: chatID,
	})
	if err != nil {
		return nil, err
	}

	if err := emitText(sink, models.StreamEventID, v.ID); err != nil {
		return nil, err
	}
	if err := emitText(sink, models.StreamEventTitle, v.Title); err != nil {
		return nil, err
	}
	if err := emitMarker(sink, models.StreamEventClear); err != nil {
		return nil, err
	}

	select {
	case <-time.After(p.settleDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := emitMarker(sink, models.StreamEventFinish); err != nil {
		return nil, err
	}

	p.logger.Info("document created",
		"document_id", v.ID,
		"kind", v.Kind,
	)
	return v, nil
}

// StreamFill generates content straight into a fresh, empty current
// version. There is no prior content at risk, so no proposal step exists
// on this path; the accumulated text is committed once the stream
// completes. An aborted stream leaves the store untouched.
func (p *Pipeline) StreamFill(ctx context.Context, userID, docID, prompt string, chatID *string, sink EventSink) (*models.DocumentVersion, error) {
	if err := version.ValidateID(docID); err != nil {
		return nil, err
	}

	current, err := p.repo.GetCurrent(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	if current.Content != "" {
		return nil, fmt.Errorf("%w: document already has content, expected an update proposal", domain.ErrValidation)
	}

	content, err := p.generate(ctx, current.Kind, fillPrompt(current.Title, prompt), sink)
	if err != nil {
		return nil, err
	}

	v, _, err := p.coordinator.Apply(ctx, &version.ApplyRequest{
		UserID:     userID,
		DocumentID: docID,
		Content:    content,
		Kind:       current.Kind,
		ChatID:     chatID,
	})
	if err != nil {
		return nil, err
	}

	if err := emitMarker(sink, models.StreamEventFinish); err != nil {
		return nil, err
	}
	return v, nil
}

// Update streams a generated replacement for the document's current
// content while accumulating it into a proposal. Nothing is written to
// the store here; the caller renders a diff and either accepts (which
// goes through the coordinator like any manual edit) or rejects (which
// discards the proposal byte-for-byte).
func (p *Pipeline) Update(ctx context.Context, userID, docID, prompt string, sink EventSink) (*models.Proposal, error) {
	if err := version.ValidateID(docID); err != nil {
		return nil, err
	}

	current, err := p.repo.GetCurrent(ctx, userID, docID)
	if err != nil {
		return nil, err
	}

	if err := emitMarker(sink, models.StreamEventClear); err != nil {
		return nil, err
	}

	proposed, err := p.generate(ctx, current.Kind, updatePrompt(current.Content, prompt), sink)
	if err != nil {
		return nil, err
	}

	if err := emitMarker(sink, models.StreamEventForceSave); err != nil {
		return nil, err
	}
	if err := emitMarker(sink, models.StreamEventFinish); err != nil {
		return nil, err
	}

	return &models.Proposal{
		DocumentID:      current.ID,
		Title:           current.Title,
		Kind:            current.Kind,
		OriginalContent: current.Content,
		ProposedContent: proposed,
		Status:          models.ProposalPending,
	}, nil
}

// Accept converts a pending proposal into a coordinator write. The
// outcome is observationally the same merge-or-fork a manual edit with
// identical content would take at this instant.
func (p *Pipeline) Accept(ctx context.Context, userID string, proposal *models.Proposal, chatID *string) (*models.DocumentVersion, error) {
	v, action, err := p.coordinator.Apply(ctx, &version.ApplyRequest{
		UserID:     userID,
		DocumentID: proposal.DocumentID,
		Content:    proposal.ProposedContent,
		Kind:       proposal.Kind,
		ChatID:     chatID,
	})
	if err != nil {
		return nil, err
	}

	proposal.Status = models.ProposalAccepted
	p.logger.Info("proposal accepted",
		"document_id", proposal.DocumentID,
		"action", action,
	)
	return v, nil
}

// Reject discards a proposal. Stored content is untouched; no store call
// is made at all.
func (p *Pipeline) Reject(proposal *models.Proposal) {
	proposal.Status = models.ProposalRejected
	p.logger.Info("proposal rejected", "document_id", proposal.DocumentID)
}

// generate streams model output, forwarding each delta as a text-delta
// event while accumulating the full text.
func (p *Pipeline) generate(ctx context.Context, kind models.Kind, prompt string, sink EventSink) (string, error) {
	provider, err := p.providers.ForModel(p.model)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	var sb strings.Builder
	streamErr := provider.StreamText(ctx, &domainllm.StreamRequest{
		Model:  p.model,
		System: generationSystem(kind),
		Prompt: prompt,
	}, func(text string) error {
		sb.WriteString(text)
		return emitText(sink, models.StreamEventTextDelta, text)
	})
	if streamErr != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, streamErr)
	}

	return sb.String(), nil
}
