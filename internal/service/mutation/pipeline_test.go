package mutation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/config"
	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	domainllm "inkwell/internal/domain/services/llm"
	"inkwell/internal/repository/memory"
	"inkwell/internal/service/llm"
	"inkwell/internal/service/version"
)

// scriptedProvider replays fixed deltas, optionally failing afterwards.
type scriptedProvider struct {
	deltas []string
	err    error
}

func (p *scriptedProvider) StreamText(ctx context.Context, req *domainllm.StreamRequest, fn domainllm.DeltaFunc) error {
	for _, d := range p.deltas {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(d); err != nil {
			if errors.Is(err, domainllm.ErrStop) {
				return nil
			}
			return err
		}
	}
	return p.err
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) SupportsModel(model string) bool { return true }

// recordingSink captures the emitted event stream in order.
type recordingSink struct {
	events []models.StreamEvent
}

func (s *recordingSink) Send(event models.StreamEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []string {
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

type pipelineFixture struct {
	pipeline    *Pipeline
	coordinator *version.Coordinator
	repo        *memory.VersionRepository
	provider    *scriptedProvider
}

func newPipelineFixture(t *testing.T, deltas []string) *pipelineFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.NewVersionRepository()
	coordinator := version.NewCoordinator(repo, memory.NewChatRepository(), memory.NewTransactionManager(), 10*time.Minute, logger)

	provider := &scriptedProvider{deltas: deltas}
	registry := llm.NewRegistry([]domainllm.Provider{provider}, logger)

	cfg := &config.Config{
		DefaultModel: "scripted-1",
		SettleDelay:  time.Millisecond,
	}

	return &pipelineFixture{
		pipeline:    NewPipeline(coordinator, repo, registry, cfg, logger),
		coordinator: coordinator,
		repo:        repo,
		provider:    provider,
	}
}

func (f *pipelineFixture) seedDocument(t *testing.T, content string) *models.DocumentVersion {
	t.Helper()
	doc, err := f.coordinator.Create(context.Background(), &version.CreateRequest{
		UserID:  "user-1",
		Title:   "Draft",
		Content: content,
	})
	require.NoError(t, err)
	return doc
}

func TestCreateEmitsInitSequence(t *testing.T) {
	f := newPipelineFixture(t, nil)
	sink := &recordingSink{}

	doc, err := f.pipeline.Create(context.Background(), "user-1", CreateArgs{
		Title: "Essay",
		Kind:  models.KindText,
	}, nil, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{
		models.StreamEventID,
		models.StreamEventTitle,
		models.StreamEventClear,
		models.StreamEventFinish,
	}, sink.types())

	require.NotNil(t, sink.events[0].Content)
	assert.Equal(t, doc.ID, *sink.events[0].Content)
	require.NotNil(t, sink.events[1].Content)
	assert.Equal(t, "Essay", *sink.events[1].Content)

	stored, err := f.repo.GetCurrent(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Content)
	assert.True(t, stored.IsCurrent)
}

func TestStreamFillCommitsAccumulatedText(t *testing.T) {
	f := newPipelineFixture(t, []string{"Hello ", "world"})
	doc := f.seedDocument(t, "")
	sink := &recordingSink{}

	filled, err := f.pipeline.StreamFill(context.Background(), "user-1", doc.ID, "greet the world", nil, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{
		models.StreamEventTextDelta,
		models.StreamEventTextDelta,
		models.StreamEventFinish,
	}, sink.types())
	assert.Equal(t, "Hello world", filled.Content)

	stored, err := f.repo.GetCurrent(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", stored.Content)
}

func TestStreamFillRefusesNonEmptyDocument(t *testing.T) {
	f := newPipelineFixture(t, []string{"x"})
	doc := f.seedDocument(t, "already written")

	_, err := f.pipeline.StreamFill(context.Background(), "user-1", doc.ID, "fill", nil, &recordingSink{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStreamFillFailureLeavesStoreUntouched(t *testing.T) {
	f := newPipelineFixture(t, []string{"partial "})
	f.provider.err = errors.New("upstream disconnect")
	doc := f.seedDocument(t, "")

	_, err := f.pipeline.StreamFill(context.Background(), "user-1", doc.ID, "fill", nil, &recordingSink{})
	assert.ErrorIs(t, err, domain.ErrGeneration)

	stored, getErr := f.repo.GetCurrent(context.Background(), "user-1", doc.ID)
	require.NoError(t, getErr)
	assert.Empty(t, stored.Content, "aborted stream must not commit partial content")
}

func TestUpdateProposesWithoutWriting(t *testing.T) {
	f := newPipelineFixture(t, []string{"B"})
	doc := f.seedDocument(t, "A")
	sink := &recordingSink{}

	proposal, err := f.pipeline.Update(context.Background(), "user-1", doc.ID, "replace it", sink)
	require.NoError(t, err)

	assert.Equal(t, []string{
		models.StreamEventClear,
		models.StreamEventTextDelta,
		models.StreamEventForceSave,
		models.StreamEventFinish,
	}, sink.types())

	assert.Equal(t, models.ProposalPending, proposal.Status)
	assert.Equal(t, "A", proposal.OriginalContent)
	assert.Equal(t, "B", proposal.ProposedContent)

	stored, err := f.repo.GetCurrent(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Content, "proposing must not touch the store")
}

func TestRejectLeavesContentIdentical(t *testing.T) {
	f := newPipelineFixture(t, []string{"B"})
	doc := f.seedDocument(t, "A")

	proposal, err := f.pipeline.Update(context.Background(), "user-1", doc.ID, "replace it", &recordingSink{})
	require.NoError(t, err)

	f.pipeline.Reject(proposal)
	assert.Equal(t, models.ProposalRejected, proposal.Status)

	stored, err := f.repo.GetCurrent(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Content)
}

func TestAcceptMatchesManualEditOutcome(t *testing.T) {
	f := newPipelineFixture(t, []string{"B"})
	doc := f.seedDocument(t, "A")

	proposal, err := f.pipeline.Update(context.Background(), "user-1", doc.ID, "replace it", &recordingSink{})
	require.NoError(t, err)

	accepted, err := f.pipeline.Accept(context.Background(), "user-1", proposal, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ProposalAccepted, proposal.Status)
	assert.Equal(t, "B", accepted.Content)

	// Well inside the merge window with an unchanged kind: the accept
	// merges exactly as a manual edit would, leaving a single row.
	versions, err := f.repo.ListVersions(context.Background(), "user-1", doc.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
	assert.True(t, versions[0].IsCurrent)
}

func TestGenerateFailureWrapsSentinel(t *testing.T) {
	f := newPipelineFixture(t, nil)
	f.provider.err = errors.New("rate limited")
	doc := f.seedDocument(t, "")

	_, err := f.pipeline.StreamFill(context.Background(), "user-1", doc.ID, "fill", nil, &recordingSink{})
	assert.ErrorIs(t, err, domain.ErrGeneration)
}
