// Package dispatch classifies the active document fresh every turn and
// exposes exactly one mutation capability to the generation model. Wrong
// states (update without a document, overwrite of a fresh draft) are made
// unrepresentable rather than merely validated at runtime.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/repositories"
	"inkwell/internal/service/mutation"
)

// State is the per-turn classification of the active document. It is
// recomputed from a fresh content fetch on every turn; nothing carries
// over.
type State string

const (
	StateNoActiveDocument          State = "no_active_document"
	StateActiveDocumentEmpty       State = "active_document_empty"
	StateActiveDocumentWithContent State = "active_document_with_content"
)

// TurnContext carries exactly the fields a capability may read during one
// turn. It is constructed once per request; tools never see the session.
type TurnContext struct {
	UserID           string
	ActiveDocumentID *string
	ChatID           *string
}

// TurnResult is the structured outcome of one executed capability.
// Failures of the document operation land in Err instead of escaping the
// tool boundary, so the calling turn continues with the document
// unmutated.
type TurnResult struct {
	State    State                   `json:"state"`
	Version  *models.DocumentVersion `json:"version,omitempty"`
	Proposal *models.Proposal        `json:"proposal,omitempty"`
	Err      string                  `json:"error,omitempty"`
}

// Dispatcher resolves turn state and routes execution into the pipeline.
type Dispatcher struct {
	repo     repositories.VersionRepository
	pipeline *mutation.Pipeline
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(repo repositories.VersionRepository, pipeline *mutation.Pipeline, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Resolve classifies the turn. An absent, malformed, or unresolvable
// active-document identifier all collapse to StateNoActiveDocument: only
// a validated identifier with a freshly fetched row counts as active.
func (d *Dispatcher) Resolve(ctx context.Context, turn *TurnContext) (State, *models.DocumentVersion, error) {
	if turn.ActiveDocumentID == nil || *turn.ActiveDocumentID == "" {
		return StateNoActiveDocument, nil, nil
	}

	if _, err := uuid.Parse(*turn.ActiveDocumentID); err != nil {
		d.logger.Warn("active document identifier malformed, treating as absent",
			"document_id", *turn.ActiveDocumentID,
		)
		return StateNoActiveDocument, nil, nil
	}

	current, err := d.repo.GetCurrent(ctx, turn.UserID, *turn.ActiveDocumentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.logger.Warn("active document not found, treating as absent",
				"document_id", *turn.ActiveDocumentID,
			)
			return StateNoActiveDocument, nil, nil
		}
		return "", nil, fmt.Errorf("resolve active document: %w", err)
	}

	if len(current.Content) == 0 {
		return StateActiveDocumentEmpty, current, nil
	}
	return StateActiveDocumentWithContent, current, nil
}

// SystemPrompt returns the turn instructions matching the exposed
// capability, regenerated every turn so the model is never told about a
// tool it cannot call.
func SystemPrompt(state State, doc *models.DocumentVersion) string {
	switch state {
	case StateActiveDocumentEmpty:
		return fmt.Sprintf(
			"The user has an empty document open, titled %q (kind: %s). When the user asks for content, call fill_document to write it. Do not offer to create another document.",
			doc.Title, doc.Kind,
		)
	case StateActiveDocumentWithContent:
		return fmt.Sprintf(
			"The user has a document open, titled %q (kind: %s). When the user asks for changes, call update_document to propose a revision. The user reviews every proposal before it is saved; never claim a change has been saved.",
			doc.Title, doc.Kind,
		)
	default:
		return "The user has no document open. When the user asks for a document, essay, code file, or spreadsheet, call create_document first; its content is written in a later step."
	}
}

// Execute runs the single capability selected by state. Document-level
// failures become a data-error event plus a structured result; only sink
// transport failures propagate as errors.
func (d *Dispatcher) Execute(ctx context.Context, turn *TurnContext, state State, args CapabilityArgs, sink mutation.EventSink) (*TurnResult, error) {
	result := &TurnResult{State: state}

	var execErr error
	switch state {
	case StateNoActiveDocument:
		result.Version, execErr = d.pipeline.Create(ctx, turn.UserID, mutation.CreateArgs{
			Title: args.Title,
			Kind:  args.Kind,
		}, turn.ChatID, sink)

	case StateActiveDocumentEmpty:
		result.Version, execErr = d.pipeline.StreamFill(ctx, turn.UserID, *turn.ActiveDocumentID, args.Instruction, turn.ChatID, sink)

	case StateActiveDocumentWithContent:
		result.Proposal, execErr = d.pipeline.Update(ctx, turn.UserID, *turn.ActiveDocumentID, args.Instruction, sink)

	default:
		execErr = fmt.Errorf("unknown dispatcher state '%s'", state)
	}

	if execErr != nil {
		if ctx.Err() != nil {
			// Client went away; no one is listening for a data-error
			return nil, execErr
		}

		d.logger.Warn("capability failed",
			"state", state,
			"error", execErr,
		)
		result.Err = execErr.Error()
		if sendErr := sink.Send(models.NewStreamTextEvent(models.StreamEventError, execErr.Error())); sendErr != nil {
			return nil, sendErr
		}
	}

	return result, nil
}

// CapabilityArgs is the union of tool-call arguments across the three
// capabilities; the dispatcher state picks which fields are read.
type CapabilityArgs struct {
	Title       string      `json:"title,omitempty"`
	Kind        models.Kind `json:"kind,omitempty"`
	Instruction string      `json:"instruction,omitempty"`
}
