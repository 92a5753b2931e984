// Package version decides how document content updates land in the
// store: merged into the current version in place, or forked onto a new
// version row. Every durable content write, whether from a human edit or
// an accepted proposal, goes through the Coordinator.
package version

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/repositories"
)

// DefaultTitle names versions created without an inheritable title.
const DefaultTitle = "Untitled document"

// Action reports which write path an update took.
type Action string

const (
	ActionMerged Action = "merged"
	ActionForked Action = "forked"
)

// Coordinator orchestrates version writes on top of the repository.
type Coordinator struct {
	repo      repositories.VersionRepository
	chatRepo  repositories.ChatRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger

	mergeWindow time.Duration
	now         func() time.Time
}

// NewCoordinator creates a coordinator. mergeWindow bounds how long a
// current version keeps absorbing same-kind updates in place.
func NewCoordinator(
	repo repositories.VersionRepository,
	chatRepo repositories.ChatRepository,
	txManager repositories.TransactionManager,
	mergeWindow time.Duration,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		repo:        repo,
		chatRepo:    chatRepo,
		txManager:   txManager,
		logger:      logger,
		mergeWindow: mergeWindow,
		now:         time.Now,
	}
}

// ApplyRequest is one content update aimed at a document identity.
type ApplyRequest struct {
	UserID     string
	DocumentID string
	Content    string
	Kind       models.Kind // empty inherits the stored kind
	ChatID     *string
}

// Validate checks the request before any store access.
func (r *ApplyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.DocumentID, validation.Required),
		validation.Field(&r.Kind, validation.By(optionalKind)),
	)
}

func optionalKind(value interface{}) error {
	kind, _ := value.(models.Kind)
	if kind == "" || models.ValidKind(kind) {
		return nil
	}
	return fmt.Errorf("unknown kind '%s'", kind)
}

// ValidateID rejects malformed document identifiers before any store
// access happens.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: invalid document identifier", domain.ErrValidation)
	}
	return nil
}

// Apply routes an update to merge or fork.
//
// No current version: a new one is forked, inheriting the title of the
// most recently created row for the identity when one exists.
//
// Current version present: the update merges in place while it is younger
// than the merge window and the kind is unchanged. Outside the window, or
// on any kind change, a fork is taken: content-type drift starts a new
// lineage even inside the window.
func (c *Coordinator) Apply(ctx context.Context, req *ApplyRequest) (*models.DocumentVersion, Action, error) {
	if err := req.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := ValidateID(req.DocumentID); err != nil {
		return nil, "", err
	}

	chatID := c.resolveChat(ctx, req.ChatID)

	current, err := c.repo.GetCurrent(ctx, req.UserID, req.DocumentID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, "", fmt.Errorf("resolve current version: %w", err)
		}

		title := DefaultTitle
		kind := req.Kind
		if latest, lookupErr := c.repo.GetLatestByCreation(ctx, req.UserID, req.DocumentID); lookupErr == nil {
			title = latest.Title
			if kind == "" {
				kind = latest.Kind
			}
		}
		if kind == "" {
			kind = models.KindText
		}

		v, forkErr := c.fork(ctx, &models.DocumentVersion{
			ID:      req.DocumentID,
			Title:   title,
			Content: req.Content,
			Kind:    kind,
			UserID:  req.UserID,
			ChatID:  chatID,
		})
		if forkErr != nil {
			return nil, "", forkErr
		}
		return v, ActionForked, nil
	}

	kind := req.Kind
	if kind == "" {
		kind = current.Kind
	}

	elapsed := c.now().Sub(current.UpdatedAt)
	if elapsed < c.mergeWindow && kind == current.Kind {
		v, mergeErr := c.repo.Merge(ctx, req.UserID, req.DocumentID, req.Content)
		if mergeErr != nil {
			return nil, "", mergeErr
		}
		c.logger.Debug("version merged",
			"document_id", req.DocumentID,
			"elapsed", elapsed,
		)
		return v, ActionMerged, nil
	}

	v, forkErr := c.fork(ctx, &models.DocumentVersion{
		ID:      req.DocumentID,
		Title:   current.Title,
		Content: req.Content,
		Kind:    kind,
		UserID:  req.UserID,
		ChatID:  chatID,
	})
	if forkErr != nil {
		return nil, "", forkErr
	}
	c.logger.Debug("version forked",
		"document_id", req.DocumentID,
		"elapsed", elapsed,
		"kind_changed", kind != current.Kind,
	)
	return v, ActionForked, nil
}

// CreateRequest starts a fresh document identity.
type CreateRequest struct {
	UserID  string
	ID      *string // generated when absent; must be a well-formed UUID if supplied
	Title   string
	Content string
	Kind    models.Kind
	ChatID  *string
}

// Validate checks the request before any store access.
func (r *CreateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Title, validation.Length(0, 255)),
		validation.Field(&r.Kind, validation.By(optionalKind)),
	)
}

// Create persists the first version of a document with the current flag
// set. The demotion of any rows already holding the identity and the
// insert commit together as one replace-current transaction, the same
// primitive the fork path uses.
func (c *Coordinator) Create(ctx context.Context, req *CreateRequest) (*models.DocumentVersion, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	id := uuid.NewString()
	if req.ID != nil {
		if err := ValidateID(*req.ID); err != nil {
			return nil, err
		}
		id = *req.ID
	}

	title := req.Title
	if title == "" {
		title = DefaultTitle
	}
	kind := req.Kind
	if kind == "" {
		kind = models.KindText
	}

	return c.fork(ctx, &models.DocumentVersion{
		ID:      id,
		Title:   title,
		Content: req.Content,
		Kind:    kind,
		UserID:  req.UserID,
		ChatID:  c.resolveChat(ctx, req.ChatID),
	})
}

// fork runs the clear-current + insert pair in one transaction so exactly
// one row per identity observes the current flag.
func (c *Coordinator) fork(ctx context.Context, v *models.DocumentVersion) (*models.DocumentVersion, error) {
	var forked *models.DocumentVersion
	err := c.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var txErr error
		forked, txErr = c.repo.Fork(txCtx, v)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("fork version: %w", err)
	}
	return forked, nil
}

// resolveChat validates a weak chat reference. Invalid or unknown chats
// drop the association instead of failing the write.
func (c *Coordinator) resolveChat(ctx context.Context, chatID *string) *string {
	if chatID == nil || *chatID == "" {
		return nil
	}
	if _, err := uuid.Parse(*chatID); err != nil {
		c.logger.Warn("dropping chat association",
			"chat_id", *chatID,
			"error", domain.ErrChatAssociation,
		)
		return nil
	}

	exists, err := c.chatRepo.Exists(ctx, *chatID)
	if err != nil {
		c.logger.Warn("chat existence check failed, dropping association",
			"chat_id", *chatID,
			"error", err,
		)
		return nil
	}
	if !exists {
		c.logger.Warn("dropping chat association",
			"chat_id", *chatID,
			"error", domain.ErrChatAssociation,
		)
		return nil
	}

	return chatID
}
