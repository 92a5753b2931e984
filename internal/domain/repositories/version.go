package repositories

import (
	"context"

	"inkwell/internal/domain/models"
)

// VersionRepository persists document version rows. Every operation is
// scoped by (document ID, owner); lookups that miss return
// domain.ErrNotFound without distinguishing foreign-owned rows.
type VersionRepository interface {
	// CreateInitial inserts a single row with the current flag set. It does
	// not clear other rows' flags; callers re-creating over an existing
	// identity must pair it with ClearCurrent inside a transaction.
	CreateInitial(ctx context.Context, v *models.DocumentVersion) error

	// ClearCurrent drops the current flag on all rows for the identity.
	ClearCurrent(ctx context.Context, userID, docID string) error

	// Fork inserts a new current row after clearing the flag on all
	// existing rows for the identity. Both statements run on the executor
	// carried in ctx, so wrapping the call in a transaction makes the flip
	// atomic.
	Fork(ctx context.Context, v *models.DocumentVersion) (*models.DocumentVersion, error)

	// Merge rewrites content and updated_at on the current row in place.
	// Returns domain.ErrNotFound when no current row exists for the owner.
	Merge(ctx context.Context, userID, docID, content string) (*models.DocumentVersion, error)

	// GetCurrent returns the row carrying the current flag.
	GetCurrent(ctx context.Context, userID, docID string) (*models.DocumentVersion, error)

	// GetLatestByCreation returns the most recently created row for the
	// identity regardless of the current flag.
	GetLatestByCreation(ctx context.Context, userID, docID string) (*models.DocumentVersion, error)

	// ListVersions returns every row for the identity ordered by creation
	// time ascending.
	ListVersions(ctx context.Context, userID, docID string) ([]models.DocumentVersion, error)

	// ListCurrentPage returns one page of current rows ordered by creation
	// time descending. endingBefore is the ID of a previously seen row; nil
	// starts from the newest.
	ListCurrentPage(ctx context.Context, userID string, limit int, endingBefore *string) (*models.VersionPage, error)

	// Rename sets the title on all rows sharing the identity.
	Rename(ctx context.Context, userID, docID, title string) error

	// DeleteAll removes every row for the identity.
	DeleteAll(ctx context.Context, userID, docID string) error

	// UpdatePublishSettings applies publish attributes to the current row.
	// Clears stale slugs on non-current rows first and rejects slugs held
	// by a different identity's current row for the same owner. Run inside
	// a transaction.
	UpdatePublishSettings(ctx context.Context, userID, docID string, settings models.PublishSettings) (*models.DocumentVersion, error)

	// SearchCurrent matches title or content case-insensitively over
	// current rows only.
	SearchCurrent(ctx context.Context, userID, query string, limit int) ([]models.DocumentVersion, error)

	// CountByID counts rows matching the identity for the owner. Used as
	// an explicit ownership check before destructive operations.
	CountByID(ctx context.Context, userID, docID string) (int, error)
}

// ChatRepository validates weak references from versions to conversations.
// Chat transcripts themselves are stored elsewhere; only existence is
// checked before an association is recorded.
type ChatRepository interface {
	Exists(ctx context.Context, chatID string) (bool, error)
}
