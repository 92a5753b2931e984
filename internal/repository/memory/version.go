// Package memory provides in-memory repository implementations backing
// unit tests and database-less development runs. Semantics mirror the
// postgres repositories, including the at-most-one-current invariant and
// the limit+1 pagination probe.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/repositories"
)

type versionKey struct {
	userID string
	docID  string
}

// VersionRepository is a mutex-guarded in-memory VersionRepository.
type VersionRepository struct {
	mu       sync.Mutex
	versions map[versionKey][]*models.DocumentVersion

	// NowFunc supplies timestamps; tests override it to control the clock.
	NowFunc func() time.Time
}

// NewVersionRepository creates an empty in-memory version repository.
func NewVersionRepository() *VersionRepository {
	return &VersionRepository{
		versions: make(map[versionKey][]*models.DocumentVersion),
		NowFunc:  time.Now,
	}
}

func (r *VersionRepository) now() time.Time {
	return r.NowFunc().UTC()
}

func (r *VersionRepository) rows(userID, docID string) []*models.DocumentVersion {
	return r.versions[versionKey{userID: userID, docID: docID}]
}

func clone(v *models.DocumentVersion) *models.DocumentVersion {
	c := *v
	return &c
}

// CreateInitial inserts one row with the current flag set.
func (r *VersionRepository) CreateInitial(ctx context.Context, v *models.DocumentVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	v.CreatedAt = now
	v.UpdatedAt = now
	v.IsCurrent = true
	if v.Visibility == "" {
		v.Visibility = models.VisibilityPrivate
	}

	key := versionKey{userID: v.UserID, docID: v.ID}
	r.versions[key] = append(r.versions[key], clone(v))
	return nil
}

// ClearCurrent drops the current flag on all rows for the identity.
func (r *VersionRepository) ClearCurrent(ctx context.Context, userID, docID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows(userID, docID) {
		row.IsCurrent = false
	}
	return nil
}

// Fork demotes existing rows and inserts the new current row. The mutex
// makes the flip atomic, matching the postgres transaction.
func (r *VersionRepository) Fork(ctx context.Context, v *models.DocumentVersion) (*models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows(v.UserID, v.ID) {
		row.IsCurrent = false
	}

	now := r.now()
	v.CreatedAt = now
	v.UpdatedAt = now
	v.IsCurrent = true
	if v.Visibility == "" {
		v.Visibility = models.VisibilityPrivate
	}

	key := versionKey{userID: v.UserID, docID: v.ID}
	r.versions[key] = append(r.versions[key], clone(v))
	return clone(v), nil
}

// Merge rewrites content and updated_at on the current row in place.
func (r *VersionRepository) Merge(ctx context.Context, userID, docID, content string) (*models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows(userID, docID) {
		if row.IsCurrent {
			row.Content = content
			row.UpdatedAt = r.now()
			return clone(row), nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
}

// GetCurrent returns the row carrying the current flag.
func (r *VersionRepository) GetCurrent(ctx context.Context, userID, docID string) (*models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows(userID, docID) {
		if row.IsCurrent {
			return clone(row), nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
}

// GetLatestByCreation returns the most recently created row regardless of
// the current flag.
func (r *VersionRepository) GetLatestByCreation(ctx context.Context, userID, docID string) (*models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.rows(userID, docID)
	if len(rows) == 0 {
		return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}

	latest := rows[0]
	for _, row := range rows[1:] {
		if row.CreatedAt.After(latest.CreatedAt) {
			latest = row
		}
	}
	return clone(latest), nil
}

// ListVersions returns every row ordered by creation time ascending.
func (r *VersionRepository) ListVersions(ctx context.Context, userID, docID string) ([]models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.rows(userID, docID)
	out := make([]models.DocumentVersion, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListCurrentPage pages current rows newest-first with a limit+1 probe.
func (r *VersionRepository) ListCurrentPage(ctx context.Context, userID string, limit int, endingBefore *string) (*models.VersionPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current []models.DocumentVersion
	for key, rows := range r.versions {
		if key.userID != userID {
			continue
		}
		for _, row := range rows {
			if row.IsCurrent {
				current = append(current, *row)
			}
		}
	}
	sort.Slice(current, func(i, j int) bool { return current[i].CreatedAt.After(current[j].CreatedAt) })

	if endingBefore != nil {
		var cursorAt *time.Time
		for _, v := range current {
			if v.ID == *endingBefore {
				at := v.CreatedAt
				cursorAt = &at
				break
			}
		}
		if cursorAt == nil {
			return nil, fmt.Errorf("cursor document %s: %w", *endingBefore, domain.ErrNotFound)
		}

		var older []models.DocumentVersion
		for _, v := range current {
			if v.CreatedAt.Before(*cursorAt) {
				older = append(older, v)
			}
		}
		current = older
	}

	if len(current) > limit+1 {
		current = current[:limit+1]
	}

	hasMore := len(current) > limit
	if hasMore {
		current = current[:limit]
	}
	if current == nil {
		current = []models.DocumentVersion{}
	}

	return &models.VersionPage{Items: current, HasMore: hasMore}, nil
}

// Rename sets the title on all rows sharing the identity.
func (r *VersionRepository) Rename(ctx context.Context, userID, docID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.rows(userID, docID)
	if len(rows) == 0 {
		return fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}
	for _, row := range rows {
		row.Title = title
	}
	return nil
}

// DeleteAll removes every row for the identity.
func (r *VersionRepository) DeleteAll(ctx context.Context, userID, docID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := versionKey{userID: userID, docID: docID}
	if len(r.versions[key]) == 0 {
		return fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}
	delete(r.versions, key)
	return nil
}

// UpdatePublishSettings applies publish attributes to the current row.
func (r *VersionRepository) UpdatePublishSettings(ctx context.Context, userID, docID string, settings models.PublishSettings) (*models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if settings.Slug != nil {
		for key, rows := range r.versions {
			if key.userID != userID || key.docID == docID {
				continue
			}
			for _, row := range rows {
				if row.IsCurrent && row.Slug != nil && *row.Slug == *settings.Slug {
					return nil, &domain.SlugConflictError{Slug: *settings.Slug, DocumentID: row.ID}
				}
			}
		}
	}

	var target *models.DocumentVersion
	for _, row := range r.rows(userID, docID) {
		if row.IsCurrent {
			target = row
		} else if row.Slug != nil {
			row.Slug = nil
		}
	}
	if target == nil {
		return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}

	target.Visibility = settings.Visibility
	target.Author = settings.Author
	target.Style = settings.Style
	target.Slug = settings.Slug
	return clone(target), nil
}

// SearchCurrent matches title or content case-insensitively over current
// rows only.
func (r *VersionRepository) SearchCurrent(ctx context.Context, userID, query string, limit int) ([]models.DocumentVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	needle := strings.ToLower(query)
	var out []models.DocumentVersion
	for key, rows := range r.versions {
		if key.userID != userID {
			continue
		}
		for _, row := range rows {
			if !row.IsCurrent {
				continue
			}
			if strings.Contains(strings.ToLower(row.Title), needle) ||
				strings.Contains(strings.ToLower(row.Content), needle) {
				out = append(out, *row)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []models.DocumentVersion{}
	}
	return out, nil
}

// CountByID counts rows matching the identity for the owner.
func (r *VersionRepository) CountByID(ctx context.Context, userID, docID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows(userID, docID)), nil
}

var _ repositories.VersionRepository = (*VersionRepository)(nil)

// ChatRepository is an in-memory chat existence index.
type ChatRepository struct {
	mu    sync.Mutex
	chats map[string]struct{}
}

// NewChatRepository creates an empty in-memory chat repository.
func NewChatRepository() *ChatRepository {
	return &ChatRepository{chats: make(map[string]struct{})}
}

// Add registers a chat ID as existing.
func (r *ChatRepository) Add(chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[chatID] = struct{}{}
}

// Exists reports whether the chat ID has been registered.
func (r *ChatRepository) Exists(ctx context.Context, chatID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.chats[chatID]
	return ok, nil
}

var _ repositories.ChatRepository = (*ChatRepository)(nil)

// TransactionManager satisfies repositories.TransactionManager without a
// database; the repository mutex already serializes multi-step writes.
type TransactionManager struct{}

// NewTransactionManager creates a pass-through transaction manager.
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{}
}

// ExecTx runs fn directly.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

var _ repositories.TransactionManager = (*TransactionManager)(nil)
