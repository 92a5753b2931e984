package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/repositories"
)

const versionColumns = `id, title, content, kind, user_id, chat_id, is_current, created_at, updated_at, visibility, author, style, slug`

// PostgresVersionRepository implements the VersionRepository interface
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(config *RepositoryConfig) repositories.VersionRepository {
	return &PostgresVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanVersion(row pgx.Row, v *models.DocumentVersion) error {
	return row.Scan(
		&v.ID,
		&v.Title,
		&v.Content,
		&v.Kind,
		&v.UserID,
		&v.ChatID,
		&v.IsCurrent,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.Visibility,
		&v.Author,
		&v.Style,
		&v.Slug,
	)
}

func collectVersions(rows pgx.Rows) ([]models.DocumentVersion, error) {
	defer rows.Close()

	var versions []models.DocumentVersion
	for rows.Next() {
		var v models.DocumentVersion
		if err := scanVersion(rows, &v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}

	// Return empty slice instead of nil
	if versions == nil {
		versions = []models.DocumentVersion{}
	}

	return versions, nil
}

// CreateInitial inserts a single row with the current flag set. Does not
// touch other rows' flags; the coordinator pairs it with ClearCurrent in
// one transaction when re-creating over an existing identity.
func (r *PostgresVersionRepository) CreateInitial(ctx context.Context, v *models.DocumentVersion) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, content, kind, user_id, chat_id, is_current, created_at, updated_at, visibility)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $7, $8)
		RETURNING created_at, updated_at
	`, r.tables.Versions)

	now := time.Now().UTC()
	if v.Visibility == "" {
		v.Visibility = models.VisibilityPrivate
	}

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		v.ID,
		v.Title,
		v.Content,
		v.Kind,
		v.UserID,
		v.ChatID,
		now,
		v.Visibility,
	).Scan(&v.CreatedAt, &v.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("version for document %s at %s: %w", v.ID, now, domain.ErrConflict)
		}
		return fmt.Errorf("create initial version: %w", err)
	}

	v.IsCurrent = true
	return nil
}

// ClearCurrent drops the current flag on all rows for the identity.
func (r *PostgresVersionRepository) ClearCurrent(ctx context.Context, userID, docID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_current = FALSE
		WHERE id = $1 AND user_id = $2 AND is_current = TRUE
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, docID, userID); err != nil {
		return fmt.Errorf("clear current flag: %w", err)
	}

	return nil
}

// Fork demotes all existing rows for the identity and inserts the new
// current row. Both statements run on the ctx executor; the coordinator
// wraps the call in ExecTx so the flip is atomic.
func (r *PostgresVersionRepository) Fork(ctx context.Context, v *models.DocumentVersion) (*models.DocumentVersion, error) {
	if err := r.ClearCurrent(ctx, v.UserID, v.ID); err != nil {
		return nil, err
	}

	if err := r.CreateInitial(ctx, v); err != nil {
		return nil, fmt.Errorf("insert forked version: %w", err)
	}

	return v, nil
}

// Merge rewrites content and updated_at on the current row in place.
// created_at and the row identity never change on this path.
func (r *PostgresVersionRepository) Merge(ctx context.Context, userID, docID, content string) (*models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET content = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4 AND is_current = TRUE
		RETURNING %s
	`, r.tables.Versions, versionColumns)

	var v models.DocumentVersion
	executor := GetExecutor(ctx, r.pool)
	err := scanVersion(executor.QueryRow(ctx, query, content, time.Now().UTC(), docID, userID), &v)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("merge current version: %w", err)
	}

	return &v, nil
}

// GetCurrent returns the row carrying the current flag.
func (r *PostgresVersionRepository) GetCurrent(ctx context.Context, userID, docID string) (*models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2 AND is_current = TRUE
	`, versionColumns, r.tables.Versions)

	var v models.DocumentVersion
	executor := GetExecutor(ctx, r.pool)
	err := scanVersion(executor.QueryRow(ctx, query, docID, userID), &v)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get current version: %w", err)
	}

	return &v, nil
}

// GetLatestByCreation returns the most recently created row for the
// identity, ignoring the current flag.
func (r *PostgresVersionRepository) GetLatestByCreation(ctx context.Context, userID, docID string) (*models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, versionColumns, r.tables.Versions)

	var v models.DocumentVersion
	executor := GetExecutor(ctx, r.pool)
	err := scanVersion(executor.QueryRow(ctx, query, docID, userID), &v)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get latest version: %w", err)
	}

	return &v, nil
}

// ListVersions returns every row for the identity ordered by creation
// time ascending.
func (r *PostgresVersionRepository) ListVersions(ctx context.Context, userID, docID string) ([]models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2
		ORDER BY created_at ASC
	`, versionColumns, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, docID, userID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	return collectVersions(rows)
}

// ListCurrentPage returns one page of current rows ordered by creation
// time descending. The cursor row's created_at bounds the page; limit+1
// rows are fetched to probe for a further page.
func (r *PostgresVersionRepository) ListCurrentPage(ctx context.Context, userID string, limit int, endingBefore *string) (*models.VersionPage, error) {
	executor := GetExecutor(ctx, r.pool)

	var rows pgx.Rows
	var err error

	if endingBefore != nil {
		cursorQuery := fmt.Sprintf(`
			SELECT created_at
			FROM %s
			WHERE id = $1 AND user_id = $2 AND is_current = TRUE
		`, r.tables.Versions)

		var cursorCreatedAt time.Time
		if err := executor.QueryRow(ctx, cursorQuery, *endingBefore, userID).Scan(&cursorCreatedAt); err != nil {
			if isNoRows(err) {
				return nil, fmt.Errorf("cursor document %s: %w", *endingBefore, domain.ErrNotFound)
			}
			return nil, fmt.Errorf("resolve pagination cursor: %w", err)
		}

		pageQuery := fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE user_id = $1 AND is_current = TRUE AND created_at < $2
			ORDER BY created_at DESC
			LIMIT $3
		`, versionColumns, r.tables.Versions)
		rows, err = executor.Query(ctx, pageQuery, userID, cursorCreatedAt, limit+1)
	} else {
		pageQuery := fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE user_id = $1 AND is_current = TRUE
			ORDER BY created_at DESC
			LIMIT $2
		`, versionColumns, r.tables.Versions)
		rows, err = executor.Query(ctx, pageQuery, userID, limit+1)
	}

	if err != nil {
		return nil, fmt.Errorf("list current versions: %w", err)
	}

	versions, err := collectVersions(rows)
	if err != nil {
		return nil, err
	}

	items, hasMore := TrimPage(versions, limit)
	return &models.VersionPage{Items: items, HasMore: hasMore}, nil
}

// TrimPage reduces a limit+1 probe result to one page. hasMore is true iff
// strictly more rows than the limit were fetched.
func TrimPage(versions []models.DocumentVersion, limit int) ([]models.DocumentVersion, bool) {
	if len(versions) > limit {
		return versions[:limit], true
	}
	return versions, false
}

// requireOwnership counts rows matching id+owner before a destructive
// statement runs. The mutating queries repeat the owner predicate; this
// check exists so a miss surfaces as an explicit error first.
func (r *PostgresVersionRepository) requireOwnership(ctx context.Context, userID, docID string) error {
	count, err := r.CountByID(ctx, userID, docID)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}
	return nil
}

// CountByID counts rows matching the identity for the owner.
func (r *PostgresVersionRepository) CountByID(ctx context.Context, userID, docID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Versions)

	var count int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, docID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count versions: %w", err)
	}

	return count, nil
}

// Rename sets the title on all rows sharing the identity. This is a
// cross-version side channel: it does not go through the fork/merge path
// and leaves updated_at untouched.
func (r *PostgresVersionRepository) Rename(ctx context.Context, userID, docID, title string) error {
	if err := r.requireOwnership(ctx, userID, docID); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1
		WHERE id = $2 AND user_id = $3
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, title, docID, userID); err != nil {
		return fmt.Errorf("rename document: %w", err)
	}

	return nil
}

// DeleteAll removes every row for the identity. Individual versions are
// never deleted on their own.
func (r *PostgresVersionRepository) DeleteAll(ctx context.Context, userID, docID string) error {
	if err := r.requireOwnership(ctx, userID, docID); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, docID, userID); err != nil {
		return fmt.Errorf("delete document versions: %w", err)
	}

	return nil
}

// UpdatePublishSettings applies publish attributes to the current row.
// Non-current rows retain stale slugs from before they were superseded, so
// those are cleared first to keep the per-owner slug constraint
// satisfiable. Run inside a transaction.
func (r *PostgresVersionRepository) UpdatePublishSettings(ctx context.Context, userID, docID string, settings models.PublishSettings) (*models.DocumentVersion, error) {
	executor := GetExecutor(ctx, r.pool)

	if settings.Slug != nil {
		conflictQuery := fmt.Sprintf(`
			SELECT id
			FROM %s
			WHERE user_id = $1 AND slug = $2 AND is_current = TRUE AND id <> $3
			LIMIT 1
		`, r.tables.Versions)

		var holderID string
		err := executor.QueryRow(ctx, conflictQuery, userID, *settings.Slug, docID).Scan(&holderID)
		if err == nil {
			return nil, &domain.SlugConflictError{Slug: *settings.Slug, DocumentID: holderID}
		}
		if !isNoRows(err) {
			return nil, fmt.Errorf("check slug conflict: %w", err)
		}
	}

	clearQuery := fmt.Sprintf(`
		UPDATE %s
		SET slug = NULL
		WHERE id = $1 AND user_id = $2 AND is_current = FALSE AND slug IS NOT NULL
	`, r.tables.Versions)

	if _, err := executor.Exec(ctx, clearQuery, docID, userID); err != nil {
		return nil, fmt.Errorf("clear stale slugs: %w", err)
	}

	updateQuery := fmt.Sprintf(`
		UPDATE %s
		SET visibility = $1, author = $2, style = $3, slug = $4
		WHERE id = $5 AND user_id = $6 AND is_current = TRUE
		RETURNING %s
	`, r.tables.Versions, versionColumns)

	var v models.DocumentVersion
	err := scanVersion(executor.QueryRow(ctx, updateQuery,
		settings.Visibility,
		settings.Author,
		settings.Style,
		settings.Slug,
		docID,
		userID,
	), &v)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return nil, &domain.SlugConflictError{Slug: *settings.Slug, DocumentID: docID}
		}
		return nil, fmt.Errorf("update publish settings: %w", err)
	}

	return &v, nil
}

// SearchCurrent matches title or content case-insensitively over current
// rows only.
func (r *PostgresVersionRepository) SearchCurrent(ctx context.Context, userID, query string, limit int) ([]models.DocumentVersion, error) {
	searchQuery := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND is_current = TRUE
		  AND (title ILIKE '%%' || $2 || '%%' OR content ILIKE '%%' || $2 || '%%')
		ORDER BY created_at DESC
		LIMIT $3
	`, versionColumns, r.tables.Versions)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, searchQuery, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search current versions: %w", err)
	}

	return collectVersions(rows)
}
