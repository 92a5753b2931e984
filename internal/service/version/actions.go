package version

import (
	"context"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxSearchLimit   = 50
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// GetCurrent returns the current version after identifier validation.
func (c *Coordinator) GetCurrent(ctx context.Context, userID, docID string) (*models.DocumentVersion, error) {
	if err := ValidateID(docID); err != nil {
		return nil, err
	}
	return c.repo.GetCurrent(ctx, userID, docID)
}

// ListVersions returns every version of a document, oldest first.
func (c *Coordinator) ListVersions(ctx context.Context, userID, docID string) ([]models.DocumentVersion, error) {
	if err := ValidateID(docID); err != nil {
		return nil, err
	}

	versions, err := c.repo.ListVersions(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}
	return versions, nil
}

// ListCurrentPage pages the owner's current versions newest-first.
func (c *Coordinator) ListCurrentPage(ctx context.Context, userID string, limit int, endingBefore *string) (*models.VersionPage, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if endingBefore != nil {
		if err := ValidateID(*endingBefore); err != nil {
			return nil, err
		}
	}
	return c.repo.ListCurrentPage(ctx, userID, limit, endingBefore)
}

// Rename changes the title on every version of the document. This runs
// outside the merge/fork logic and touches no content or timestamps.
func (c *Coordinator) Rename(ctx context.Context, userID, docID, title string) error {
	if err := ValidateID(docID); err != nil {
		return err
	}
	if err := validation.Validate(title, validation.Required, validation.Length(1, 255)); err != nil {
		return fmt.Errorf("%w: title %v", domain.ErrValidation, err)
	}
	return c.repo.Rename(ctx, userID, docID, title)
}

// Delete removes the document and all of its versions.
func (c *Coordinator) Delete(ctx context.Context, userID, docID string) error {
	if err := ValidateID(docID); err != nil {
		return err
	}
	return c.repo.DeleteAll(ctx, userID, docID)
}

// Publish applies publish settings to the document's current version
// inside one transaction.
func (c *Coordinator) Publish(ctx context.Context, userID, docID string, settings models.PublishSettings) (*models.DocumentVersion, error) {
	if err := ValidateID(docID); err != nil {
		return nil, err
	}
	if settings.Visibility != models.VisibilityPublic && settings.Visibility != models.VisibilityPrivate {
		return nil, fmt.Errorf("%w: unknown visibility '%s'", domain.ErrValidation, settings.Visibility)
	}
	if settings.Slug != nil && !slugPattern.MatchString(*settings.Slug) {
		return nil, fmt.Errorf("%w: slug must be lowercase words separated by hyphens", domain.ErrValidation)
	}

	var published *models.DocumentVersion
	err := c.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var txErr error
		published, txErr = c.repo.UpdatePublishSettings(txCtx, userID, docID, settings)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return published, nil
}

// Search matches title or content over the owner's current versions.
func (c *Coordinator) Search(ctx context.Context, userID, query string, limit int) ([]models.DocumentVersion, error) {
	if err := validation.Validate(query, validation.Required); err != nil {
		return nil, fmt.Errorf("%w: query %v", domain.ErrValidation, err)
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = defaultPageLimit
	}
	return c.repo.SearchCurrent(ctx, userID, query, limit)
}
