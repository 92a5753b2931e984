package models

import (
	"time"
)

// Kind classifies a document's content. A kind change on update always
// starts a new version lineage rather than continuing the old one.
type Kind string

const (
	KindText  Kind = "text"
	KindCode  Kind = "code"
	KindSheet Kind = "sheet"
)

// ValidKind reports whether k is a recognized content kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindText, KindCode, KindSheet:
		return true
	}
	return false
}

// Visibility controls who can read a published version.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// DocumentVersion is one row of document state. All versions of the same
// document share ID; (ID, CreatedAt) identifies a single row. At most one
// row per (ID, UserID) carries IsCurrent at any observable instant.
type DocumentVersion struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Kind      Kind      `json:"kind" db:"kind"`
	UserID    string    `json:"userId" db:"user_id"`
	ChatID    *string   `json:"chatId,omitempty" db:"chat_id"`
	IsCurrent bool      `json:"isCurrent" db:"is_current"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Publish attributes. Slug is unique among current rows per owner.
	Visibility Visibility `json:"visibility" db:"visibility"`
	Author     *string    `json:"author,omitempty" db:"author"`
	Style      *string    `json:"style,omitempty" db:"style"`
	Slug       *string    `json:"slug,omitempty" db:"slug"`
}

// PublishSettings holds the publish-facing attributes applied to a
// document's current version.
type PublishSettings struct {
	Visibility Visibility `json:"visibility"`
	Author     *string    `json:"author,omitempty"`
	Style      *string    `json:"style,omitempty"`
	Slug       *string    `json:"slug,omitempty"`
}

// VersionPage is one page of current versions from cursor pagination.
// HasMore is true iff strictly more than the requested limit of rows exist
// older than the cursor.
type VersionPage struct {
	Items   []DocumentVersion `json:"documents"`
	HasMore bool              `json:"hasMore"`
}
