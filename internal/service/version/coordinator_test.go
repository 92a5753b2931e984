package version

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/repository/memory"
)

type fixture struct {
	coordinator *Coordinator
	repo        *memory.VersionRepository
	chats       *memory.ChatRepository
	clock       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:  memory.NewVersionRepository(),
		chats: memory.NewChatRepository(),
		clock: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.coordinator = NewCoordinator(f.repo, f.chats, memory.NewTransactionManager(), 10*time.Minute, logger)

	now := func() time.Time { return f.clock }
	f.coordinator.now = now
	f.repo.NowFunc = now
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) mustCreate(t *testing.T, userID string, kind models.Kind) *models.DocumentVersion {
	t.Helper()
	doc, err := f.coordinator.Create(context.Background(), &CreateRequest{
		UserID: userID,
		Kind:   kind,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return doc
}

func (f *fixture) versionCount(t *testing.T, userID, docID string) int {
	t.Helper()
	n, err := f.repo.CountByID(context.Background(), userID, docID)
	if err != nil {
		t.Fatalf("CountByID() error = %v", err)
	}
	return n
}

func TestApplyMergeVsFork(t *testing.T) {
	tests := []struct {
		name       string
		elapsed    time.Duration
		kind       models.Kind
		wantAction Action
	}{
		{
			name:       "same kind inside window merges",
			elapsed:    2 * time.Minute,
			kind:       models.KindText,
			wantAction: ActionMerged,
		},
		{
			name:       "same kind past window forks",
			elapsed:    12 * time.Minute,
			kind:       models.KindText,
			wantAction: ActionForked,
		},
		{
			name:       "elapsed exactly at window forks",
			elapsed:    10 * time.Minute,
			kind:       models.KindText,
			wantAction: ActionForked,
		},
		{
			name:       "kind change inside window forks",
			elapsed:    2 * time.Minute,
			kind:       models.KindCode,
			wantAction: ActionForked,
		},
		{
			name:       "empty kind inherits and merges",
			elapsed:    2 * time.Minute,
			kind:       "",
			wantAction: ActionMerged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			doc := f.mustCreate(t, "user-1", models.KindText)
			f.advance(tt.elapsed)

			_, action, err := f.coordinator.Apply(context.Background(), &ApplyRequest{
				UserID:     "user-1",
				DocumentID: doc.ID,
				Content:    "updated",
				Kind:       tt.kind,
			})
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if action != tt.wantAction {
				t.Errorf("Apply() action = %v, want %v", action, tt.wantAction)
			}

			wantCount := 1
			if tt.wantAction == ActionForked {
				wantCount = 2
			}
			if got := f.versionCount(t, "user-1", doc.ID); got != wantCount {
				t.Errorf("version count = %d, want %d", got, wantCount)
			}
		})
	}
}

func TestApplyMergeKeepsIdentity(t *testing.T) {
	f := newFixture(t)
	doc := f.mustCreate(t, "user-1", models.KindText)
	created := doc.CreatedAt

	f.advance(2 * time.Minute)
	merged, action, err := f.coordinator.Apply(context.Background(), &ApplyRequest{
		UserID:     "user-1",
		DocumentID: doc.ID,
		Content:    "merged content",
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if action != ActionMerged {
		t.Fatalf("Apply() action = %v, want %v", action, ActionMerged)
	}
	if !merged.CreatedAt.Equal(created) {
		t.Errorf("merge changed createdAt: %v -> %v", created, merged.CreatedAt)
	}
	if !merged.UpdatedAt.After(doc.UpdatedAt) {
		t.Errorf("merge did not advance updatedAt: %v", merged.UpdatedAt)
	}
}

func TestApplyForkDemotesOldCurrent(t *testing.T) {
	f := newFixture(t)
	doc := f.mustCreate(t, "user-1", models.KindText)
	ctx := context.Background()

	f.advance(12 * time.Minute)
	forked, action, err := f.coordinator.Apply(ctx, &ApplyRequest{
		UserID:     "user-1",
		DocumentID: doc.ID,
		Content:    "new lineage",
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if action != ActionForked {
		t.Fatalf("Apply() action = %v, want %v", action, ActionForked)
	}
	if !forked.IsCurrent {
		t.Error("forked version is not current")
	}

	versions, err := f.coordinator.ListVersions(ctx, "user-1", doc.ID)
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	currents := 0
	for _, v := range versions {
		if v.IsCurrent {
			currents++
		}
		if !v.IsCurrent && !v.UpdatedAt.Equal(doc.UpdatedAt) {
			t.Errorf("fork touched old row's updatedAt: %v", v.UpdatedAt)
		}
	}
	if currents != 1 {
		t.Errorf("current rows = %d, want exactly 1", currents)
	}
}

func TestApplyScenarioMergeThenFork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.mustCreate(t, "user-1", models.KindText)

	// t0+2min, same kind: merge, row count stays 1
	f.advance(2 * time.Minute)
	_, action, err := f.coordinator.Apply(ctx, &ApplyRequest{
		UserID:     "user-1",
		DocumentID: doc.ID,
		Content:    "first pass",
	})
	if err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	if action != ActionMerged {
		t.Fatalf("first Apply() action = %v, want merge", action)
	}
	if got := f.versionCount(t, "user-1", doc.ID); got != 1 {
		t.Fatalf("row count after merge = %d, want 1", got)
	}

	// t0+12min (10 past the merge): fork, row count becomes 2
	f.advance(10 * time.Minute)
	forked, action, err := f.coordinator.Apply(ctx, &ApplyRequest{
		UserID:     "user-1",
		DocumentID: doc.ID,
		Content:    "second pass",
	})
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
	if action != ActionForked {
		t.Fatalf("second Apply() action = %v, want fork", action)
	}
	if got := f.versionCount(t, "user-1", doc.ID); got != 2 {
		t.Fatalf("row count after fork = %d, want 2", got)
	}
	if !forked.IsCurrent {
		t.Error("new row is not current")
	}
}

func TestApplyNoCurrentInheritsTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.coordinator.Create(ctx, &CreateRequest{
		UserID: "user-1",
		Title:  "Quarterly Report",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Demote every row so the identity has no current version
	if err := f.repo.ClearCurrent(ctx, "user-1", doc.ID); err != nil {
		t.Fatalf("ClearCurrent() error = %v", err)
	}

	revived, action, err := f.coordinator.Apply(ctx, &ApplyRequest{
		UserID:     "user-1",
		DocumentID: doc.ID,
		Content:    "revived",
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if action != ActionForked {
		t.Errorf("Apply() action = %v, want fork", action)
	}
	if revived.Title != "Quarterly Report" {
		t.Errorf("title = %q, want inherited %q", revived.Title, "Quarterly Report")
	}
}

func TestApplyRejectsMalformedID(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.coordinator.Apply(context.Background(), &ApplyRequest{
		UserID:     "user-1",
		DocumentID: "not-a-uuid",
		Content:    "x",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Apply() error = %v, want ErrValidation", err)
	}
	// Nothing may reach the store on a malformed identifier
	if got := f.versionCount(t, "user-1", "not-a-uuid"); got != 0 {
		t.Errorf("store rows = %d, want 0", got)
	}
}

func TestCreateWithSuppliedID(t *testing.T) {
	f := newFixture(t)
	id := uuid.NewString()

	doc, err := f.coordinator.Create(context.Background(), &CreateRequest{
		UserID: "user-1",
		ID:     &id,
		Title:  "Pinned",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if doc.ID != id {
		t.Errorf("ID = %q, want supplied %q", doc.ID, id)
	}
	if !doc.IsCurrent {
		t.Error("created version is not current")
	}
}

func TestCreateRejectsMalformedSuppliedID(t *testing.T) {
	f := newFixture(t)
	bad := "banana"

	_, err := f.coordinator.Create(context.Background(), &CreateRequest{
		UserID: "user-1",
		ID:     &bad,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("Create() error = %v, want ErrValidation", err)
	}
}

func TestCreateReplacesCurrentAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.NewString()

	first, err := f.coordinator.Create(ctx, &CreateRequest{UserID: "user-1", ID: &id})
	if err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	second, err := f.coordinator.Create(ctx, &CreateRequest{UserID: "user-1", ID: &id})
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if !second.IsCurrent {
		t.Error("second create is not current")
	}

	versions, err := f.coordinator.ListVersions(ctx, "user-1", first.ID)
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	currents := 0
	for _, v := range versions {
		if v.IsCurrent {
			currents++
		}
	}
	if currents != 1 {
		t.Errorf("current rows = %d, want exactly 1", currents)
	}
}

func TestApplyDropsInvalidChatAssociation(t *testing.T) {
	tests := []struct {
		name   string
		chatID string
		seed   bool
		want   bool // association kept
	}{
		{name: "known chat kept", chatID: uuid.NewString(), seed: true, want: true},
		{name: "unknown chat dropped", chatID: uuid.NewString(), seed: false, want: false},
		{name: "malformed chat dropped", chatID: "chat-!!", seed: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.seed {
				f.chats.Add(tt.chatID)
			}
			doc := f.mustCreate(t, "user-1", models.KindText)

			f.advance(time.Minute)
			v, _, err := f.coordinator.Apply(context.Background(), &ApplyRequest{
				UserID:     "user-1",
				DocumentID: doc.ID,
				Content:    "body",
				ChatID:     &tt.chatID,
			})
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}

			got := v.ChatID != nil
			if got != tt.want {
				t.Errorf("chat association kept = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOperationsScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.mustCreate(t, "user-1", models.KindText)

	if _, err := f.coordinator.GetCurrent(ctx, "user-2", doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetCurrent() as other user error = %v, want ErrNotFound", err)
	}
	if err := f.coordinator.Rename(ctx, "user-2", doc.ID, "Hijacked"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Rename() as other user error = %v, want ErrNotFound", err)
	}
	if err := f.coordinator.Delete(ctx, "user-2", doc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete() as other user error = %v, want ErrNotFound", err)
	}

	// Owner still sees an untouched document
	current, err := f.coordinator.GetCurrent(ctx, "user-1", doc.ID)
	if err != nil {
		t.Fatalf("GetCurrent() as owner error = %v", err)
	}
	if current.Title != DefaultTitle {
		t.Errorf("title = %q, want %q", current.Title, DefaultTitle)
	}
}

func TestPublishSlugConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.mustCreate(t, "user-1", models.KindText)
	second := f.mustCreate(t, "user-1", models.KindText)

	slug := "launch-notes"
	if _, err := f.coordinator.Publish(ctx, "user-1", first.ID, models.PublishSettings{
		Visibility: models.VisibilityPublic,
		Slug:       &slug,
	}); err != nil {
		t.Fatalf("first Publish() error = %v", err)
	}

	_, err := f.coordinator.Publish(ctx, "user-1", second.ID, models.PublishSettings{
		Visibility: models.VisibilityPublic,
		Slug:       &slug,
	})
	var conflict *domain.SlugConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("second Publish() error = %v, want SlugConflictError", err)
	}
	if conflict.Slug != slug {
		t.Errorf("conflict slug = %q, want %q", conflict.Slug, slug)
	}
}
