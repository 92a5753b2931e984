package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/domain/models"
	"inkwell/internal/httputil"
	"inkwell/internal/repository/memory"
	"inkwell/internal/service/version"
)

func newDocumentHandler(t *testing.T) (*DocumentHandler, *version.Coordinator) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coordinator := version.NewCoordinator(
		memory.NewVersionRepository(),
		memory.NewChatRepository(),
		memory.NewTransactionManager(),
		10*time.Minute,
		logger,
	)
	return NewDocumentHandler(coordinator, logger), coordinator
}

func authedRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	return httputil.WithUserID(r, "user-1")
}

func decodeApply(t *testing.T, w *httptest.ResponseRecorder) applyResponse {
	t.Helper()
	var resp applyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestActCreatesWithoutID(t *testing.T) {
	h, _ := newDocumentHandler(t)
	w := httptest.NewRecorder()

	h.Act(w, authedRequest(t, http.MethodPost, "/api/document", map[string]interface{}{
		"title":   "Fresh Draft",
		"content": "hello",
		"kind":    "text",
	}))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%s)", w.Code, http.StatusCreated, w.Body.String())
	}
	resp := decodeApply(t, w)
	if resp.Version == nil || resp.Version.Title != "Fresh Draft" {
		t.Errorf("version = %+v, want created document", resp.Version)
	}
	if resp.Version != nil && !resp.Version.IsCurrent {
		t.Error("created version is not current")
	}
}

func TestActRenameByFieldPresence(t *testing.T) {
	h, coordinator := newDocumentHandler(t)
	doc, err := coordinator.Create(context.Background(), &version.CreateRequest{
		UserID:  "user-1",
		Title:   "Old Title",
		Content: "body stays",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	w := httptest.NewRecorder()
	h.Act(w, authedRequest(t, http.MethodPost, "/api/document", map[string]interface{}{
		"id":    doc.ID,
		"title": "New Title",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeApply(t, w)
	if resp.Version.Title != "New Title" {
		t.Errorf("title = %q, want renamed", resp.Version.Title)
	}
	if resp.Version.Content != "body stays" {
		t.Errorf("rename touched content: %q", resp.Version.Content)
	}
}

func TestActUpdateMergesInWindow(t *testing.T) {
	h, coordinator := newDocumentHandler(t)
	doc, err := coordinator.Create(context.Background(), &version.CreateRequest{
		UserID:  "user-1",
		Content: "before",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	w := httptest.NewRecorder()
	h.Act(w, authedRequest(t, http.MethodPost, "/api/document", map[string]interface{}{
		"id":      doc.ID,
		"content": "after",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeApply(t, w)
	if resp.Action != version.ActionMerged {
		t.Errorf("action = %v, want merge inside window", resp.Action)
	}
	if resp.Version.Content != "after" {
		t.Errorf("content = %q, want %q", resp.Version.Content, "after")
	}
}

func TestActRejectsMalformedID(t *testing.T) {
	h, _ := newDocumentHandler(t)
	w := httptest.NewRecorder()

	h.Act(w, authedRequest(t, http.MethodPost, "/api/document", map[string]interface{}{
		"id":      "not-a-uuid",
		"content": "x",
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want problem+json", ct)
	}
}

func TestGetCollapsesMissingAndForeign(t *testing.T) {
	h, coordinator := newDocumentHandler(t)
	doc, err := coordinator.Create(context.Background(), &version.CreateRequest{
		UserID:  "someone-else",
		Content: "private",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	w := httptest.NewRecorder()
	r := authedRequest(t, http.MethodGet, "/api/document/"+doc.ID, nil)
	r.SetPathValue("id", doc.ID)
	h.Get(w, r)

	// Another user's document and a nonexistent one look identical
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRequireUser(t *testing.T) {
	h, _ := newDocumentHandler(t)
	w := httptest.NewRecorder()

	r := httptest.NewRequest(http.MethodGet, "/api/document", nil)
	h.List(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestListClampsLimit(t *testing.T) {
	h, coordinator := newDocumentHandler(t)
	for i := 0; i < 3; i++ {
		if _, err := coordinator.Create(context.Background(), &version.CreateRequest{
			UserID: "user-1",
			Kind:   models.KindText,
		}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	w := httptest.NewRecorder()
	h.List(w, authedRequest(t, http.MethodGet, "/api/document?limit=nope", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-integer limit: status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = httptest.NewRecorder()
	h.List(w, authedRequest(t, http.MethodGet, "/api/document", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("default limit: status = %d (%s)", w.Code, w.Body.String())
	}

	var page models.VersionPage
	if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Items) != 3 || page.HasMore {
		t.Errorf("page = %d items hasMore=%v, want 3 items and no more", len(page.Items), page.HasMore)
	}
}
