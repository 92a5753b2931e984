package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"inkwell/internal/domain/models"
	"inkwell/internal/httputil"
	"inkwell/internal/service/version"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	coordinator *version.Coordinator
	logger      *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(coordinator *version.Coordinator, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// documentAction is the single request shape for POST /api/document. The
// action is discriminated by field presence:
//
//	create: no id
//	rename: id + title, without content/kind/chatId
//	update: id + any of content/kind/chatId
type documentAction struct {
	ID      *string     `json:"id,omitempty"`
	Title   *string     `json:"title,omitempty"`
	Content *string     `json:"content,omitempty"`
	Kind    models.Kind `json:"kind,omitempty"`
	ChatID  *string     `json:"chatId,omitempty"`
}

type applyResponse struct {
	Version *models.DocumentVersion `json:"version"`
	Action  version.Action          `json:"action"`
}

// Act routes a document action to create, rename, or merge/fork update
// POST /api/document
func (h *DocumentHandler) Act(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req documentAction
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch {
	case req.ID == nil:
		doc, err := h.coordinator.Create(r.Context(), &version.CreateRequest{
			UserID:  userID,
			Title:   strValue(req.Title),
			Content: strValue(req.Content),
			Kind:    req.Kind,
			ChatID:  req.ChatID,
		})
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusCreated, applyResponse{Version: doc, Action: version.ActionForked})

	case req.Title != nil && req.Content == nil && req.Kind == "" && req.ChatID == nil:
		if err := h.coordinator.Rename(r.Context(), userID, *req.ID, *req.Title); err != nil {
			handleError(w, err)
			return
		}
		doc, err := h.coordinator.GetCurrent(r.Context(), userID, *req.ID)
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, applyResponse{Version: doc})

	default:
		doc, action, err := h.coordinator.Apply(r.Context(), &version.ApplyRequest{
			UserID:     userID,
			DocumentID: *req.ID,
			Content:    strValue(req.Content),
			Kind:       req.Kind,
			ChatID:     req.ChatID,
		})
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, applyResponse{Version: doc, Action: action})
	}
}

// List returns a page of current versions, newest first
// GET /api/document?limit=20&ending_before={id}
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	var endingBefore *string
	if raw := r.URL.Query().Get("ending_before"); raw != "" {
		endingBefore = &raw
	}

	page, err := h.coordinator.ListCurrentPage(r.Context(), userID, limit, endingBefore)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// Get returns the current version of a document, or every version of its
// lineage when ?versions=all is set
// GET /api/document/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	docID := r.PathValue("id")

	if r.URL.Query().Get("versions") == "all" {
		versions, err := h.coordinator.ListVersions(r.Context(), userID, docID)
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"versions": versions})
		return
	}

	doc, err := h.coordinator.GetCurrent(r.Context(), userID, docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Delete removes every version of a document lineage
// DELETE /api/document/{id}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	docID := r.PathValue("id")

	if err := h.coordinator.Delete(r.Context(), userID, docID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Publish updates visibility, author, style, and slug on the current version
// POST /api/document/{id}/publish
func (h *DocumentHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	docID := r.PathValue("id")

	var settings models.PublishSettings
	if err := httputil.ParseJSON(w, r, &settings); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.coordinator.Publish(r.Context(), userID, docID, settings)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Search finds current versions matching a query in title or content
// GET /api/document/search?q=...&limit=...
func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	results, err := h.coordinator.Search(r.Context(), userID, query, limit)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"documents": results})
}

// HealthCheck reports process liveness
// GET /health
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
