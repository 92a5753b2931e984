package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"inkwell/internal/domain/models"
	"inkwell/internal/handler/sse"
	"inkwell/internal/httputil"
	"inkwell/internal/service/completion"
)

// CompletionHandler serves inline completion requests over SSE
type CompletionHandler struct {
	service *completion.Service
	logger  *slog.Logger
}

// NewCompletionHandler creates a new completion handler
func NewCompletionHandler(service *completion.Service, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{
		service: service,
		logger:  logger,
	}
}

type completionRequest struct {
	SessionID string               `json:"sessionId"`
	Prefix    string               `json:"prefix"`
	Suffix    string               `json:"suffix"`
	Class     completion.BlockClass `json:"blockClass"`
}

// Suggest streams one inline suggestion for the cursor position. A newer
// request for the same session supersedes this one mid-flight; the
// superseded stream just ends without a finish frame.
// POST /api/completion
func (h *CompletionHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req completionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" {
		// Sessions default to per-user when the editor sends none
		req.SessionID = userID
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sink := sse.SuggestionSink{Writer: writer}

	err = h.service.Suggest(r.Context(), req.SessionID, &completion.Request{
		Prefix: req.Prefix,
		Suffix: req.Suffix,
		Class:  req.Class,
	}, sink)

	switch {
	case err == nil:
	case errors.Is(err, completion.ErrBelowMinimumContext),
		errors.Is(err, completion.ErrSuperseded):
		// Quiet outcomes: nothing to show, nothing went wrong
	default:
		h.logger.Warn("completion failed", "session_id", req.SessionID, "error", err)
		if sendErr := sink.Send(completion.SuggestionFrame{
			Type:    models.SuggestionEventError,
			Content: "completion unavailable",
		}); sendErr != nil {
			h.logger.Debug("completion error frame dropped", "error", sendErr)
		}
	}
}

type cancelRequest struct {
	SessionID string `json:"sessionId"`
}

// Cancel aborts any in-flight suggestion for the session
// POST /api/completion/cancel
func (h *CompletionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req cancelRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID == "" {
		req.SessionID = userID
	}

	h.service.Cancel(req.SessionID)
	w.WriteHeader(http.StatusNoContent)
}

type acceptanceRequest struct {
	Text string                  `json:"text"`
	List *completion.ListContext `json:"list,omitempty"`
}

// FormatAcceptance re-synthesizes an accepted multi-line suggestion for
// insertion inside a list item
// POST /api/completion/accept
func (h *CompletionHandler) FormatAcceptance(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req acceptanceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"text": completion.FormatAcceptance(req.Text, req.List),
	})
}
