package handler

import (
	"log/slog"
	"net/http"

	"inkwell/internal/domain/models"
	"inkwell/internal/handler/sse"
	"inkwell/internal/httputil"
	"inkwell/internal/service/dispatch"
	"inkwell/internal/service/mutation"
)

// AgentHandler exposes the document capabilities to an agent runtime
type AgentHandler struct {
	dispatcher *dispatch.Dispatcher
	pipeline   *mutation.Pipeline
	sseConfig  *sse.Config
	logger     *slog.Logger
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(dispatcher *dispatch.Dispatcher, pipeline *mutation.Pipeline, sseConfig *sse.Config, logger *slog.Logger) *AgentHandler {
	return &AgentHandler{
		dispatcher: dispatcher,
		pipeline:   pipeline,
		sseConfig:  sseConfig,
		logger:     logger,
	}
}

type turnRequest struct {
	ActiveDocumentID *string                 `json:"activeDocumentId,omitempty"`
	ChatID           *string                 `json:"chatId,omitempty"`
	Args             dispatch.CapabilityArgs `json:"args"`
}

// capabilitiesResponse describes the single tool a turn may call
type capabilitiesResponse struct {
	State        dispatch.State            `json:"state"`
	SystemPrompt string                    `json:"systemPrompt"`
	Tools        []dispatch.ToolDefinition `json:"tools"`
}

// Capabilities resolves turn state and returns the one exposed tool with
// its matching system prompt
// GET /api/agent/capabilities?documentId={id}
func (h *AgentHandler) Capabilities(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	turn := &dispatch.TurnContext{UserID: userID}
	if docID := r.URL.Query().Get("documentId"); docID != "" {
		turn.ActiveDocumentID = &docID
	}

	state, doc, err := h.dispatcher.Resolve(r.Context(), turn)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, capabilitiesResponse{
		State:        state,
		SystemPrompt: dispatch.SystemPrompt(state, doc),
		Tools:        dispatch.ToolsFor(state),
	})
}

// Turn executes one agent tool call against the document store, streaming
// pipeline events over SSE. The final frame carries the structured turn
// result; document-level failures arrive as data-error events, not HTTP
// errors.
// POST /api/agent/turn
func (h *AgentHandler) Turn(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req turnRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn := &dispatch.TurnContext{
		UserID:           userID,
		ActiveDocumentID: req.ActiveDocumentID,
		ChatID:           req.ChatID,
	}

	state, _, err := h.dispatcher.Resolve(r.Context(), turn)
	if err != nil {
		handleError(w, err)
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	keepAlive.Start(writer, h.logger)
	defer keepAlive.Stop()

	result, err := h.dispatcher.Execute(r.Context(), turn, state, req.Args, sse.EventSink{Writer: writer})
	if err != nil {
		// Transport is gone; nothing further can reach the client
		h.logger.Warn("turn stream aborted",
			"state", state,
			"error", err,
		)
		return
	}

	if err := writer.WriteEvent(map[string]interface{}{
		"type":   "turn-result",
		"result": result,
	}); err != nil {
		h.logger.Warn("failed to write turn result", "error", err)
	}
}

// proposalRequest carries a client-held proposal back for resolution.
// Proposals never touch storage while pending, so the full shape rides in
// the request.
type proposalRequest struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Kind            models.Kind `json:"kind"`
	OriginalContent string      `json:"originalContent"`
	ProposedContent string      `json:"proposedContent"`
	ChatID          *string     `json:"chatId,omitempty"`
}

func (r *proposalRequest) toProposal() *models.Proposal {
	return &models.Proposal{
		DocumentID:      r.ID,
		Title:           r.Title,
		Kind:            r.Kind,
		OriginalContent: r.OriginalContent,
		ProposedContent: r.ProposedContent,
		Status:          models.ProposalPending,
	}
}

// AcceptProposal commits a pending proposal through the merge/fork path
// POST /api/proposal/accept
func (h *AgentHandler) AcceptProposal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req proposalRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	proposal := req.toProposal()
	doc, err := h.pipeline.Accept(r.Context(), userID, proposal, req.ChatID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"version":  doc,
		"proposal": proposal,
	})
}

// RejectProposal discards a pending proposal without any store access
// POST /api/proposal/reject
func (h *AgentHandler) RejectProposal(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req proposalRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	proposal := req.toProposal()
	h.pipeline.Reject(proposal)

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"proposal": proposal,
	})
}
