package models

import (
	"encoding/json"
	"fmt"
)

// Mutation-pipeline stream event types. Every capability emits only this
// vocabulary, so clients can render any capability with one reducer.
const (
	StreamEventID        = "data-id"
	StreamEventTitle     = "data-title"
	StreamEventClear     = "data-clear"
	StreamEventTextDelta = "data-textDelta"
	StreamEventForceSave = "data-force-save"
	StreamEventFinish    = "data-finish"
	StreamEventError     = "data-error"
)

// StreamEvent is one frame of the mutation-pipeline push channel. Content
// is nil for marker events (clear, force-save, finish).
type StreamEvent struct {
	Type    string  `json:"type"`
	Content *string `json:"content"`
}

// NewStreamEvent creates a marker event carrying no payload.
func NewStreamEvent(eventType string) StreamEvent {
	return StreamEvent{Type: eventType}
}

// NewStreamTextEvent creates an event carrying a string payload.
func NewStreamTextEvent(eventType, content string) StreamEvent {
	return StreamEvent{Type: eventType, Content: &content}
}

// Inline-completion stream event types.
const (
	SuggestionEventDelta  = "suggestion-delta"
	SuggestionEventFinish = "finish"
	SuggestionEventError  = "error"
)

// FormatSSE renders an event payload as a newline-delimited SSE frame:
//
//	data: {"type": "...", ...}
//	\n
func FormatSSE(data interface{}) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal SSE event: %w", err)
	}
	return fmt.Sprintf("data: %s\n\n", payload), nil
}
