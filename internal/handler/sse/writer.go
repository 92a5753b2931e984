package sse

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"inkwell/internal/domain/models"
	"inkwell/internal/service/completion"
)

// Writer streams SSE frames over an HTTP response. Writes are serialized
// with a mutex because the keep-alive goroutine shares the connection with
// the handler goroutine.
type Writer struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares the response for SSE streaming and returns a Writer.
// Returns an error if the ResponseWriter does not support flushing.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming not supported by response writer")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteEvent marshals the payload as a single SSE data frame and flushes
func (s *Writer) WriteEvent(data interface{}) error {
	frame, err := models.FormatSSE(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return fmt.Errorf("write SSE frame failed: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// WriteKeepAlive writes an SSE comment (: keepalive\n\n) and flushes.
// SSE spec: lines starting with : are comments, ignored by the client.
func (s *Writer) WriteKeepAlive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, ": keepalive\n\n"); err != nil {
		return fmt.Errorf("write keepalive failed: %w", err)
	}
	s.flusher.Flush()

	// Zero-byte write to detect closed connections
	if _, err := s.w.Write([]byte{}); err != nil {
		return fmt.Errorf("connection closed: %w", err)
	}

	return nil
}

// EventSink adapts a Writer to the mutation pipeline's event sink
type EventSink struct {
	Writer *Writer
}

func (e EventSink) Send(event models.StreamEvent) error {
	return e.Writer.WriteEvent(event)
}

// SuggestionSink adapts a Writer to the completion service's sink
type SuggestionSink struct {
	Writer *Writer
}

func (s SuggestionSink) Send(event completion.SuggestionFrame) error {
	return s.Writer.WriteEvent(event)
}
