package mutation

import (
	"inkwell/internal/domain/models"
)

// EventSink receives pipeline events in emission order. The SSE handler
// implements it over the response stream; tests implement it over a
// slice.
type EventSink interface {
	Send(event models.StreamEvent) error
}

func emitText(sink EventSink, eventType, content string) error {
	return sink.Send(models.NewStreamTextEvent(eventType, content))
}

func emitMarker(sink EventSink, eventType string) error {
	return sink.Send(models.NewStreamEvent(eventType))
}
