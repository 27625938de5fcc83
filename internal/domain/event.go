package domain

import "time"

// EventType classifies generation lifecycle events.
type EventType string

const (
	EventTypeGenerationSubmitted EventType = "generation.submitted"
	EventTypeGenerationStarted   EventType = "generation.started"
	EventTypeGenerationStage     EventType = "generation.stage"
	EventTypeGenerationCompleted EventType = "generation.completed"
	EventTypeGenerationFailed    EventType = "generation.failed"
	EventTypeGenerationCancelled EventType = "generation.cancelled"
)

// Event is published on the event bus at every lifecycle transition.
type Event struct {
	ID           string                 `json:"id"`
	Type         EventType              `json:"type"`
	GenerationID string                 `json:"generation_id"`
	Timestamp    time.Time              `json:"timestamp"`
	Data         map[string]interface{} `json:"data,omitempty"`
}
