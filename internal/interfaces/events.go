package interfaces

import "context"

// EventType identifies a class of verification event
type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventStepStarted   EventType = "step_started"
	EventStepCompleted EventType = "step_completed"
	EventRunCompleted  EventType = "run_completed"
)

// Event is a single verification lifecycle event
type Event struct {
	Type    EventType              `json:"type"`
	RunID   string                 `json:"run_id"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// EventHandler processes a published event
type EventHandler func(ctx context.Context, event Event) error

// EventService provides pub/sub for verification events
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
}
