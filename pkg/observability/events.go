package observability

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType represents the type of fleet event
type EventType string

const (
	// Fleet membership events
	EventRoverRegistered EventType = "rover.registered"
	EventRoverPoweroff   EventType = "rover.poweroff"

	// Program distribution events
	EventProgramChanged   EventType = "program.changed"
	EventUpdateDispatched EventType = "program.update_dispatched"

	// Operator events
	EventManualCommand EventType = "operator.manual_command"
	EventStateFlushed  EventType = "operator.state_flushed"
)

// Event is one audit record of something that happened to the fleet.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RoverID   string    `json:"rover_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// EventStream keeps a bounded in-memory history of fleet events and mirrors
// each one to the structured log.
type EventStream struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	events  []Event
	maxSize int
}

// NewEventStream creates an event stream retaining up to maxSize events.
func NewEventStream(maxSize int, logger *zap.Logger) *EventStream {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &EventStream{
		logger:  logger,
		events:  make([]Event, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record appends an event, trimming oldest-first past the retention bound.
func (es *EventStream) Record(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	es.mu.Lock()
	es.events = append(es.events, event)
	if len(es.events) > es.maxSize {
		es.events = es.events[len(es.events)-es.maxSize:]
	}
	es.mu.Unlock()

	es.logger.Info("Fleet event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("rover_id", event.RoverID),
		zap.String("detail", event.Detail),
	)
}

// Recent returns up to n most recent events, newest last.
func (es *EventStream) Recent(n int) []Event {
	es.mu.RLock()
	defer es.mu.RUnlock()

	if n <= 0 || n > len(es.events) {
		n = len(es.events)
	}
	out := make([]Event, n)
	copy(out, es.events[len(es.events)-n:])
	return out
}
