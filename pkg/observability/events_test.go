package observability

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func TestEventStreamRecord(t *testing.T) {
	es := NewEventStream(16, zap.NewNop())

	es.Record(Event{Type: EventRoverRegistered, RoverID: "rover-1", Detail: "Amber Auk"})

	events := es.Recent(0)
	if len(events) != 1 {
		t.Fatalf("Recent() = %d events, want 1", len(events))
	}
	e := events[0]
	if e.ID == "" {
		t.Error("Record() should assign an event id")
	}
	if e.Timestamp.IsZero() {
		t.Error("Record() should assign a timestamp")
	}
	if e.Type != EventRoverRegistered || e.RoverID != "rover-1" {
		t.Errorf("event = %+v", e)
	}
}

func TestEventStreamRetentionBound(t *testing.T) {
	es := NewEventStream(3, zap.NewNop())

	for i := 0; i < 10; i++ {
		es.Record(Event{Type: EventManualCommand, Detail: fmt.Sprintf("cmd-%d", i)})
	}

	events := es.Recent(0)
	if len(events) != 3 {
		t.Fatalf("Recent() = %d events, want retention bound 3", len(events))
	}
	// Oldest entries were trimmed first.
	if events[0].Detail != "cmd-7" || events[2].Detail != "cmd-9" {
		t.Errorf("retained events = %+v", events)
	}
}

func TestEventStreamRecentLimit(t *testing.T) {
	es := NewEventStream(16, zap.NewNop())
	for i := 0; i < 5; i++ {
		es.Record(Event{Type: EventProgramChanged, Detail: fmt.Sprintf("v%d", i)})
	}

	events := es.Recent(2)
	if len(events) != 2 {
		t.Fatalf("Recent(2) = %d events", len(events))
	}
	// Newest last.
	if events[1].Detail != "v4" {
		t.Errorf("Recent(2) = %+v", events)
	}
}
