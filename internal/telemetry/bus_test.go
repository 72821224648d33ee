package telemetry

import (
	"testing"
	"time"
)

func collect(ch <-chan Event, n int, timeout time.Duration) []Event {
	var events []Event
	deadline := time.After(timeout)
	for len(events) < n {
		select {
		case e, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, e)
		case <-deadline:
			return events
		}
	}
	return events
}

func TestBusDeliversInSequenceOrder(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	ch := bus.Subscribe()

	for i := 0; i < 5; i++ {
		bus.Emit(Event{Name: EventStreamChunk})
	}
	bus.Flush()

	events := collect(ch, 5, time.Second)
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].ID <= events[i-1].ID {
			t.Errorf("events out of order: %d after %d", events[i].ID, events[i-1].ID)
		}
	}
}

func TestBusDisabledDropsEvents(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	ch := bus.Subscribe()

	bus.Disable()
	bus.Emit(Event{Name: EventTranslationStarted})
	bus.Flush()

	if events := collect(ch, 1, 50*time.Millisecond); len(events) != 0 {
		t.Errorf("disabled bus delivered %d events", len(events))
	}
}

func TestBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	bus.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			bus.Emit(Event{Name: EventStreamChunk})
		}
		bus.Flush()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a slow subscriber")
	}
}

func TestBusStatsConcurrentWithEmitAndSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			bus.Emit(Event{Name: EventStreamChunk})
			if i%20 == 0 {
				bus.Subscribe()
			}
		}
		close(done)
	}()

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			bus.Stats()
		}
		close(finished)
	}()

	for _, ch := range []chan struct{}{done, finished} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("Stats deadlocked against Emit/Subscribe")
		}
	}

	bus.Flush()
	if s := bus.Stats(); s.TotalEmitted != 200 {
		t.Errorf("TotalEmitted = %d, want 200", s.TotalEmitted)
	}
}

func TestOffloadFallbackPayloadShape(t *testing.T) {
	e := OffloadFallback("req-1", "parse", ReasonTimeout)
	if e.Name != EventOffloadFallback {
		t.Errorf("Name = %q", e.Name)
	}
	if e.Fields["reason"] != "timeout" || e.Fields["task_kind"] != "parse" {
		t.Errorf("unexpected fields: %v", e.Fields)
	}
}

func TestRecorderAccumulates(t *testing.T) {
	r := NewRecorder()
	r.Record("validation", 30*time.Millisecond)
	r.Record("validation", 20*time.Millisecond)

	snap := r.Snapshot()
	if got := snap["validation"]; got < 49.0 || got > 51.0 {
		t.Errorf("validation = %vms, want ~50ms", got)
	}
}
