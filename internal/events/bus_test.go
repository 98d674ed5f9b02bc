package events

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()
	if bus == nil {
		t.Fatal("expected non-nil bus")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
	if len(bus.History()) != 0 {
		t.Errorf("expected empty history, got %d events", len(bus.History()))
	}
}

func TestBusSubscribe(t *testing.T) {
	bus := NewBus()

	ch1 := bus.Subscribe()
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}

	ch2 := bus.Subscribe()
	if bus.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", bus.SubscriberCount())
	}

	if ch1 == nil || ch2 == nil {
		t.Error("expected non-nil channels")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	ch := bus.Subscribe()
	bus.Unsubscribe(ch)
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
}

func TestBusPublish(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()

	bus.Publish(NewRunStartEvent("127.0.0.1:6379", "PUT", 1000, 1))

	select {
	case received := <-ch:
		if received.Type != EventRunStart {
			t.Errorf("expected type %s, got %s", EventRunStart, received.Type)
		}
		if received.Target != "127.0.0.1:6379" {
			t.Errorf("expected target 127.0.0.1:6379, got %s", received.Target)
		}
		if received.Data.Ops != 1000 {
			t.Errorf("expected 1000 ops, got %d", received.Data.Ops)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestBusPublishMultipleSubscribers(t *testing.T) {
	bus := NewBus()

	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()

	bus.Publish(NewPingEvent("target", true, time.Millisecond))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.Type != EventPing {
				t.Errorf("subscriber %d: expected type %s, got %s", i, EventPing, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestBusPublishNonBlocking(t *testing.T) {
	bus := NewBus()
	bus.bufferSize = 1

	ch := bus.Subscribe()

	bus.Publish(NewRunStartEvent("t", "PUT", 1, 1))
	bus.Publish(NewRunStartEvent("t", "GET", 1, 1))
	bus.Publish(NewRunStartEvent("t", "MIXED (80% reads)", 1, 1))

	select {
	case ev := <-ch:
		if ev.Data.Operation != "PUT" {
			t.Errorf("expected first event to be kept, got %s", ev.Data.Operation)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for first event")
	}
}

func TestBusHistory(t *testing.T) {
	bus := NewBus()
	bus.historySize = 3

	for i := 0; i < 5; i++ {
		bus.Publish(NewRunStartEvent("t", fmt.Sprintf("op-%d", i), i, 1))
	}

	history := bus.History()
	if len(history) != 3 {
		t.Fatalf("expected 3 events, got %d", len(history))
	}
	for i, ev := range history {
		if want := fmt.Sprintf("op-%d", i+2); ev.Data.Operation != want {
			t.Errorf("history[%d] = %s, want %s", i, ev.Data.Operation, want)
		}
	}
}

func TestBusClose(t *testing.T) {
	bus := NewBus()

	ch := bus.Subscribe()
	bus.Close()

	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", bus.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}

	// Publishing and subscribing after close must not panic
	bus.Publish(NewSuiteCompleteEvent("t", 1))
	if _, ok := <-bus.Subscribe(); ok {
		t.Error("expected subscription on closed bus to be closed")
	}
}

func TestNilBusPublish(t *testing.T) {
	var bus *Bus
	var pub Publisher = bus
	pub.Publish(NewSuiteCompleteEvent("t", 1))
}

func TestEventCreation(t *testing.T) {
	t.Run("PingEvent", func(t *testing.T) {
		event := NewPingEvent("t", false, 2*time.Millisecond)
		if event.Type != EventPing || event.Data.OK {
			t.Errorf("unexpected ping event: %+v", event)
		}
		if event.Data.AvgLatencyMs != 2 {
			t.Errorf("expected 2ms, got %f", event.Data.AvgLatencyMs)
		}
	})

	t.Run("RunCompleteEvent", func(t *testing.T) {
		event := NewRunCompleteEvent("t", EventData{Operation: "GET", Ops: 10, OpsPerSec: 5})
		if event.Type != EventRunComplete {
			t.Errorf("expected %s, got %s", EventRunComplete, event.Type)
		}
		if !event.Data.OK || event.Data.Operation != "GET" || event.Data.Ops != 10 {
			t.Errorf("unexpected data: %+v", event.Data)
		}
	})

	t.Run("RunFailedEvent", func(t *testing.T) {
		event := NewRunFailedEvent("t", "PUT", errors.New("connection refused"))
		if event.Type != EventRunFailed {
			t.Errorf("expected %s, got %s", EventRunFailed, event.Type)
		}
		if event.Data.Error != "connection refused" {
			t.Errorf("expected error message, got %q", event.Data.Error)
		}

		noErr := NewRunFailedEvent("t", "PUT", nil)
		if noErr.Data.Error != "" {
			t.Errorf("expected empty error, got %q", noErr.Data.Error)
		}
	})

	t.Run("SuiteCompleteEvent", func(t *testing.T) {
		event := NewSuiteCompleteEvent("t", 3)
		if event.Data.Runs != 3 || !event.Data.OK {
			t.Errorf("unexpected data: %+v", event.Data)
		}
	})
}
