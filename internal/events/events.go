// Package events provides progress notifications for benchmark runs.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventPing is emitted after the liveness check that precedes a suite
	EventPing EventType = "ping"
	// EventRunStart is emitted when a workload begins
	EventRunStart EventType = "run_start"
	// EventRunComplete is emitted when a workload finishes with a result
	EventRunComplete EventType = "run_complete"
	// EventRunFailed is emitted when a workload or the suite is aborted
	EventRunFailed EventType = "run_failed"
	// EventSuiteComplete is emitted after the last workload of a suite
	EventSuiteComplete EventType = "suite_complete"
)

// Event represents a benchmark progress event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Target    string    `json:"target"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Operation    string  `json:"operation,omitempty"`
	Ops          int     `json:"ops,omitempty"`
	Connections  int     `json:"connections,omitempty"`
	Failed       int     `json:"failed,omitempty"`
	DurationSec  float64 `json:"duration_sec,omitempty"`
	OpsPerSec    float64 `json:"ops_per_sec,omitempty"`
	AvgLatencyMs float64 `json:"avg_latency_ms,omitempty"`
	P50LatencyMs float64 `json:"p50_latency_ms,omitempty"`
	P99LatencyMs float64 `json:"p99_latency_ms,omitempty"`
	Runs         int     `json:"runs,omitempty"`
	OK           bool    `json:"ok,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// NewPingEvent creates a liveness check event
func NewPingEvent(target string, ok bool, latency time.Duration) Event {
	return Event{
		Type:      EventPing,
		Timestamp: time.Now(),
		Target:    target,
		Data: EventData{
			OK:           ok,
			AvgLatencyMs: float64(latency.Nanoseconds()) / 1e6,
		},
	}
}

// NewRunStartEvent creates a workload start event
func NewRunStartEvent(target, operation string, ops, connections int) Event {
	return Event{
		Type:      EventRunStart,
		Timestamp: time.Now(),
		Target:    target,
		Data: EventData{
			Operation:   operation,
			Ops:         ops,
			Connections: connections,
		},
	}
}

// NewRunCompleteEvent creates a workload completion event.
// data carries the result figures; Operation must be set by the caller.
func NewRunCompleteEvent(target string, data EventData) Event {
	data.OK = true
	return Event{
		Type:      EventRunComplete,
		Timestamp: time.Now(),
		Target:    target,
		Data:      data,
	}
}

// NewRunFailedEvent creates a workload failure event
func NewRunFailedEvent(target, operation string, err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventRunFailed,
		Timestamp: time.Now(),
		Target:    target,
		Data: EventData{
			Operation: operation,
			Error:     errMsg,
		},
	}
}

// NewSuiteCompleteEvent creates the event closing a suite of runs
func NewSuiteCompleteEvent(target string, runs int) Event {
	return Event{
		Type:      EventSuiteComplete,
		Timestamp: time.Now(),
		Target:    target,
		Data: EventData{
			Runs: runs,
			OK:   true,
		},
	}
}
