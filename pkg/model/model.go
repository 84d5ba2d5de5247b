// Package model defines the shared data types exchanged between the kernel,
// the trace store, the HTTP monitor, and the CLI.
package model

import "time"

// EventKind classifies a scheduler trace event.
type EventKind string

const (
	EventCreated   EventKind = "created"
	EventUnblocked EventKind = "unblocked"
	EventBlocked   EventKind = "blocked"
	EventYielded   EventKind = "yielded"
	EventSlept     EventKind = "slept"
	EventWoken     EventKind = "woken"
	EventExited    EventKind = "exited"
	EventSwitched  EventKind = "switched"
)

// Event is one scheduler trace record. Seq orders events within a run;
// Tick is the timer tick at which the event occurred.
type Event struct {
	Seq      int64     `json:"seq"`
	Tick     int64     `json:"tick"`
	Kind     EventKind `json:"kind"`
	ThreadID int64     `json:"thread_id"`
	Thread   string    `json:"thread"`
	Detail   string    `json:"detail,omitempty"`
}

// Stats is a snapshot of the kernel's scheduling counters.
type Stats struct {
	Ticks       int64 `json:"ticks"`
	IdleTicks   int64 `json:"idle_ticks"`
	KernelTicks int64 `json:"kernel_ticks"`
	Switches    int64 `json:"switches"`
	Created     int64 `json:"created"`
	Exited      int64 `json:"exited"`
}

// ThreadInfo describes one thread slot for monitoring and traces.
type ThreadInfo struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Priority int    `json:"priority"`
	WakeTick int64  `json:"wake_tick,omitempty"`
	Current  bool   `json:"current,omitempty"`
}

// Snapshot is a consistent view of the scheduler, taken under the
// interrupt mask.
type Snapshot struct {
	Now     int64        `json:"now"`
	Stats   Stats        `json:"stats"`
	Threads []ThreadInfo `json:"threads"`
}

// Response is the standard API envelope returned by the monitor.
type Response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
}

// APIError carries a machine-readable error code plus a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run records one scenario execution for the trace store.
type Run struct {
	ID         string     `json:"id"`
	Scenario   string     `json:"scenario"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Stats      Stats      `json:"stats"`
}
