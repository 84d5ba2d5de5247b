// Package trace records scheduler events during a run and persists them
// afterwards. Recording happens with interrupts masked inside the kernel,
// so the recorder does nothing but buffer; all I/O is deferred to Flush.
package trace

import (
	"context"
	"fmt"
	"sync"

	"github.com/me/nanokern/internal/store"
	"github.com/me/nanokern/pkg/model"
)

// DefaultMaxEvents bounds recorder memory for long runs.
const DefaultMaxEvents = 100000

// Recorder buffers scheduler events in memory, assigning each a sequence
// number. It implements the kernel's Listener interface. Once the buffer
// is full further events are counted as dropped rather than recorded.
type Recorder struct {
	mu      sync.Mutex
	max     int
	seq     int64
	events  []model.Event
	dropped int64
}

// NewRecorder builds a recorder holding at most max events. max <= 0
// selects DefaultMaxEvents.
func NewRecorder(max int) *Recorder {
	if max <= 0 {
		max = DefaultMaxEvents
	}
	return &Recorder{max: max}
}

// Event buffers one scheduler event. It runs with interrupts masked and
// must stay cheap.
func (r *Recorder) Event(ev model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) >= r.max {
		r.dropped++
		return
	}
	r.seq++
	ev.Seq = r.seq
	r.events = append(r.events, ev)
}

// Events returns a copy of the buffered events.
func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len reports how many events are buffered.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Dropped reports how many events overflowed the buffer.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Flush persists the buffered events for runID and clears the buffer.
func (r *Recorder) Flush(ctx context.Context, st store.Store, runID string) error {
	r.mu.Lock()
	events := r.events
	r.events = nil
	r.mu.Unlock()

	if err := st.AppendEvents(ctx, runID, events); err != nil {
		return fmt.Errorf("flush %d events for run %s: %w", len(events), runID, err)
	}
	return nil
}
