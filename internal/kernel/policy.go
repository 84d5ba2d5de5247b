package kernel

import "github.com/me/nanokern/internal/klist"

// Policy decides which ready thread runs next. PickNext must remove the
// returned element from the queue, or return klist.None to let the
// scheduler fall back to the idle thread. It is always invoked with
// interrupts masked and must not block.
type Policy interface {
	Name() string
	PickNext(ready *klist.List[Thread]) klist.Handle
}

// RoundRobin dispatches ready threads strictly in arrival order. Thread
// priority is advisory and ignored.
type RoundRobin struct{}

func (RoundRobin) Name() string { return "round-robin" }

func (RoundRobin) PickNext(ready *klist.List[Thread]) klist.Handle {
	if ready.Empty() {
		return klist.None
	}
	return ready.PopFront()
}
