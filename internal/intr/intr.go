// Package intr models the single CPU's interrupt mask. A mutex stands in
// for the hardware interrupt flag: Disable acquires it, Restore(On)
// releases it, and interrupt handlers run holding it, so a masked section
// in thread context excludes the timer handler and vice versa.
//
// The mask is handed across a context switch exactly like the hardware
// flag: the goroutine that masked parks inside the switch and the resumed
// goroutine eventually restores, which is why the mutex is deliberately
// released on a different goroutine than the one that acquired it.
//
// Disable, Restore, and Enable may only be called from the running thread
// (or boot) context. Interrupt-context work enters through Handler and
// must not touch the mask: it already holds it.
package intr

import (
	"sync"
	"sync/atomic"
)

// Level is the interrupt state: On means interrupts are enabled.
type Level uint8

const (
	// Off means interrupts are masked.
	Off Level = iota
	// On means interrupts are enabled.
	On
)

func (l Level) String() string {
	if l == On {
		return "on"
	}
	return "off"
}

// Controller is the interrupt controller for one logical CPU.
//
// Because at most one thread executes at a time, a thread that observes
// the mask held in thread context is necessarily the holder, which is what
// makes nested Disable calls safe without owner tracking.
type Controller struct {
	mu           sync.Mutex
	threadMasked atomic.Bool // mask held by thread/boot context (not a handler)
	inHandler    atomic.Bool
	yieldPending atomic.Bool
}

// New returns a controller in the boot state: interrupts masked, the mask
// held by the booting context. The kernel enables interrupts once the
// scheduler is ready to preempt.
func New() *Controller {
	c := &Controller{}
	c.mu.Lock()
	c.threadMasked.Store(true)
	return c
}

// Level reports the calling thread context's interrupt level.
func (c *Controller) Level() Level {
	if c.threadMasked.Load() {
		return Off
	}
	return On
}

// Disable masks interrupts and returns the previous level. Calling it with
// interrupts already masked is a no-op returning Off, which makes nested
// mask/restore pairs compose. If an interrupt handler is mid-flight,
// Disable waits for it to finish, like the hardware flag would.
func (c *Controller) Disable() Level {
	if c.threadMasked.Load() {
		// Only the mask holder can be executing here.
		return Off
	}
	c.mu.Lock()
	c.threadMasked.Store(true)
	return On
}

// Restore returns the mask to a level previously obtained from Disable.
// Restoring to Off (a nested pair) is a no-op; restoring to On releases
// the mask.
func (c *Controller) Restore(old Level) {
	if old == Off {
		return
	}
	c.Enable()
}

// Enable unmasks interrupts unconditionally and returns the previous
// level. Enabling from a handler is a contract violation.
func (c *Controller) Enable() Level {
	if c.inHandler.Load() {
		panic("intr: enable from interrupt context")
	}
	if !c.threadMasked.Load() {
		return On
	}
	c.threadMasked.Store(false)
	c.mu.Unlock()
	return Off
}

// InHandler reports whether the caller is executing inside Handler. Kernel
// entry points that must not run in interrupt context assert against this
// while holding the mask, at which point no handler can be mid-flight on
// another goroutine.
func (c *Controller) InHandler() bool { return c.inHandler.Load() }

// Handler runs fn in interrupt context: it waits for the mask, marks the
// handler active, and releases on return. fn must not block or invoke
// anything that could reschedule; it runs for bounded time with interrupts
// off and must not call Disable, Restore, or Enable.
func (c *Controller) Handler(fn func()) {
	c.mu.Lock()
	c.inHandler.Store(true)
	defer func() {
		c.inHandler.Store(false)
		c.mu.Unlock()
	}()
	fn()
}

// YieldOnReturn requests that the running thread yield once interrupts are
// re-enabled, the simulation's interrupt-return point. Callable only from
// a handler; the scheduling path itself must never run inside one.
func (c *Controller) YieldOnReturn() {
	if !c.inHandler.Load() {
		panic("intr: yield-on-return outside interrupt context")
	}
	c.yieldPending.Store(true)
}

// TakeYieldRequest consumes a pending yield request, reporting whether one
// was latched.
func (c *Controller) TakeYieldRequest() bool {
	return c.yieldPending.Swap(false)
}
