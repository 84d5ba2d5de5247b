// Package platform isolates the context-switch mechanism behind a minimal
// save/restore/enter-idle surface. The scheduler above it is
// architecture-neutral; this is the one implementation, which backs each
// thread context with a goroutine parked on a permit channel. Granting the
// permit is "restore", parking on it is "save": exactly one context holds
// the CPU at a time.
package platform

// Context is the saved execution state of a thread: the goroutine that
// runs it, parked on its permit between turns on the CPU.
type Context struct {
	permit chan struct{}
}

// NewContext returns a context whose goroutine has not run yet. The
// goroutine must call Park before doing anything else.
func NewContext() *Context {
	// Buffer of one: a context is only ever granted while parked (single
	// CPU), so at most one permit is outstanding and Grant never blocks.
	return &Context{permit: make(chan struct{}, 1)}
}

// Adopt returns a context representing the calling goroutine, already
// running. Used at boot to turn the caller into the initial thread.
func Adopt() *Context {
	return &Context{permit: make(chan struct{}, 1)}
}

// Park blocks the calling goroutine until the context is next granted the
// CPU.
func (c *Context) Park() { <-c.permit }

// Switch transfers the CPU from out to in: in resumes where it last
// parked, and the calling goroutine parks until out is next granted.
// Returns when out runs again.
func Switch(out, in *Context) {
	in.permit <- struct{}{}
	<-out.permit
}

// Start resumes in without saving a context to return to. Used when the
// outgoing thread is dying and its goroutine is about to terminate.
func Start(in *Context) {
	in.permit <- struct{}{}
}

// CPU models the one logical processor's halt/wake pair. The idle thread
// halts between interrupts; the interrupt path kicks it awake.
type CPU struct {
	kick chan struct{}
}

// NewCPU returns a CPU that is not halted.
func NewCPU() *CPU {
	return &CPU{kick: make(chan struct{}, 1)}
}

// Halt blocks until the next Kick. The caller must have interrupts
// enabled, or no interrupt could ever deliver the kick.
func (c *CPU) Halt() { <-c.kick }

// Kick wakes a halted CPU. Called from the interrupt path; never blocks.
// A kick delivered while the CPU is running is remembered so the next Halt
// returns immediately, mirroring a pended interrupt.
func (c *CPU) Kick() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}
