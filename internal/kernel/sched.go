package kernel

import (
	"fmt"
	"runtime"

	"github.com/me/nanokern/internal/intr"
	"github.com/me/nanokern/internal/klist"
	"github.com/me/nanokern/internal/platform"
	"github.com/me/nanokern/pkg/model"
)

// Block transitions the calling thread to Blocked and schedules another.
// It must be called with interrupts masked and returns, still masked, only
// after some other thread passes the handle to Unblock. Prefer a primitive
// built on Block/Unblock over calling this directly.
func (k *Kernel) Block() {
	if k.ctl.Level() != intr.Off {
		panic("kernel: block with interrupts enabled")
	}
	if k.ctl.InHandler() {
		panic("kernel: block from interrupt context")
	}
	t := k.current()
	k.emit(model.EventBlocked, t, "")
	k.doSchedule(StatusBlocked)
}

// Unblock moves a blocked thread to the back of the ready queue. It never
// preempts the caller, so a caller can update shared state and release a
// waiter atomically under one mask.
func (k *Kernel) Unblock(h klist.Handle) {
	old := k.ctl.Disable()
	k.unblockLocked(h)
	k.ctl.Restore(old)
}

func (k *Kernel) unblockLocked(h klist.Handle) {
	t := k.thread(h)
	if t.status != StatusBlocked {
		panic(fmt.Sprintf("kernel: unblock of thread %q in status %s", t.name, t.status))
	}
	k.ready.PushBack(h)
	t.status = StatusReady
	k.emit(model.EventUnblocked, t, "")
}

// Yield gives up the CPU. The calling thread goes to the back of the ready
// queue and may be chosen again immediately if nothing else is ready.
func (k *Kernel) Yield() {
	if k.ctl.InHandler() {
		panic("kernel: yield from interrupt context")
	}
	old := k.ctl.Disable()
	if k.cur != k.idle {
		k.ready.PushBack(k.cur)
	}
	k.emit(model.EventYielded, k.current(), "")
	k.doSchedule(StatusReady)
	k.restore(old)
}

// Exit terminates the calling thread and never returns. The thread's slot
// is reclaimed only after a later switch away from it: a thread cannot
// free the context it is still standing on, so destruction is deferred to
// the next scheduling point.
func (k *Kernel) Exit() {
	if k.ctl.InHandler() {
		panic("kernel: exit from interrupt context")
	}
	t := k.current()
	if k.cur == k.idle {
		panic("kernel: idle thread exited")
	}
	if k.onExit != nil {
		k.onExit(t.id, t.name)
	}
	k.log.Debug("thread exiting", "id", t.id, "name", t.name)

	k.ctl.Disable()
	k.exited++
	if t.counted {
		k.live--
	}
	k.emit(model.EventExited, t, "")
	k.doSchedule(StatusDying)
	panic("kernel: exited thread was rescheduled")
}

// doSchedule reaps threads that died before an earlier switch, records the
// caller's new status, and schedules. Interrupts must be masked.
func (k *Kernel) doSchedule(status Status) {
	if k.ctl.Level() != intr.Off {
		panic("kernel: schedule with interrupts enabled")
	}
	for !k.destruction.Empty() {
		victim := k.destruction.PopFront()
		k.log.Debug("thread reclaimed", "id", k.thread(victim).id, "name", k.thread(victim).name)
		k.arena.Free(victim)
	}
	k.current().status = status
	k.schedule()
}

// schedule picks the next thread and switches to it. The caller must have
// already moved the current thread out of Running; the mask travels with
// the switch and is released by the incoming thread. A dying current
// thread is pushed onto the destruction queue and its goroutine ends here.
func (k *Kernel) schedule() {
	curH := k.cur
	cur := k.thread(curH)
	if cur.status == StatusRunning {
		panic("kernel: schedule with current thread still running")
	}

	nextH := k.pickNext()
	next := k.thread(nextH)
	next.status = StatusRunning
	k.sliceTicks = 0
	if k.activate != nil {
		// Activation is per scheduling decision, not per switch: it fires
		// even when the thread keeps the CPU.
		k.activate(next.space)
	}

	if curH == nextH {
		return
	}
	k.switches++
	k.emit(model.EventSwitched, next, "from "+cur.name)
	k.cur = nextH
	if cur.status == StatusDying {
		k.destruction.PushBack(curH)
		platform.Start(next.ctx)
		runtime.Goexit()
	}
	platform.Switch(cur.ctx, next.ctx)
	// Running again. Whoever switched back here already set k.cur and
	// handed us the mask; our caller restores it.
}

// pickNext asks the policy for a thread and falls back to idle when the
// ready queue has nothing.
func (k *Kernel) pickNext() klist.Handle {
	if h := k.policy.PickNext(k.ready); h != klist.None {
		return h
	}
	return k.idle
}
