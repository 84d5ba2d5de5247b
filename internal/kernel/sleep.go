package kernel

import (
	"fmt"

	"github.com/me/nanokern/internal/intr"
	"github.com/me/nanokern/pkg/model"
)

// wakeupLess orders sleepers by ascending deadline. The comparison is
// strict, so threads with equal deadlines keep their insertion order and
// wake FIFO.
func wakeupLess(a, b *Thread) bool { return a.wakeTick < b.wakeTick }

// SleepUntil blocks the calling thread until the kernel clock reaches
// deadline. A deadline at or before the current tick returns immediately.
// Interrupts must be enabled: wakeups ride the timer interrupt, so a
// masked sleeper could never be woken.
func (k *Kernel) SleepUntil(deadline int64) {
	if k.ctl.InHandler() {
		panic("kernel: sleep from interrupt context")
	}
	old := k.ctl.Disable()
	if old != intr.On {
		panic("kernel: sleep with interrupts masked")
	}
	if deadline <= k.now {
		k.restore(old)
		return
	}
	t := k.current()
	t.wakeTick = deadline
	k.emit(model.EventSlept, t, fmt.Sprintf("until tick %d", deadline))
	k.sleepers.InsertOrdered(k.cur, wakeupLess)
	k.Block()
	k.restore(old)
}

// Wakeup unblocks every sleeper whose deadline is at or before now. The
// sleep queue's deadline ordering bounds the scan to the threads actually
// due. Runs in interrupt context.
func (k *Kernel) Wakeup(now int64) {
	if !k.ctl.InHandler() {
		panic("kernel: wakeup outside interrupt context")
	}
	for !k.sleepers.Empty() {
		h := k.sleepers.Front()
		t := k.thread(h)
		if t.wakeTick > now {
			break
		}
		k.sleepers.PopFront()
		t.wakeTick = 0
		k.emit(model.EventWoken, t, "")
		k.unblockLocked(h)
	}
}

// ClockTick advances the kernel clock by one tick and does the per-tick
// bookkeeping: tick accounting, waking due sleepers, and requesting a
// yield once the running thread has used up its whole quantum. Runs in
// interrupt context; returns the new tick count.
func (k *Kernel) ClockTick() int64 {
	if !k.ctl.InHandler() {
		panic("kernel: clock tick outside interrupt context")
	}
	k.now++
	k.nowPub.Store(k.now)
	if k.cur == k.idle {
		k.idleTicks++
	} else {
		k.kernelTicks++
	}
	k.Wakeup(k.now)
	k.sliceTicks++
	if k.sliceTicks >= int64(k.cfg.TimeSlice) {
		k.ctl.YieldOnReturn()
	}
	k.cpu.Kick()
	return k.now
}
