package kernel

import (
	"errors"
	"fmt"

	"github.com/me/nanokern/internal/klist"
	"github.com/me/nanokern/internal/platform"
	"github.com/me/nanokern/pkg/model"
)

// ID is a thread identifier. IDs are unique and monotonically increasing
// for the life of a kernel.
type ID int64

// Status is a thread's scheduling state.
type Status uint8

const (
	// StatusBlocked means the thread is waiting for an Unblock: sleeping,
	// or parked on some primitive built above Block.
	StatusBlocked Status = iota
	// StatusReady means the thread is on the ready queue, eligible to run.
	StatusReady
	// StatusRunning means the thread owns the CPU.
	StatusRunning
	// StatusDying means the thread has exited and awaits reclamation.
	StatusDying
)

func (s Status) String() string {
	switch s {
	case StatusBlocked:
		return "blocked"
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusDying:
		return "dying"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Advisory priority range. Round-robin ignores priority; the field rides
// along for policies that care.
const (
	PriMin     = 0
	PriDefault = 31
	PriMax     = 63
)

// threadMagic tags live thread slots so that a handle pointing at a freed
// or overwritten slot is caught instead of silently misscheduled.
const threadMagic uint32 = 0x5ca1ab1e

// ErrNoThreadSlots is returned by Create when the thread table is full.
// This is the scheduler's one recoverable failure: existing threads are
// unaffected.
var ErrNoThreadSlots = errors.New("kernel: thread table full")

// Thread is one thread control block. Threads live in the kernel's arena;
// queue membership is the arena slot's single link pair, so a thread is on
// at most one of the ready, sleep, and destruction queues at a time,
// consistent with its status.
type Thread struct {
	id       ID
	name     string
	status   Status
	priority int
	wakeTick int64 // deadline; meaningful only while on the sleep queue
	ctx      *platform.Context
	space    any // address-space handle, owned by the process layer
	counted  bool
	magic    uint32
}

// thread resolves a handle, checking the corruption tag. A stale or
// trampled slot is fatal: every other scheduler guarantee stands on the
// thread table being intact.
func (k *Kernel) thread(h klist.Handle) *Thread {
	t := k.arena.At(h)
	if t.magic != threadMagic {
		panic(fmt.Sprintf("kernel: slot %d is not a live thread (corrupted table?)", h))
	}
	return t
}

// current returns the running thread's control block.
func (k *Kernel) current() *Thread {
	t := k.thread(k.cur)
	if t.status != StatusRunning {
		panic(fmt.Sprintf("kernel: current thread %q has status %s", t.name, t.status))
	}
	return t
}

// allocThread grabs a slot and does the basic initialization shared by
// boot and Create: a blocked thread with a fresh id.
func (k *Kernel) allocThread(name string, priority int) (klist.Handle, error) {
	if name == "" {
		panic("kernel: thread with empty name")
	}
	if priority < PriMin || priority > PriMax {
		panic(fmt.Sprintf("kernel: priority %d outside [%d,%d]", priority, PriMin, PriMax))
	}
	h, err := k.arena.Alloc()
	if err != nil {
		return klist.None, ErrNoThreadSlots
	}
	k.nextID++
	*k.arena.At(h) = Thread{
		id:       k.nextID,
		name:     name,
		status:   StatusBlocked,
		priority: priority,
		magic:    threadMagic,
	}
	return h, nil
}

// Create spawns a new thread running fn and adds it to the ready queue,
// returning its handle. Once scheduling has started the new thread may run,
// and even exit, before Create returns; the creator may equally run
// arbitrarily long first. Callers that need an ordering must build one
// from Block/Unblock.
func (k *Kernel) Create(name string, priority int, fn func()) (klist.Handle, error) {
	if fn == nil {
		panic("kernel: create with nil entry function")
	}
	h, err := k.allocThread(name, priority)
	if err != nil {
		return klist.None, fmt.Errorf("create thread %q: %w", name, err)
	}
	t := k.thread(h)
	t.ctx = platform.NewContext()
	t.counted = true

	// Trampoline: wait for the first dispatch, release the mask the
	// scheduler handed over, run fn, and exit if it returns.
	ctx := t.ctx
	go func() {
		ctx.Park()
		k.enableAfterSwitch()
		fn()
		k.Exit()
	}()

	old := k.ctl.Disable()
	k.created++
	k.live++
	k.emit(model.EventCreated, t, "")
	k.ctl.Restore(old)

	k.log.Debug("thread created", "id", t.id, "name", name, "priority", priority)
	k.Unblock(h)
	return h, nil
}

// Current returns the calling thread's id.
func (k *Kernel) Current() ID { return k.current().id }

// CurrentName returns the calling thread's name.
func (k *Kernel) CurrentName() string { return k.current().name }

// Priority returns the calling thread's advisory priority.
func (k *Kernel) Priority() int { return k.current().priority }

// SetPriority updates the calling thread's advisory priority.
func (k *Kernel) SetPriority(p int) {
	if p < PriMin || p > PriMax {
		panic(fmt.Sprintf("kernel: priority %d outside [%d,%d]", p, PriMin, PriMax))
	}
	k.current().priority = p
}

// BindSpace attaches an opaque address-space handle to a thread. The
// scheduler passes it to the activation hook on every scheduling decision.
func (k *Kernel) BindSpace(h klist.Handle, space any) {
	old := k.ctl.Disable()
	k.thread(h).space = space
	k.restore(old)
}
