// Package kernel implements a single-CPU preemptive round-robin thread
// scheduler: a fixed thread table, ready and sleep queues on intrusive
// arena lists, timer-driven preemption, and deferred destruction of exited
// threads. Each thread is backed by a parked goroutine, but at most one
// runs at a time; a handed-over interrupt mask, not Go's scheduler,
// decides who.
package kernel

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/me/nanokern/internal/intr"
	"github.com/me/nanokern/internal/klist"
	"github.com/me/nanokern/internal/platform"
	"github.com/me/nanokern/pkg/model"
)

// sentinelSlots is the arena overhead of the three queues (two sentinels
// each for ready, sleep, destruction).
const sentinelSlots = 6

// Config sizes the scheduler.
type Config struct {
	// MaxThreads bounds the thread table, the main and idle threads
	// included.
	MaxThreads int
	// TimeSlice is the preemption quantum in timer ticks.
	TimeSlice int
}

// DefaultConfig returns the stock sizing: a 64-entry table and a 4-tick
// quantum.
func DefaultConfig() Config {
	return Config{MaxThreads: 64, TimeSlice: 4}
}

// Listener observes scheduler events. Event is invoked with interrupts
// masked, sometimes from interrupt context, and must return quickly
// without blocking or re-entering the kernel.
type Listener interface {
	Event(ev model.Event)
}

// Kernel is one scheduler instance. All state is owned here; two kernels
// in one process do not share anything.
type Kernel struct {
	cfg Config
	log *slog.Logger
	ctl *intr.Controller
	cpu *platform.CPU

	arena       *klist.Arena[Thread]
	ready       *klist.List[Thread]
	sleepers    *klist.List[Thread]
	destruction *klist.List[Thread]

	policy    Policy
	activate  func(space any)
	onExit    func(id ID, name string)
	listeners []Listener

	cur  klist.Handle
	main klist.Handle
	idle klist.Handle

	nextID ID
	now    int64        // ticks since boot; advanced only in interrupt context
	nowPub atomic.Int64 // mirror of now for readers outside the mask

	sliceTicks  int64 // ticks the current thread has held the CPU
	idleTicks   int64
	kernelTicks int64
	switches    int64
	created     int64
	exited      int64
	live        int // created threads that have not exited

	stopping atomic.Bool
	booted   bool
}

// Option configures a Kernel at construction.
type Option func(*Kernel)

// WithPolicy replaces the default round-robin policy.
func WithPolicy(p Policy) Option {
	return func(k *Kernel) { k.policy = p }
}

// WithActivateHook installs a callback invoked with the incoming thread's
// address-space handle on every scheduling decision, including trivial
// ones where the thread keeps the CPU. It runs with interrupts masked.
func WithActivateHook(fn func(space any)) Option {
	return func(k *Kernel) { k.activate = fn }
}

// WithExitHook installs a callback invoked in the exiting thread's own
// context, with interrupts enabled, before it schedules away for the last
// time.
func WithExitHook(fn func(id ID, name string)) Option {
	return func(k *Kernel) { k.onExit = fn }
}

// WithListener registers an event listener. Listeners stack.
func WithListener(l Listener) Option {
	return func(k *Kernel) { k.listeners = append(k.listeners, l) }
}

// New builds a kernel. Interrupts boot masked; nothing runs until Run.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Kernel {
	if cfg.MaxThreads < 2 {
		panic(fmt.Sprintf("kernel: max threads %d cannot hold the main and idle threads", cfg.MaxThreads))
	}
	if cfg.TimeSlice < 1 {
		panic(fmt.Sprintf("kernel: time slice %d must be at least one tick", cfg.TimeSlice))
	}
	arena := klist.NewArena[Thread](cfg.MaxThreads + sentinelSlots)
	k := &Kernel{
		cfg:         cfg,
		log:         logger.With("component", "kernel"),
		ctl:         intr.New(),
		cpu:         platform.NewCPU(),
		arena:       arena,
		ready:       klist.New(arena),
		sleepers:    klist.New(arena),
		destruction: klist.New(arena),
		policy:      RoundRobin{},
		cur:         klist.None,
		main:        klist.None,
		idle:        klist.None,
	}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Run boots the scheduler, runs body as the main thread, and tears the
// scheduler down when body returns. The main thread is the caller's own
// goroutine; body runs with interrupts enabled and full scheduling in
// effect. Run does not wait for other threads; use Quiesce in body if
// that is wanted.
func (k *Kernel) Run(body func()) error {
	if k.booted {
		return errors.New("kernel: already booted")
	}
	k.booted = true

	mainH, err := k.allocThread("main", PriDefault)
	if err != nil {
		return fmt.Errorf("boot main thread: %w", err)
	}
	mt := k.thread(mainH)
	mt.status = StatusRunning
	mt.ctx = platform.Adopt()
	k.main = mainH
	k.cur = mainH

	idleH, err := k.allocThread("idle", PriMin)
	if err != nil {
		return fmt.Errorf("boot idle thread: %w", err)
	}
	it := k.thread(idleH)
	it.ctx = platform.NewContext()
	k.idle = idleH
	idleCtx := it.ctx
	go func() {
		idleCtx.Park()
		if k.stopping.Load() {
			return
		}
		k.enableAfterSwitch()
		k.idleLoop()
	}()

	k.log.Info("scheduler started",
		"max_threads", k.cfg.MaxThreads,
		"time_slice", k.cfg.TimeSlice,
		"policy", k.policy.Name())
	k.ctl.Enable()

	body()

	// Tear down: unpark the idle goroutine so it can observe stopping and
	// return. The kick covers the halted case, the permit the parked one.
	k.stopping.Store(true)
	k.cpu.Kick()
	platform.Start(idleCtx)

	stats := k.Stats()
	k.log.Info("scheduler stopped",
		"ticks", stats.Ticks,
		"switches", stats.Switches,
		"created", stats.Created,
		"exited", stats.Exited)
	return nil
}

// idleLoop runs whenever the ready queue is empty: block, and when nothing
// else is runnable either, halt until the next interrupt. The idle thread
// is never placed on the ready queue; pickNext falls back to it.
func (k *Kernel) idleLoop() {
	for {
		old := k.ctl.Disable()
		if k.stopping.Load() {
			k.ctl.Restore(old)
			return
		}
		k.Block()
		if k.stopping.Load() {
			// Resumed by teardown, which grants the permit without
			// handing over the mask; nothing to restore.
			return
		}
		k.ctl.Restore(old)
		k.cpu.Halt()
	}
}

// enableAfterSwitch releases the mask handed over by the scheduler and
// services any preemption latched while it was held. Every freshly
// dispatched goroutine runs this before anything else.
func (k *Kernel) enableAfterSwitch() {
	k.ctl.Enable()
	k.maybePreempt()
}

// restore is Restore plus preemption service: re-enabling interrupts is
// the software analogue of an interrupt return, so a yield latched by the
// timer is honored here.
func (k *Kernel) restore(old intr.Level) {
	k.ctl.Restore(old)
	if old == intr.On {
		k.maybePreempt()
	}
}

func (k *Kernel) maybePreempt() {
	if k.ctl.TakeYieldRequest() && !k.stopping.Load() {
		k.Yield()
	}
}

// DisableInterrupts masks interrupts for the calling thread, returning the
// previous level for RestoreInterrupts. Masked sections must be short and
// must not block.
func (k *Kernel) DisableInterrupts() intr.Level { return k.ctl.Disable() }

// RestoreInterrupts restores a level saved by DisableInterrupts. Restoring
// to enabled services any preemption requested while masked.
func (k *Kernel) RestoreInterrupts(old intr.Level) { k.restore(old) }

// InInterrupt runs fn in interrupt context, excluded from every masked
// thread section for its duration. This is the entry point for the timer
// driver and for out-of-band readers such as the monitor.
func (k *Kernel) InInterrupt(fn func()) { k.ctl.Handler(fn) }

// Ticks reads the kernel clock from thread context.
func (k *Kernel) Ticks() int64 {
	old := k.ctl.Disable()
	t := k.now
	k.restore(old)
	return t
}

// TickCount reads the tick counter without touching the interrupt mask.
// Safe from any goroutine at any time, including before boot and after
// Run returns; it may trail Ticks by one while a clock interrupt is in
// flight. External observers (monitoring) should prefer this over Ticks.
func (k *Kernel) TickCount() int64 {
	return k.nowPub.Load()
}

// LiveThreads reports how many created threads have not yet exited.
func (k *Kernel) LiveThreads() int {
	old := k.ctl.Disable()
	n := k.live
	k.restore(old)
	return n
}

// Quiesce yields until every created thread has exited. pump, when
// non-nil, is invoked once per iteration to advance a manually driven
// timer; pass nil when a live timer is ticking.
func (k *Kernel) Quiesce(pump func()) {
	for k.LiveThreads() > 0 {
		k.Yield()
		if pump != nil {
			pump()
		}
	}
}

func (k *Kernel) statsLocked() model.Stats {
	return model.Stats{
		Ticks:       k.now,
		IdleTicks:   k.idleTicks,
		KernelTicks: k.kernelTicks,
		Switches:    k.switches,
		Created:     k.created,
		Exited:      k.exited,
	}
}

// Stats returns the scheduling counters.
func (k *Kernel) Stats() model.Stats {
	old := k.ctl.Disable()
	s := k.statsLocked()
	k.restore(old)
	return s
}

// Snapshot captures a consistent view of the clock, counters, and thread
// table. It runs in interrupt context, so any goroutine may call it.
func (k *Kernel) Snapshot() model.Snapshot {
	var snap model.Snapshot
	k.ctl.Handler(func() {
		snap.Now = k.now
		snap.Stats = k.statsLocked()
		k.arena.Each(func(h klist.Handle, t *Thread) {
			if t.magic != threadMagic {
				// Queue sentinels share the arena with threads.
				return
			}
			info := model.ThreadInfo{
				ID:       int64(t.id),
				Name:     t.name,
				Status:   t.status.String(),
				Priority: t.priority,
				Current:  h == k.cur,
			}
			if t.status == StatusBlocked {
				info.WakeTick = t.wakeTick
			}
			snap.Threads = append(snap.Threads, info)
		})
	})
	return snap
}

// emit publishes an event to the listeners. Callers hold the mask.
func (k *Kernel) emit(kind model.EventKind, t *Thread, detail string) {
	if len(k.listeners) == 0 {
		return
	}
	ev := model.Event{
		Tick:     k.now,
		Kind:     kind,
		ThreadID: int64(t.id),
		Thread:   t.name,
		Detail:   detail,
	}
	for _, l := range k.listeners {
		l.Event(ev)
	}
}
