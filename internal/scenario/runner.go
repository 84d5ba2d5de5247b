package scenario

import (
	"fmt"
	"log/slog"

	"github.com/me/nanokern/internal/kernel"
	"github.com/me/nanokern/internal/timer"
)

// Runner executes a scenario inside a booted kernel. Run must be called
// from the kernel's main thread; spawned threads are ordinary kernel
// threads executing their step programs.
type Runner struct {
	sc     *Scenario
	k      *kernel.Kernel
	tm     *timer.Driver
	log    *slog.Logger
	byName map[string]*ThreadDef
}

// NewRunner wires a parsed scenario to a kernel and its timer.
func NewRunner(sc *Scenario, k *kernel.Kernel, tm *timer.Driver, logger *slog.Logger) *Runner {
	byName := make(map[string]*ThreadDef, len(sc.Threads))
	for i := range sc.Threads {
		byName[sc.Threads[i].Name] = &sc.Threads[i]
	}
	return &Runner{
		sc:     sc,
		k:      k,
		tm:     tm,
		log:    logger.With("component", "scenario"),
		byName: byName,
	}
}

// Run creates every boot thread and waits until all created threads have
// exited. In manual mode (frequency 0) the main thread also plays the
// timer: one interrupt per quiesce iteration.
func (r *Runner) Run() error {
	for i := range r.sc.Threads {
		t := &r.sc.Threads[i]
		if !t.StartsAtBoot() {
			continue
		}
		if err := r.spawn(t); err != nil {
			return err
		}
	}

	var pump func()
	if r.sc.Frequency == 0 {
		pump = r.tm.Interrupt
	}
	r.k.Quiesce(pump)
	r.log.Info("scenario finished", "name", r.sc.Name, "ticks", r.tm.Ticks())
	return nil
}

func (r *Runner) spawn(t *ThreadDef) error {
	prio := t.Priority
	if prio == 0 {
		prio = kernel.PriDefault
	}
	_, err := r.k.Create(t.Name, prio, r.body(t))
	if err != nil {
		return fmt.Errorf("spawn %q: %w", t.Name, err)
	}
	return nil
}

// body builds the thread entry function for one definition.
func (r *Runner) body(t *ThreadDef) func() {
	steps := t.Steps
	return func() {
		for _, s := range steps {
			r.step(t.Name, s)
		}
	}
}

func (r *Runner) step(name string, s Step) {
	switch s.Op {
	case OpSpin:
		// Busy wait: poll the clock and yield, so manual-mode pumping by
		// the main thread can make progress.
		start := r.tm.Ticks()
		for r.tm.Elapsed(start) < s.Ticks {
			r.k.Yield()
		}
	case OpSleep:
		r.tm.Sleep(s.Ticks)
	case OpSleepMS:
		r.tm.MSleep(s.MS)
	case OpYield:
		n := s.Count
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			r.k.Yield()
		}
	case OpSpawn:
		target := r.byName[s.Thread]
		if err := r.spawn(target); err != nil {
			// Table exhaustion is the one survivable create failure;
			// the scenario keeps going without the child.
			r.log.Warn("spawn failed", "thread", name, "target", s.Thread, "error", err)
		}
	case OpLog:
		r.log.Info(s.Message, "thread", name, "tick", r.tm.Ticks())
	}
}
