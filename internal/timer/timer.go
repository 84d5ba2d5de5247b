// Package timer turns a tick source into kernel clock interrupts, playing
// the role of a periodic hardware timer. A driver can run live off a
// wall-clock ticker or be pumped manually, one interrupt at a time, for
// deterministic runs.
package timer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/me/nanokern/internal/kernel"
)

// DefaultHz is the stock interrupt frequency for live drivers.
const DefaultHz = 100

// Driver delivers timer interrupts to one kernel.
type Driver struct {
	k   *kernel.Kernel
	log *slog.Logger
	hz  int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a driver interrupting at hz ticks per second. The rate only
// matters once Start is called; an unstarted driver is pumped manually
// with Interrupt, and hz then just scales MSleep conversions.
func New(k *kernel.Kernel, hz int, logger *slog.Logger) *Driver {
	if hz < 1 {
		panic("timer: frequency must be at least 1 Hz")
	}
	return &Driver{
		k:   k,
		log: logger.With("component", "timer"),
		hz:  hz,
	}
}

// Frequency returns the driver's tick rate in Hz.
func (d *Driver) Frequency() int { return d.hz }

// Interrupt delivers a single timer interrupt: the kernel clock advances
// one tick, due sleepers wake, and a preemption may be latched for the
// running thread's next interrupt return.
func (d *Driver) Interrupt() {
	d.k.InInterrupt(func() { d.k.ClockTick() })
}

// Pump delivers n interrupts back to back.
func (d *Driver) Pump(n int) {
	for i := 0; i < n; i++ {
		d.Interrupt()
	}
}

// Ticks reads the kernel clock.
func (d *Driver) Ticks() int64 { return d.k.Ticks() }

// Elapsed reports ticks gone by since a previous Ticks reading.
func (d *Driver) Elapsed(since int64) int64 { return d.k.Ticks() - since }

// Sleep suspends the calling thread for at least ticks timer ticks.
// Non-positive values return immediately.
func (d *Driver) Sleep(ticks int64) {
	if ticks <= 0 {
		return
	}
	d.k.SleepUntil(d.k.Ticks() + ticks)
}

// MSleep suspends the calling thread for at least ms milliseconds,
// rounded up to whole ticks.
func (d *Driver) MSleep(ms int64) {
	if ms <= 0 {
		return
	}
	ticks := (ms*int64(d.hz) + 999) / 1000
	d.Sleep(ticks)
}

// Start begins delivering interrupts at the configured rate until the
// context is canceled or Stop is called.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done != nil {
		return errors.New("timer: already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.loop(ctx)
	d.log.Info("timer started", "hz", d.hz)
	return nil
}

// Stop halts interrupt delivery and waits for the tick loop to drain. It
// is a no-op on a driver that was never started. Like Sleep, Stop must be
// called from thread context.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
	d.cancel = nil
	d.done = nil
	d.log.Info("timer stopped", "ticks", d.k.Ticks())
}

func (d *Driver) loop(ctx context.Context) {
	defer close(d.done)
	tick := time.NewTicker(time.Second / time.Duration(d.hz))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			d.Interrupt()
		}
	}
}
