package platform

import (
	"testing"
	"time"
)

func TestSwitchHandsOff(t *testing.T) {
	a := Adopt()
	b := NewContext()

	order := make(chan string, 4)
	go func() {
		b.Park()
		order <- "b"
		Switch(b, a)
	}()

	Switch(a, b)
	order <- "a"

	if got := <-order; got != "b" {
		t.Fatalf("expected b to run first after the switch, got %s", got)
	}
	if got := <-order; got != "a" {
		t.Fatalf("expected a to resume second, got %s", got)
	}
}

func TestStartDoesNotPark(t *testing.T) {
	b := NewContext()
	ran := make(chan struct{})
	go func() {
		b.Park()
		close(ran)
	}()

	Start(b)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatalf("Start did not release the parked goroutine")
	}
}

func TestAdoptPreGranted(t *testing.T) {
	// The boot goroutine is running, so its very first Park inside a
	// future Switch must not deadlock. Adopt pre-arms nothing; the
	// permit arrives from whoever switches back. Verify a full
	// round-trip.
	a := Adopt()
	b := NewContext()

	go func() {
		b.Park()
		Switch(b, a)
	}()
	Switch(a, b) // parks until b switches back
}

func TestCPUHaltKick(t *testing.T) {
	cpu := NewCPU()
	woke := make(chan struct{})
	go func() {
		cpu.Halt()
		close(woke)
	}()

	cpu.Kick()
	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatalf("Kick did not wake Halt")
	}
}

func TestKickNeverBlocks(t *testing.T) {
	cpu := NewCPU()
	// No one is halted; repeated kicks must all return immediately.
	for i := 0; i < 8; i++ {
		cpu.Kick()
	}
	// A single halt consumes the buffered kick.
	cpu.Halt()
}
