package klist

import (
	"errors"
	"testing"
)

func TestArenaAllocFree(t *testing.T) {
	a := NewArena[int](4)

	h, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	*a.At(h) = 42
	if got := *a.At(h); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if a.InUse() != 1 {
		t.Errorf("expected 1 slot in use, got %d", a.InUse())
	}

	a.Free(h)
	if a.InUse() != 0 {
		t.Errorf("expected 0 slots in use after free, got %d", a.InUse())
	}
}

func TestArenaFreeZeroesValue(t *testing.T) {
	a := NewArena[int](2)
	h, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	*a.At(h) = 99
	a.Free(h)

	h2, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc after free: %v", err)
	}
	if got := *a.At(h2); got != 0 {
		t.Errorf("recycled slot not zeroed: got %d", got)
	}
}

func TestArenaExhaustion(t *testing.T) {
	a := NewArena[int](2)
	for i := 0; i < 2; i++ {
		if _, err := a.Alloc(); err != nil {
			t.Fatalf("Alloc %d: %v", i, err)
		}
	}
	_, err := a.Alloc()
	if !errors.Is(err, ErrArenaFull) {
		t.Fatalf("expected ErrArenaFull, got %v", err)
	}
}

func TestArenaAtFreedSlotPanics(t *testing.T) {
	a := NewArena[int](2)
	h, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	a.Free(h)

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on At of a freed slot")
		}
	}()
	a.At(h)
}

func TestArenaFreeLinkedElementPanics(t *testing.T) {
	a := NewArena[int](4)
	l := New(a)
	h, err := a.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	l.PushBack(h)

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on Free of a linked element")
		}
	}()
	a.Free(h)
}

func TestArenaEachVisitsLiveSlots(t *testing.T) {
	a := NewArena[int](4)
	h1, _ := a.Alloc()
	h2, _ := a.Alloc()
	*a.At(h1) = 1
	*a.At(h2) = 2
	a.Free(h1)

	sum := 0
	a.Each(func(h Handle, v *int) { sum += *v })
	if sum != 2 {
		t.Errorf("expected Each to visit only the live slot, sum=%d", sum)
	}
}
