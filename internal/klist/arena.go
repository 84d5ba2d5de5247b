// Package klist provides the arena-backed doubly linked lists that carry
// the kernel's scheduling queues. Elements live in a fixed-capacity Arena
// and are addressed by stable integer handles; each slot carries exactly
// one pair of links, so a slot is a member of at most one list at a time.
// Lists sharing an Arena can exchange elements in O(1) via Splice.
//
// List operations require exclusive access for the duration of the call.
// Callers mutating a list that an interrupt handler may also touch must
// mask interrupts around the whole sequence.
package klist

import (
	"errors"
	"fmt"
)

// Handle addresses a slot in an Arena. Handles are stable for the lifetime
// of the slot: they survive any number of list insertions and removals.
type Handle int32

// None is the null handle.
const None Handle = -1

// ErrArenaFull is returned by Alloc when no slot is available.
var ErrArenaFull = errors.New("klist: arena full")

type node struct {
	prev, next Handle
}

// Arena is a fixed-capacity pool of list slots. Allocation hands out a
// zeroed slot or fails; it never grows.
type Arena[T any] struct {
	nodes []node
	vals  []T
	used  []bool
	free  []Handle
	inUse int
}

// NewArena creates an Arena with room for capacity slots. Callers that
// build lists on the arena must budget two extra slots per list for the
// sentinels.
func NewArena[T any](capacity int) *Arena[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("klist: invalid arena capacity %d", capacity))
	}
	a := &Arena[T]{
		nodes: make([]node, capacity),
		vals:  make([]T, capacity),
		used:  make([]bool, capacity),
		free:  make([]Handle, 0, capacity),
	}
	for i := capacity - 1; i >= 0; i-- {
		a.nodes[i] = node{prev: None, next: None}
		a.free = append(a.free, Handle(i))
	}
	return a
}

// Alloc returns a zeroed slot, or ErrArenaFull when the arena is exhausted.
// The new slot is not a member of any list.
func (a *Arena[T]) Alloc() (Handle, error) {
	if len(a.free) == 0 {
		return None, ErrArenaFull
	}
	h := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	a.nodes[h] = node{prev: None, next: None}
	var zero T
	a.vals[h] = zero
	a.used[h] = true
	a.inUse++
	return h, nil
}

// Free recycles a slot. The slot must not be a member of any list; freeing
// a linked or already-free slot is a contract violation. The slot's value
// is zeroed so stale state cannot leak into the next allocation.
func (a *Arena[T]) Free(h Handle) {
	a.check(h)
	n := &a.nodes[h]
	if n.prev != None || n.next != None {
		panic(fmt.Sprintf("klist: free of slot %d still linked into a list", h))
	}
	var zero T
	a.vals[h] = zero
	a.used[h] = false
	a.inUse--
	a.free = append(a.free, h)
}

// At returns the value stored in a live slot.
func (a *Arena[T]) At(h Handle) *T {
	a.check(h)
	return &a.vals[h]
}

// InUse reports the number of live slots, sentinels included.
func (a *Arena[T]) InUse() int { return a.inUse }

// Cap reports the arena's total slot capacity.
func (a *Arena[T]) Cap() int { return len(a.nodes) }

// Each calls fn for every live slot, sentinels included. The arena must
// not be mutated during iteration.
func (a *Arena[T]) Each(fn func(h Handle, v *T)) {
	for i := range a.vals {
		if a.used[i] {
			fn(Handle(i), &a.vals[i])
		}
	}
}

func (a *Arena[T]) check(h Handle) {
	if h < 0 || int(h) >= len(a.nodes) {
		panic(fmt.Sprintf("klist: handle %d out of range [0,%d)", h, len(a.nodes)))
	}
	if !a.used[h] {
		panic(fmt.Sprintf("klist: use of freed slot %d", h))
	}
}
