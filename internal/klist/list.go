package klist

import "fmt"

// List is a doubly linked list over an Arena. Two sentinel slots bracket
// the elements: head (prev == None) just before the first element and tail
// (next == None) just after the last. An empty list has head.next == tail
// and tail.prev == head. The symmetry removes special cases: Remove is two
// link assignments with no conditionals.
//
// Contract violations (removing a non-member, iterating past a sentinel,
// popping an empty list) are fatal and panic.
type List[T any] struct {
	a          *Arena[T]
	head, tail Handle
}

// LessFunc orders two element values. It must be a strict weak ordering.
type LessFunc[T any] func(a, b *T) bool

// New creates an empty list, drawing its two sentinel slots from the
// arena. Arena exhaustion at list creation is a boot-time invariant
// violation and panics.
func New[T any](a *Arena[T]) *List[T] {
	head, err := a.Alloc()
	if err != nil {
		panic("klist: arena exhausted allocating list sentinels")
	}
	tail, err := a.Alloc()
	if err != nil {
		panic("klist: arena exhausted allocating list sentinels")
	}
	a.nodes[head] = node{prev: None, next: tail}
	a.nodes[tail] = node{prev: head, next: None}
	return &List[T]{a: a, head: head, tail: tail}
}

// isHead reports whether h is a head sentinel.
func (l *List[T]) isHead(h Handle) bool {
	n := l.a.nodes[h]
	return n.prev == None && n.next != None
}

// isInterior reports whether h is an element, as opposed to a sentinel or
// an unlinked slot.
func (l *List[T]) isInterior(h Handle) bool {
	n := l.a.nodes[h]
	return n.prev != None && n.next != None
}

// isTail reports whether h is a tail sentinel.
func (l *List[T]) isTail(h Handle) bool {
	n := l.a.nodes[h]
	return n.prev != None && n.next == None
}

// Begin returns the first element, or End when the list is empty.
func (l *List[T]) Begin() Handle { return l.a.nodes[l.head].next }

// End returns the tail sentinel, one past the last element.
func (l *List[T]) End() Handle { return l.tail }

// Next returns the element after h. Undefined on a tail sentinel.
func (l *List[T]) Next(h Handle) Handle {
	l.a.check(h)
	if !l.isHead(h) && !l.isInterior(h) {
		panic(fmt.Sprintf("klist: next of slot %d which is not in a list", h))
	}
	return l.a.nodes[h].next
}

// Prev returns the element before h. Undefined on a head sentinel.
func (l *List[T]) Prev(h Handle) Handle {
	l.a.check(h)
	if !l.isInterior(h) && !l.isTail(h) {
		panic(fmt.Sprintf("klist: prev of slot %d which is not in a list", h))
	}
	return l.a.nodes[h].prev
}

// Empty reports whether the list has no elements.
func (l *List[T]) Empty() bool { return l.Begin() == l.End() }

// Size counts the elements in O(n). The count is never cached: a cached
// size would be one more field every mutator has to keep consistent.
func (l *List[T]) Size() int {
	cnt := 0
	for e := l.Begin(); e != l.End(); e = l.Next(e) {
		cnt++
	}
	return cnt
}

// At returns the value of an element. Shorthand for the arena accessor.
func (l *List[T]) At(h Handle) *T { return l.a.At(h) }

// Insert links elem just before before, which must be an interior element
// or the tail sentinel. Inserting before the tail is PushBack. O(1), no
// allocation.
func (l *List[T]) Insert(before, elem Handle) {
	l.a.check(before)
	l.a.check(elem)
	if !l.isInterior(before) && !l.isTail(before) {
		panic(fmt.Sprintf("klist: insert before slot %d which is not an element or tail", before))
	}
	if l.a.nodes[elem].prev != None || l.a.nodes[elem].next != None {
		panic(fmt.Sprintf("klist: insert of slot %d already in a list", elem))
	}
	nodes := l.a.nodes
	nodes[elem].prev = nodes[before].prev
	nodes[elem].next = before
	nodes[nodes[before].prev].next = elem
	nodes[before].prev = elem
}

// Remove unlinks elem and returns the element that followed it. Removing a
// slot that is not currently a member of any list is fatal.
func (l *List[T]) Remove(elem Handle) Handle {
	l.a.check(elem)
	if !l.isInterior(elem) {
		panic(fmt.Sprintf("klist: remove of slot %d which is not a list element", elem))
	}
	nodes := l.a.nodes
	next := nodes[elem].next
	nodes[nodes[elem].prev].next = next
	nodes[next].prev = nodes[elem].prev
	nodes[elem] = node{prev: None, next: None}
	return next
}

// Splice moves the half-open range [first, last) from its current list to
// just before before. O(1) regardless of range length; the range may come
// from another list over the same arena.
func (l *List[T]) Splice(before, first, last Handle) {
	l.a.check(before)
	if !l.isInterior(before) && !l.isTail(before) {
		panic(fmt.Sprintf("klist: splice before slot %d which is not an element or tail", before))
	}
	if first == last {
		return
	}
	last = l.Prev(last)

	if !l.isInterior(first) || !l.isInterior(last) {
		panic("klist: splice range is not a run of list elements")
	}
	nodes := l.a.nodes

	// Cleanly remove first..last from its current list.
	nodes[nodes[first].prev].next = nodes[last].next
	nodes[nodes[last].next].prev = nodes[first].prev

	// Splice first..last in before before.
	nodes[first].prev = nodes[before].prev
	nodes[last].next = before
	nodes[nodes[before].prev].next = first
	nodes[before].prev = last
}

// PushFront inserts elem as the first element.
func (l *List[T]) PushFront(elem Handle) { l.Insert(l.Begin(), elem) }

// PushBack inserts elem as the last element.
func (l *List[T]) PushBack(elem Handle) { l.Insert(l.End(), elem) }

// Front returns the first element. Fatal if the list is empty.
func (l *List[T]) Front() Handle {
	if l.Empty() {
		panic("klist: front of empty list")
	}
	return l.a.nodes[l.head].next
}

// Back returns the last element. Fatal if the list is empty.
func (l *List[T]) Back() Handle {
	if l.Empty() {
		panic("klist: back of empty list")
	}
	return l.a.nodes[l.tail].prev
}

// PopFront removes and returns the first element.
func (l *List[T]) PopFront() Handle {
	front := l.Front()
	l.Remove(front)
	return front
}

// PopBack removes and returns the last element.
func (l *List[T]) PopBack() Handle {
	back := l.Back()
	l.Remove(back)
	return back
}

// Reverse reverses the element order in place, O(n) pointer swaps.
func (l *List[T]) Reverse() {
	if l.Empty() {
		return
	}
	nodes := l.a.nodes
	// After each element swaps its own links, walking prev follows the
	// original forward order.
	for e := nodes[l.head].next; e != l.tail; e = nodes[e].prev {
		nodes[e].prev, nodes[e].next = nodes[e].next, nodes[e].prev
	}
	nodes[l.head].next, nodes[l.tail].prev = nodes[l.tail].prev, nodes[l.head].next
	first, last := nodes[l.tail].prev, nodes[l.head].next
	nodes[last].prev, nodes[first].next = nodes[first].next, nodes[last].prev
}

// isSorted reports whether the elements a through b (exclusive) are in
// nondecreasing order under less.
func (l *List[T]) isSorted(a, b Handle, less LessFunc[T]) bool {
	if a != b {
		for a = l.Next(a); a != b; a = l.Next(a) {
			if less(l.At(a), l.At(l.Prev(a))) {
				return false
			}
		}
	}
	return true
}

// findEndOfRun returns the exclusive end of the maximal nondecreasing run
// starting at a and ending no later than b. The range a..b must be
// nonempty.
func (l *List[T]) findEndOfRun(a, b Handle, less LessFunc[T]) Handle {
	for {
		a = l.Next(a)
		if a == b || less(l.At(a), l.At(l.Prev(a))) {
			return a
		}
	}
}

// inplaceMerge merges the sorted run a0..a1b0 with the sorted run
// a1b0..b1 (both exclusive on the right) into one sorted run ending at b1.
// An element from the second run is moved only when strictly less than the
// head of the first, which keeps the merge stable.
func (l *List[T]) inplaceMerge(a0, a1b0, b1 Handle, less LessFunc[T]) {
	for a0 != a1b0 && a1b0 != b1 {
		if !less(l.At(a1b0), l.At(a0)) {
			a0 = l.Next(a0)
		} else {
			a1b0 = l.Next(a1b0)
			l.Splice(a0, l.Prev(a1b0), a1b0)
		}
	}
}

// Sort orders the list under less using a natural iterative merge sort:
// repeated passes merge adjacent nondecreasing runs until one run remains.
// O(n log n) time, O(1) extra space, stable.
func (l *List[T]) Sort(less LessFunc[T]) {
	if less == nil {
		panic("klist: sort with nil comparator")
	}
	for {
		runs := 0
		for a0 := l.Begin(); a0 != l.End(); {
			runs++
			a1b0 := l.findEndOfRun(a0, l.End(), less)
			if a1b0 == l.End() {
				break
			}
			b1 := l.findEndOfRun(a1b0, l.End(), less)
			l.inplaceMerge(a0, a1b0, b1, less)
			a0 = b1
		}
		if runs <= 1 {
			break
		}
	}
	if !l.isSorted(l.Begin(), l.End(), less) {
		panic("klist: sort postcondition violated")
	}
}

// InsertOrdered inserts elem into a list already sorted under less, before
// the first element not less than elem, that is, after any existing equal
// elements. Average O(n).
func (l *List[T]) InsertOrdered(elem Handle, less LessFunc[T]) {
	e := l.Begin()
	for ; e != l.End(); e = l.Next(e) {
		if less(l.At(elem), l.At(e)) {
			break
		}
	}
	l.Insert(e, elem)
}

// Unique collapses runs of adjacent elements that are equivalent under
// less (neither strictly less than the other), keeping the first
// occurrence. Removed duplicates are appended to duplicates when it is
// non-nil, otherwise they are left unlinked.
func (l *List[T]) Unique(duplicates *List[T], less LessFunc[T]) {
	if l.Empty() {
		return
	}
	elem := l.Begin()
	for {
		next := l.Next(elem)
		if next == l.End() {
			return
		}
		if !less(l.At(elem), l.At(next)) && !less(l.At(next), l.At(elem)) {
			l.Remove(next)
			if duplicates != nil {
				duplicates.PushBack(next)
			}
		} else {
			elem = next
		}
	}
}

// Max returns the largest element under less, resolving ties in favor of
// the earliest occurrence. Returns End when the list is empty.
func (l *List[T]) Max(less LessFunc[T]) Handle {
	max := l.Begin()
	if max != l.End() {
		for e := l.Next(max); e != l.End(); e = l.Next(e) {
			if less(l.At(max), l.At(e)) {
				max = e
			}
		}
	}
	return max
}

// Min returns the smallest element under less, resolving ties in favor of
// the earliest occurrence. Returns End when the list is empty.
func (l *List[T]) Min(less LessFunc[T]) Handle {
	min := l.Begin()
	if min != l.End() {
		for e := l.Next(min); e != l.End(); e = l.Next(e) {
			if less(l.At(e), l.At(min)) {
				min = e
			}
		}
	}
	return min
}
