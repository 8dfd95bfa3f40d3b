package rtos

import "container/heap"

// PriorityQueue is a mutex-free (caller must synchronize), container/heap
// backed priority queue generalized from the HAL poller's internal
// pollHeap: here the ordering is supplied by the caller instead of being a
// fixed due-time comparison, so the same structure serves the PSE's
// FlushRequest queue (§4.5) ordered by index-first / priority / FIFO.
type PriorityQueue[T any] struct {
	items []T
	less  func(a, b T) bool
}

// NewPriorityQueue builds an empty queue ordered by less(a,b): a sorts
// before b when less returns true. The head of the queue is always the
// least element under this order.
func NewPriorityQueue[T any](less func(a, b T) bool) *PriorityQueue[T] {
	return &PriorityQueue[T]{less: less}
}

func (q *PriorityQueue[T]) Len() int { return len(q.items) }

func (q *PriorityQueue[T]) heapLen() int            { return len(q.items) }
func (q *PriorityQueue[T]) heapLess(i, j int) bool  { return q.less(q.items[i], q.items[j]) }
func (q *PriorityQueue[T]) heapSwap(i, j int)       { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *PriorityQueue[T]) heapPush(x any)          { q.items = append(q.items, x.(T)) }
func (q *PriorityQueue[T]) heapPop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	q.items = old[:n-1]
	return it
}

// adapter satisfies heap.Interface by forwarding to PriorityQueue's own
// methods, avoiding exposing heap.Interface on the public type itself.
type heapAdapter[T any] struct{ q *PriorityQueue[T] }

func (a heapAdapter[T]) Len() int           { return a.q.heapLen() }
func (a heapAdapter[T]) Less(i, j int) bool { return a.q.heapLess(i, j) }
func (a heapAdapter[T]) Swap(i, j int)      { a.q.heapSwap(i, j) }
func (a heapAdapter[T]) Push(x any)         { a.q.heapPush(x) }
func (a heapAdapter[T]) Pop() any           { return a.q.heapPop() }

func (q *PriorityQueue[T]) Push(v T) {
	heap.Push(heapAdapter[T]{q}, v)
}

// Pop removes and returns the least element under the queue's order.
func (q *PriorityQueue[T]) Pop() (v T, ok bool) {
	if len(q.items) == 0 {
		return v, false
	}
	return heap.Pop(heapAdapter[T]{q}).(T), true
}

// Peek returns the least element without removing it.
func (q *PriorityQueue[T]) Peek() (v T, ok bool) {
	if len(q.items) == 0 {
		return v, false
	}
	return q.items[0], true
}

// Reorder re-establishes heap order after an in-place mutation of an
// already-queued element (e.g. the PSE bumping a queued index flush's
// effective priority when a higher-priority request outranks it).
func (q *PriorityQueue[T]) Reorder() {
	heap.Init(heapAdapter[T]{q})
}
