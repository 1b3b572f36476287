package tasklog

import "sync/atomic"

/*
Unbounded multi-producer / single-consumer FIFO of entries (intrusive Vyukov
queue). push is wait-free: one atomic swap and one store. pop must only be called
by one goroutine at a time (TaskLog holds its flush mutex around draining).

A push that has swapped the head but not yet linked its node is invisible to pop
until the link is stored; entries behind it wait for the next drain. Nothing is
lost or duplicated.
*/

type queueNode struct {
	next  atomic.Pointer[queueNode]
	entry *Entry
}

type entryQueue struct {
	head atomic.Pointer[queueNode] // most recently pushed node
	tail atomic.Pointer[queueNode] // consumed stub, tail.next is the oldest entry
	size atomic.Int64
}

func (q *entryQueue) init() {
	stub := &queueNode{}
	q.head.Store(stub)
	q.tail.Store(stub)
}

func (q *entryQueue) push(e *Entry) {
	n := &queueNode{entry: e}
	q.size.Add(1)
	prev := q.head.Swap(n)
	prev.next.Store(n)
}

// pop returns the oldest linked entry or nil.
func (q *entryQueue) pop() *Entry {
	tail := q.tail.Load()
	next := tail.next.Load()
	if next == nil {
		return nil
	}
	q.tail.Store(next)
	e := next.entry
	next.entry = nil // next is the new stub
	q.size.Add(-1)
	return e
}

// empty reports whether no linked entry is waiting.
func (q *entryQueue) empty() bool {
	return q.tail.Load().next.Load() == nil
}

func (q *entryQueue) len() int {
	return int(max(q.size.Load(), 0))
}
