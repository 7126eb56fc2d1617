// File: queue/queue.go
// Package queue implements the bounded byte queue engine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Queue is a fixed-capacity circular byte buffer over caller-owned storage.
// It has no locks, no atomics and never blocks, so every call completes in
// bounded time and may be issued from interrupt context. Mutual exclusion
// between producer and consumer contexts belongs to the caller (see guard).

package queue

import (
	"github.com/momentics/ringq/api"
)

// Ensure compile-time interface compliance.
var (
	_ api.ByteQueue = (*Queue)(nil)
	_ api.Slots     = (*slots)(nil)
)

// Queue is a bounded byte queue with pluggable underflow/overflow policies.
type Queue struct {
	buf   []byte
	head  int // next slot to read
	tail  int // next slot to append
	count int

	onEmpty api.UnderflowHook
	onFull  api.OverflowHook
}

// New builds a queue over storage[:capacity]. Hooks may be nil.
// The queue never allocates, frees or reads storage before it is written.
func New(storage []byte, capacity int, onEmpty api.UnderflowHook, onFull api.OverflowHook) (*Queue, error) {
	switch {
	case storage == nil:
		return nil, api.NewError(api.ErrCodeInvalidArgument, "queue: nil storage")
	case capacity <= 0:
		return nil, api.NewError(api.ErrCodeInvalidArgument, "queue: capacity must be positive").
			WithContext("capacity", capacity)
	case len(storage) < capacity:
		return nil, api.NewError(api.ErrCodeInvalidArgument, "queue: storage shorter than capacity").
			WithContext("capacity", capacity).
			WithContext("storage", len(storage))
	}
	return &Queue{
		buf:     storage[:capacity:capacity],
		onEmpty: onEmpty,
		onFull:  onFull,
	}, nil
}

// Write appends b at the tail (FIFO discipline).
func (q *Queue) Write(b byte) error {
	if q.pushTail(b) {
		return nil
	}
	return q.overflow(b, api.ModeFIFO)
}

// WriteFront places b immediately ahead of the next byte to be read (LIFO discipline).
func (q *Queue) WriteFront(b byte) error {
	if q.pushHead(b) {
		return nil
	}
	return q.overflow(b, api.ModeLIFO)
}

// Read removes and returns the byte at the head.
func (q *Queue) Read() (byte, error) {
	if b, ok := q.popHead(); ok {
		return b, nil
	}
	if q.onEmpty == nil {
		return 0, api.ErrEmpty
	}
	var out byte
	err := q.onEmpty.OnEmpty((*slots)(q), &out)
	return out, err
}

// DataNum returns the number of occupied slots.
func (q *Queue) DataNum() int { return q.count }

// Size returns the configured capacity.
func (q *Queue) Size() int { return len(q.buf) }

// Len is an alias of DataNum.
func (q *Queue) Len() int { return q.count }

// Cap is an alias of Size.
func (q *Queue) Cap() int { return len(q.buf) }

// Flush discards all pending data. Storage is not zeroed and no hook runs.
func (q *Queue) Flush() {
	q.head, q.tail, q.count = 0, 0, 0
}

// Slots returns the raw hook-free view of q.
func (q *Queue) Slots() api.Slots { return (*slots)(q) }

func (q *Queue) overflow(b byte, mode api.Mode) error {
	if q.onFull == nil {
		return api.ErrFull
	}
	return q.onFull.OnFull((*slots)(q), b, mode)
}

func (q *Queue) pushTail(b byte) bool {
	if q.count == len(q.buf) {
		return false
	}
	q.buf[q.tail] = b
	q.tail = q.next(q.tail)
	q.count++
	return true
}

func (q *Queue) pushHead(b byte) bool {
	if q.count == len(q.buf) {
		return false
	}
	q.head = q.prev(q.head)
	q.buf[q.head] = b
	q.count++
	return true
}

func (q *Queue) popHead() (byte, bool) {
	if q.count == 0 {
		return 0, false
	}
	b := q.buf[q.head]
	q.head = q.next(q.head)
	q.count--
	return b, true
}

func (q *Queue) popTail() (byte, bool) {
	if q.count == 0 {
		return 0, false
	}
	q.tail = q.prev(q.tail)
	q.count--
	return q.buf[q.tail], true
}

func (q *Queue) next(i int) int {
	if i++; i == len(q.buf) {
		return 0
	}
	return i
}

func (q *Queue) prev(i int) int {
	if i == 0 {
		return len(q.buf) - 1
	}
	return i - 1
}

// slots exposes the raw primitives to hooks without the dispatch path.
// Hooks must use it instead of calling Read/Write on the queue they serve;
// re-entering the dispatching methods from a hook is not supported.
type slots Queue

func (s *slots) Len() int { return s.count }
func (s *slots) Cap() int { return len(s.buf) }
func (s *slots) PushTail(b byte) bool { return (*Queue)(s).pushTail(b) }
func (s *slots) PushHead(b byte) bool { return (*Queue)(s).pushHead(b) }
func (s *slots) PopHead() (byte, bool) { return (*Queue)(s).popHead() }
func (s *slots) PopTail() (byte, bool) { return (*Queue)(s).popTail() }
