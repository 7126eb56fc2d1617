// File: policy/spill.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Spill parks overflow bytes in a growable backlog and hands them back when
// the queue runs dry. Bytes in the backlog are delivered after the queue has
// drained, so ordering against bytes written once space frees up is not kept.

package policy

import (
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/ringq/api"
)

// Ensure compile-time interface compliance.
var (
	_ api.UnderflowHook = (*Spill)(nil)
	_ api.OverflowHook  = (*Spill)(nil)
)

// Spill must be installed as both hooks of the same queue and is accessed
// under that queue's critical section.
type Spill struct {
	backlog  *queue.Queue
	limit    int
	fallback api.UnderflowHook

	parked  atomic.Uint64
	dropped atomic.Uint64
}

// NewSpill creates a spill policy holding at most limit bytes (0 = unbounded).
// fallback handles underflow once the backlog is empty; nil reports api.ErrEmpty.
func NewSpill(limit int, fallback api.UnderflowHook) *Spill {
	return &Spill{
		backlog:  queue.New(),
		limit:    limit,
		fallback: fallback,
	}
}

// OnFull parks FIFO bytes. LIFO bytes are urgent and are rejected instead of
// being delayed behind the whole queue.
func (s *Spill) OnFull(_ api.Slots, b byte, mode api.Mode) error {
	if mode == api.ModeLIFO {
		return api.ErrFull
	}
	if s.limit > 0 && s.backlog.Length() >= s.limit {
		s.dropped.Add(1)
		return api.ErrFull
	}
	s.backlog.Add(b)
	s.parked.Add(1)
	return nil
}

// OnEmpty returns the oldest parked byte and refills the queue from the backlog.
func (s *Spill) OnEmpty(q api.Slots, out *byte) error {
	if s.backlog.Length() == 0 {
		if s.fallback == nil {
			return api.ErrEmpty
		}
		return s.fallback.OnEmpty(q, out)
	}
	*out = s.backlog.Remove().(byte)
	for s.backlog.Length() > 0 && q.Len() < q.Cap() {
		q.PushTail(s.backlog.Remove().(byte))
	}
	return nil
}

// Pending returns the number of parked bytes.
func (s *Spill) Pending() int { return s.backlog.Length() }

// Stats returns the total parked and dropped byte counts.
func (s *Spill) Stats() (parked, dropped uint64) {
	return s.parked.Load(), s.dropped.Load()
}
