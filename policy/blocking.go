// File: policy/blocking.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Task-side blocking policies. They pend on a Signal with the caller's
// critical section released, the way an RTOS task pends on a semaphore.
// Never install them on a queue side that runs in interrupt context.

package policy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/momentics/ringq/api"
)

// Ensure compile-time interface compliance.
var (
	_ api.UnderflowHook = (*BlockingUnderflow)(nil)
	_ api.OverflowHook  = (*BlockingOverflow)(nil)
)

// Signal is a one-slot wakeup. Notify never blocks, so interrupt handlers may call it.
type Signal struct {
	ch chan struct{}
}

// NewSignal creates an unsignalled Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify wakes one waiter, or the next one to arrive.
func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// C returns the channel a waiter selects on.
func (s *Signal) C() <-chan struct{} { return s.ch }

// waiter carries the shared pend logic.
type waiter struct {
	signal  *Signal
	section api.Section
	timeout time.Duration
	ctx     context.Context

	closeOnce sync.Once
	closed    chan struct{}
}

func newWaiter(signal *Signal, sec api.Section, timeout time.Duration) waiter {
	return waiter{signal: signal, section: sec, timeout: timeout, closed: make(chan struct{})}
}

// SetContext binds the context observed by subsequent waits.
// Only the context that owns this side of the queue may call it.
func (w *waiter) SetContext(ctx context.Context) { w.ctx = ctx }

// Close ends current and future waits with api.ErrClosed. It may be called
// from any goroutine, more than once.
func (w *waiter) Close() {
	w.closeOnce.Do(func() { close(w.closed) })
}

// pend runs try until it succeeds, the timeout expires, the context ends or
// the waiter is closed.
// try is always called with the section held.
func (w *waiter) pend(try func() bool) error {
	if try() {
		return nil
	}
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	var expired <-chan time.Time
	if w.timeout > 0 {
		t := time.NewTimer(w.timeout)
		defer t.Stop()
		expired = t.C
	}
	for {
		if w.section != nil {
			w.section.Exit()
		}
		var err error
		select {
		case <-w.signal.C():
		case <-expired:
			err = api.ErrTimeout
		case <-ctx.Done():
			err = ctx.Err()
		case <-w.closed:
			err = api.ErrClosed
		}
		if w.section != nil {
			w.section.Enter()
		}
		if try() {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// BlockingUnderflow makes Read wait for a producer.
type BlockingUnderflow struct {
	waiter
}

// NewBlockingUnderflow waits on dataReady. sec is the section the reader holds
// around Read (nil if none); timeout <= 0 waits until the bound context ends.
func NewBlockingUnderflow(dataReady *Signal, sec api.Section, timeout time.Duration) *BlockingUnderflow {
	return &BlockingUnderflow{newWaiter(dataReady, sec, timeout)}
}

func (p *BlockingUnderflow) OnEmpty(q api.Slots, out *byte) error {
	err := p.pend(func() bool {
		b, ok := q.PopHead()
		if ok {
			*out = b
		}
		return ok
	})
	if errors.Is(err, api.ErrTimeout) {
		return api.NewError(api.ErrCodeTimeout, "policy: no data before timeout")
	}
	return err
}

// BlockingOverflow makes a write wait for a consumer to free a slot.
type BlockingOverflow struct {
	waiter
}

// NewBlockingOverflow waits on spaceReady; see NewBlockingUnderflow.
func NewBlockingOverflow(spaceReady *Signal, sec api.Section, timeout time.Duration) *BlockingOverflow {
	return &BlockingOverflow{newWaiter(spaceReady, sec, timeout)}
}

func (p *BlockingOverflow) OnFull(q api.Slots, b byte, mode api.Mode) error {
	err := p.pend(func() bool {
		if mode == api.ModeLIFO {
			return q.PushHead(b)
		}
		return q.PushTail(b)
	})
	if errors.Is(err, api.ErrTimeout) {
		return api.NewError(api.ErrCodeTimeout, "policy: no space before timeout").
			WithContext("mode", mode.String())
	}
	return err
}
