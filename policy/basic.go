// File: policy/basic.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking policies safe for interrupt context.

package policy

import (
	"errors"
	"sync/atomic"

	"github.com/momentics/ringq/api"
)

// Ensure compile-time interface compliance.
var (
	_ api.UnderflowHook = (*Reject)(nil)
	_ api.OverflowHook  = (*Reject)(nil)
	_ api.OverflowHook  = (*DropNewest)(nil)
	_ api.OverflowHook  = (*OverwriteOldest)(nil)
	_ api.UnderflowHook = Sentinel(0)
)

// Reject reports the condition to the caller unchanged and counts it.
type Reject struct {
	empties atomic.Uint64
	fulls   atomic.Uint64
}

func (r *Reject) OnEmpty(api.Slots, *byte) error {
	r.empties.Add(1)
	return api.ErrEmpty
}

func (r *Reject) OnFull(api.Slots, byte, api.Mode) error {
	r.fulls.Add(1)
	return api.ErrFull
}

// Counts returns how many underflows and overflows were rejected.
func (r *Reject) Counts() (empties, fulls uint64) {
	return r.empties.Load(), r.fulls.Load()
}

// DropNewest accepts the incoming byte and discards it.
type DropNewest struct {
	dropped atomic.Uint64
}

func (d *DropNewest) OnFull(api.Slots, byte, api.Mode) error {
	d.dropped.Add(1)
	return nil
}

// Dropped returns the number of discarded bytes.
func (d *DropNewest) Dropped() uint64 { return d.dropped.Load() }

// OverwriteOldest evicts one queued byte to make room for the incoming one.
// A FIFO write evicts the head (the oldest byte). A LIFO write evicts the
// byte that would be read last, so the urgent byte still goes out next.
type OverwriteOldest struct {
	evicted atomic.Uint64
}

func (o *OverwriteOldest) OnFull(q api.Slots, b byte, mode api.Mode) error {
	var ok bool
	if mode == api.ModeLIFO {
		_, ok = q.PopTail()
	} else {
		_, ok = q.PopHead()
	}
	if ok {
		o.evicted.Add(1)
	}
	if mode == api.ModeLIFO {
		ok = q.PushHead(b)
	} else {
		ok = q.PushTail(b)
	}
	if !ok {
		return api.ErrFull
	}
	return nil
}

// Evicted returns the number of bytes overwritten.
func (o *OverwriteOldest) Evicted() uint64 { return o.evicted.Load() }

// Sentinel answers an underflow with a fixed marker byte.
type Sentinel byte

func (s Sentinel) OnEmpty(_ api.Slots, out *byte) error {
	*out = byte(s)
	return nil
}

// Chain tries each overflow hook in order until one accepts the byte.
// A hook error other than api.ErrFull stops the chain and is returned.
func Chain(hooks ...api.OverflowHook) api.OverflowHook {
	return api.OverflowFunc(func(q api.Slots, b byte, mode api.Mode) error {
		for _, h := range hooks {
			err := h.OnFull(q, b, mode)
			if err == nil || !errors.Is(err, api.ErrFull) {
				return err
			}
		}
		return api.ErrFull
	})
}
