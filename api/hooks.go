// File: api/hooks.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Underflow/overflow policy hooks and the critical-section contract.

package api

// UnderflowHook runs when Read finds the queue empty.
// Returning nil means *out holds a produced value; ErrEmpty means the queue
// is still empty; any other error is surfaced to the reader as is.
type UnderflowHook interface {
	OnEmpty(q Slots, out *byte) error
}

// OverflowHook runs when a write finds the queue full.
// Returning nil means the byte was accepted through alternate handling;
// ErrFull means it was rejected.
type OverflowHook interface {
	OnFull(q Slots, b byte, mode Mode) error
}

// UnderflowFunc adapts a function to UnderflowHook.
type UnderflowFunc func(q Slots, out *byte) error

// OnEmpty calls f.
func (f UnderflowFunc) OnEmpty(q Slots, out *byte) error { return f(q, out) }

// OverflowFunc adapts a function to OverflowHook.
type OverflowFunc func(q Slots, b byte, mode Mode) error

// OnFull calls f.
func (f OverflowFunc) OnFull(q Slots, b byte, mode Mode) error { return f(q, b, mode) }

// Section is a caller-provided mutual exclusion discipline: a mutex, a masked
// interrupt line, or nothing at all for single-context use.
// Sections are not re-entrant.
type Section interface {
	Enter()
	Exit()
}
