// Package fake provides mock implementations for testing ringq components.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"github.com/momentics/ringq/api"
)

// OverflowCall records one OnFull invocation.
type OverflowCall struct {
	Byte byte
	Mode api.Mode
	Len  int
}

// FakeOverflow implements api.OverflowHook for testing.
type FakeOverflow struct {
	OnFullFunc func(q api.Slots, b byte, mode api.Mode) error
	Calls      []OverflowCall // Track calls for verification
}

// NewFakeOverflow creates a hook that returns err on every call.
func NewFakeOverflow(err error) *FakeOverflow {
	return &FakeOverflow{
		OnFullFunc: func(api.Slots, byte, api.Mode) error { return err },
	}
}

func (f *FakeOverflow) OnFull(q api.Slots, b byte, mode api.Mode) error {
	f.Calls = append(f.Calls, OverflowCall{Byte: b, Mode: mode, Len: q.Len()})
	if f.OnFullFunc != nil {
		return f.OnFullFunc(q, b, mode)
	}
	return api.ErrFull
}

// FakeUnderflow implements api.UnderflowHook for testing.
type FakeUnderflow struct {
	OnEmptyFunc func(q api.Slots, out *byte) error
	Calls       int
}

// NewFakeUnderflow creates a hook that produces b on every call.
func NewFakeUnderflow(b byte) *FakeUnderflow {
	return &FakeUnderflow{
		OnEmptyFunc: func(_ api.Slots, out *byte) error {
			*out = b
			return nil
		},
	}
}

func (f *FakeUnderflow) OnEmpty(q api.Slots, out *byte) error {
	f.Calls++
	if f.OnEmptyFunc != nil {
		return f.OnEmptyFunc(q, out)
	}
	return api.ErrEmpty
}

// Ensure compile-time interface compliance.
var (
	_ api.OverflowHook  = (*FakeOverflow)(nil)
	_ api.UnderflowHook = (*FakeUnderflow)(nil)
)
