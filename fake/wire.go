// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import "sync"

// FakeWire is a concurrency-safe io.Writer that records everything written,
// standing in for a transmit line.
type FakeWire struct {
	mu   sync.Mutex
	data []byte
	// Notify, when set, receives each written chunk.
	Notify func(p []byte)
}

func (w *FakeWire) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.data = append(w.data, p...)
	notify := w.Notify
	w.mu.Unlock()
	if notify != nil {
		notify(p)
	}
	return len(p), nil
}

// Bytes returns a copy of everything written so far.
func (w *FakeWire) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.data...)
}

// Len returns the number of bytes written so far.
func (w *FakeWire) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.data)
}
