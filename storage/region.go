// File: storage/region.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Caller-owned storage regions for queues. A queue never allocates or frees
// its storage; the subsystem that owns the shared buffer obtains it here and
// releases it with Close once every queue over it is discarded.

package storage

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/momentics/ringq/api"
)

// Heap returns a plain n-byte slice.
func Heap(n int) ([]byte, error) {
	if n <= 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "storage: size must be positive").
			WithContext("size", n)
	}
	return make([]byte, n), nil
}

// Region is a memory-mapped storage region.
type Region struct {
	m      mmap.MMap
	file   *os.File
	locked bool
}

// Anonymous maps n bytes not backed by any file.
func Anonymous(n int) (*Region, error) {
	if n <= 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "storage: size must be positive").
			WithContext("size", n)
	}
	m, err := mmap.MapRegion(nil, n, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("storage: anonymous map: %w", err)
	}
	return &Region{m: m}, nil
}

// File maps the first n bytes of path, creating or growing the file as needed.
// The queue cursors are not persisted; the file keeps the raw slots only.
func File(path string, n int) (*Region, error) {
	if n <= 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "storage: size must be positive").
			WithContext("size", n)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o640)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(n)); err != nil {
		f.Close()
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: map %s: %w", path, err)
	}
	return &Region{m: m, file: f}, nil
}

// Bytes returns the mapped slots. The slice is invalid after Close.
func (r *Region) Bytes() []byte { return r.m }

// Len returns the region size.
func (r *Region) Len() int { return len(r.m) }

// Lock pins the region in physical memory.
func (r *Region) Lock() error {
	if err := r.m.Lock(); err != nil {
		return fmt.Errorf("storage: lock: %w", err)
	}
	r.locked = true
	return nil
}

// Flush writes dirty pages of a file-backed region to disk.
func (r *Region) Flush() error {
	return r.m.Flush()
}

// Close unmaps the region and closes its file.
func (r *Region) Close() error {
	if r.m == nil {
		return api.ErrClosed
	}
	if r.locked {
		_ = r.m.Unlock()
	}
	err := r.m.Unmap()
	r.m = nil
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
