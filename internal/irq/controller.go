// File: internal/irq/controller.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package irq

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/momentics/ringq/affinity"
	"github.com/momentics/ringq/api"
)

// MaxVectors is the number of interrupt vectors a Controller supports.
const MaxVectors = 64

// ErrRunning is returned by Run when the dispatcher is already active.
var ErrRunning = errors.New("irq: dispatcher already running")

// Handler services one interrupt vector.
type Handler func()

// Controller routes raised vectors to their handlers on one dispatcher goroutine.
type Controller struct {
	mu       sync.Mutex // held while a handler runs or a task has interrupts masked
	handlers [MaxVectors]Handler
	pending  atomic.Uint64
	counts   [MaxVectors]atomic.Uint64
	wake     chan struct{}

	cpu      int
	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	log      *zap.Logger
}

// Ensure compile-time interface compliance.
var _ api.Section = (*Controller)(nil)

// New creates a controller whose dispatcher is pinned to cpu (negative: unpinned).
func New(cpu int, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		wake:   make(chan struct{}, 1),
		cpu:    cpu,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
		log:    log.Named("irq"),
	}
}

// Attach installs h for vector, replacing any previous handler.
func (c *Controller) Attach(vector int, h Handler) error {
	if vector < 0 || vector >= MaxVectors {
		return api.NewError(api.ErrCodeInvalidArgument, "irq: vector out of range").
			WithContext("vector", vector)
	}
	c.mu.Lock()
	c.handlers[vector] = h
	c.mu.Unlock()
	return nil
}

// Raise marks vector pending. It never blocks and may be called from a handler.
func (c *Controller) Raise(vector int) {
	if vector < 0 || vector >= MaxVectors {
		return
	}
	c.pending.Or(1 << uint(vector))
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Mask excludes handlers until Unmask. Not re-entrant.
func (c *Controller) Mask() { c.mu.Lock() }

// Unmask lets pending handlers run again.
func (c *Controller) Unmask() { c.mu.Unlock() }

// Enter is Mask, for use as an api.Section.
func (c *Controller) Enter() { c.Mask() }

// Exit is Unmask, for use as an api.Section.
func (c *Controller) Exit() { c.Unmask() }

// Count returns how many times vector has been serviced.
func (c *Controller) Count(vector int) uint64 {
	if vector < 0 || vector >= MaxVectors {
		return 0
	}
	return c.counts[vector].Load()
}

// Pending returns the bitmap of raised, not yet serviced vectors.
func (c *Controller) Pending() uint64 { return c.pending.Load() }

// Run services interrupts until ctx ends or Stop is called.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(c.done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if c.cpu >= 0 {
		if err := affinity.SetAffinity(c.cpu); err != nil {
			c.log.Warn("dispatcher not pinned", zap.Int("cpu", c.cpu), zap.Error(err))
		} else {
			c.log.Debug("dispatcher pinned", zap.Int("cpu", c.cpu))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return nil
		case <-c.wake:
			c.dispatch()
		}
	}
}

// Stop ends Run and waits for the dispatcher to exit.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if c.running.Load() {
		<-c.done
	}
}

func (c *Controller) dispatch() {
	for {
		set := c.pending.Swap(0)
		if set == 0 {
			return
		}
		for set != 0 {
			v := bits.TrailingZeros64(set)
			set &^= 1 << uint(v)
			c.service(v)
		}
	}
}

func (c *Controller) service(vector int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[vector].Add(1)
	h := c.handlers[vector]
	if h == nil {
		c.log.Debug("spurious interrupt", zap.Int("vector", vector))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("interrupt handler panic", zap.Int("vector", vector), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	h()
}
