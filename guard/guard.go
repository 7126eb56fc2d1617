// Package guard adapts the bounded byte queue for sharing between contexts.
//
// Queue wraps every engine call in a caller-chosen api.Section. The section
// is an explicit construction parameter of whoever owns the shared buffer:
// a masked interrupt line for ISR/task sharing, Mutex for several tasks, Nop
// when a single context uses the queue.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package guard

import (
	"sync"

	"golang.org/x/sys/cpu"

	"github.com/momentics/ringq/api"
	"github.com/momentics/ringq/queue"
)

// Queue is a queue.Queue whose operations run inside a Section.
type Queue struct {
	q   *queue.Queue
	sec api.Section
	_   cpu.CacheLinePad // keep neighbouring hot data off this line
}

// New wraps q with sec. A nil sec behaves like Nop.
func New(q *queue.Queue, sec api.Section) *Queue {
	if sec == nil {
		sec = Nop{}
	}
	return &Queue{q: q, sec: sec}
}

func (g *Queue) Write(b byte) error {
	g.sec.Enter()
	defer g.sec.Exit()
	return g.q.Write(b)
}

func (g *Queue) WriteFront(b byte) error {
	g.sec.Enter()
	defer g.sec.Exit()
	return g.q.WriteFront(b)
}

func (g *Queue) Read() (byte, error) {
	g.sec.Enter()
	defer g.sec.Exit()
	return g.q.Read()
}

func (g *Queue) DataNum() int {
	g.sec.Enter()
	defer g.sec.Exit()
	return g.q.DataNum()
}

// Size needs no section; capacity never changes.
func (g *Queue) Size() int { return g.q.Size() }

func (g *Queue) Flush() {
	g.sec.Enter()
	g.q.Flush()
	g.sec.Exit()
}

func (g *Queue) Len() int { return g.DataNum() }
func (g *Queue) Cap() int { return g.Size() }

// Section returns the discipline guarding this queue.
func (g *Queue) Section() api.Section { return g.sec }

// Unguarded returns the engine for callers that already hold the section,
// such as an interrupt handler running while the task is excluded.
func (g *Queue) Unguarded() *queue.Queue { return g.q }

// Mutex is a Section for several tasks sharing a queue.
type Mutex struct {
	mu sync.Mutex
}

func (m *Mutex) Enter() { m.mu.Lock() }
func (m *Mutex) Exit()  { m.mu.Unlock() }

// Nop is a Section for a queue used from a single context.
type Nop struct{}

func (Nop) Enter() {}
func (Nop) Exit()  {}

// Ensure compile-time interface compliance.
var (
	_ api.ByteQueue = (*Queue)(nil)
	_ api.Section   = (*Mutex)(nil)
	_ api.Section   = Nop{}
)
