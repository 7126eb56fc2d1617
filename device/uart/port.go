// File: device/uart/port.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package uart

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/ringq/api"
	"github.com/momentics/ringq/control"
	"github.com/momentics/ringq/guard"
	"github.com/momentics/ringq/internal/irq"
	"github.com/momentics/ringq/policy"
	"github.com/momentics/ringq/queue"
	"github.com/momentics/ringq/storage"
)

// MarkerBreak is the RX byte that stands for a received line break.
const MarkerBreak byte = 0x00

// DefaultFIFODepth is the size of the simulated hardware receive FIFO.
const DefaultFIFODepth = 16

// ErrBreak is returned by Read when the next RX item is a line break.
var ErrBreak = errors.New("uart: line break")

// RX overflow policy names.
const (
	OverflowReject          = "reject"
	OverflowDropNewest      = "drop-newest"
	OverflowOverwriteOldest = "overwrite-oldest"
	OverflowSpill           = "spill"
)

// Config describes one port.
type Config struct {
	Name string

	// Vector is the RX interrupt vector; TX uses Vector+1.
	Vector int

	RXCapacity int
	TXCapacity int
	// RXStorage and TXStorage back the queues. Nil allocates on the heap.
	RXStorage []byte
	TXStorage []byte

	RXOverflow string
	SpillLimit int

	// ReadTimeout and WriteTimeout bound a single blocking wait; <= 0 waits
	// until the call's context ends.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Stats is a snapshot of port counters.
type Stats struct {
	Received   uint64 // bytes accepted by the RX queue
	RXRejected uint64 // bytes the RX overflow policy refused
	Overruns   uint64 // bytes lost in the hardware FIFO
	Sent       uint64 // bytes put on the wire
	WireErrors uint64
	Breaks     uint64 // breaks delivered to the reader
	BreaksLost uint64 // break markers refused or evicted from RX

	RXDepth       int
	TXDepth       int
	BreaksPending int
}

// Port is a simulated UART bound to an interrupt controller.
type Port struct {
	name      string
	ctrl      *irq.Controller
	wire      io.Writer
	rxVector  int
	txVector  int
	fifoDepth int
	cfg       Config

	log     *zap.Logger
	metrics *control.Metrics

	// hardware side
	fifo     *guard.Queue
	overruns *policy.DropNewest
	latched  atomic.Int32

	rx      *guard.Queue
	rxReady *policy.Signal
	rxWait  *policy.BlockingUnderflow
	rxView  *rxSlots
	breaks  int // markers at the head of rx; guarded by the controller mask

	tx      *guard.Queue
	txSpace *policy.Signal
	txWait  *policy.BlockingOverflow
	txByte  [1]byte

	readMu  sync.Mutex
	writeMu sync.Mutex
	closed  atomic.Bool

	received   atomic.Uint64
	rxRejected atomic.Uint64
	sent       atomic.Uint64
	wireErrors atomic.Uint64
	delivered  atomic.Uint64
	breaksLost atomic.Uint64
}

// Open builds the port queues and attaches its interrupt handlers to ctrl.
func Open(ctrl *irq.Controller, wire io.Writer, cfg Config, opts ...Option) (*Port, error) {
	switch {
	case ctrl == nil:
		return nil, api.NewError(api.ErrCodeInvalidArgument, "uart: nil controller")
	case wire == nil:
		return nil, api.NewError(api.ErrCodeInvalidArgument, "uart: nil wire")
	case cfg.Vector < 0 || cfg.Vector+1 >= irq.MaxVectors:
		return nil, api.NewError(api.ErrCodeInvalidArgument, "uart: vector out of range").
			WithContext("vector", cfg.Vector)
	}
	if cfg.Name == "" {
		cfg.Name = "uart"
	}
	if cfg.RXOverflow == "" {
		cfg.RXOverflow = OverflowOverwriteOldest
	}

	p := &Port{
		name:      cfg.Name,
		ctrl:      ctrl,
		wire:      wire,
		rxVector:  cfg.Vector,
		txVector:  cfg.Vector + 1,
		fifoDepth: DefaultFIFODepth,
		cfg:       cfg,
		log:       zap.NewNop(),
		overruns:  &policy.DropNewest{},
		rxReady:   policy.NewSignal(),
		txSpace:   policy.NewSignal(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("uart").With(zap.String("port", p.name))
	p.rxView = &rxSlots{p: p}

	fifoBuf, err := storage.Heap(p.fifoDepth)
	if err != nil {
		return nil, err
	}
	hw, err := queue.New(fifoBuf, p.fifoDepth, nil, p.overruns)
	if err != nil {
		return nil, err
	}
	p.fifo = guard.New(hw, &guard.Mutex{})

	if err := p.buildRX(); err != nil {
		return nil, err
	}
	if err := p.buildTX(); err != nil {
		return nil, err
	}

	if err := ctrl.Attach(p.rxVector, p.rxISR); err != nil {
		return nil, err
	}
	if err := ctrl.Attach(p.txVector, p.txISR); err != nil {
		_ = ctrl.Attach(p.rxVector, nil)
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.WatchQueue(p.name+".rx", p.rx)
		p.metrics.WatchQueue(p.name+".tx", p.tx)
		p.metrics.WatchVectors(p.name, map[string]int{"rx": p.rxVector, "tx": p.txVector}, ctrl.Count)
	}
	p.log.Debug("port opened",
		zap.Int("rx_capacity", p.rx.Size()),
		zap.Int("tx_capacity", p.tx.Size()),
		zap.String("rx_overflow", cfg.RXOverflow),
		zap.Int("vector", p.rxVector))
	return p, nil
}

func (p *Port) buildRX() error {
	p.rxWait = policy.NewBlockingUnderflow(p.rxReady, p.ctrl, p.cfg.ReadTimeout)

	var (
		under api.UnderflowHook = p.rxWait
		over  api.OverflowHook
	)
	switch p.cfg.RXOverflow {
	case OverflowReject:
		over = &policy.Reject{}
	case OverflowDropNewest:
		over = &policy.DropNewest{}
	case OverflowOverwriteOldest:
		over = &policy.OverwriteOldest{}
	case OverflowSpill:
		s := policy.NewSpill(p.cfg.SpillLimit, p.rxWait)
		under, over = s, s
	default:
		return api.NewError(api.ErrCodeInvalidArgument, "uart: unknown rx overflow policy").
			WithContext("policy", p.cfg.RXOverflow)
	}
	under = policy.LogUnderflow(p.log, p.name+".rx", under)
	over = policy.LogOverflow(p.log, p.name+".rx", over)
	if p.metrics != nil {
		under = p.metrics.InstrumentUnderflow(p.name+".rx", under)
		over = p.metrics.InstrumentOverflow(p.name+".rx", over)
	}
	inner := over
	over = api.OverflowFunc(func(q api.Slots, b byte, mode api.Mode) error {
		p.rxView.Slots = q
		return inner.OnFull(p.rxView, b, mode)
	})

	buf := p.cfg.RXStorage
	if buf == nil {
		var err error
		if buf, err = storage.Heap(p.cfg.RXCapacity); err != nil {
			return err
		}
	}
	q, err := queue.New(buf, p.cfg.RXCapacity, under, over)
	if err != nil {
		return err
	}
	p.rx = guard.New(q, p.ctrl)
	return nil
}

func (p *Port) buildTX() error {
	p.txWait = policy.NewBlockingOverflow(p.txSpace, p.ctrl, p.cfg.WriteTimeout)

	var (
		under api.UnderflowHook = &policy.Reject{}
		over  api.OverflowHook  = p.txWait
	)
	if p.metrics != nil {
		under = p.metrics.InstrumentUnderflow(p.name+".tx", under)
		over = p.metrics.InstrumentOverflow(p.name+".tx", over)
	}
	buf := p.cfg.TXStorage
	if buf == nil {
		var err error
		if buf, err = storage.Heap(p.cfg.TXCapacity); err != nil {
			return err
		}
	}
	q, err := queue.New(buf, p.cfg.TXCapacity, under, over)
	if err != nil {
		return err
	}
	p.tx = guard.New(q, p.ctrl)
	return nil
}

// Name returns the port name.
func (p *Port) Name() string { return p.name }

// Receive latches b into the hardware FIFO and raises the RX interrupt.
// It never blocks. A full FIFO drops b and counts an overrun.
func (p *Port) Receive(b byte) {
	_ = p.fifo.Write(b)
	p.ctrl.Raise(p.rxVector)
}

// ReceiveBreak latches a line break and raises the RX interrupt.
func (p *Port) ReceiveBreak() {
	p.latched.Add(1)
	p.ctrl.Raise(p.rxVector)
}

// Read fills buf with received bytes. It blocks until at least one byte
// is available, the read timeout expires or ctx ends, then takes whatever
// else is queued without blocking. A pending line break is returned as
// ErrBreak with n == 0, and stops a read that already has data.
func (p *Port) Read(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	p.readMu.Lock()
	defer p.readMu.Unlock()
	if p.closed.Load() {
		return 0, api.ErrClosed
	}
	p.rxWait.SetContext(ctx)

	p.ctrl.Mask()
	defer p.ctrl.Unmask()

	q := p.rx.Unguarded()
	b, err := q.Read()
	if err != nil {
		return 0, err
	}
	if p.breaks > 0 {
		// markers sit at the head, so the byte just taken was one
		p.breaks--
		p.delivered.Add(1)
		return 0, ErrBreak
	}
	buf[0] = b
	n := 1
	s := q.Slots()
	for n < len(buf) && p.breaks == 0 {
		b, ok := s.PopHead()
		if !ok {
			break
		}
		buf[n] = b
		n++
	}
	return n, nil
}

// ReadByteContext reads a single byte.
func (p *Port) ReadByteContext(ctx context.Context) (byte, error) {
	var b [1]byte
	if _, err := p.Read(ctx, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Write queues data for transmission, blocking while the TX queue is full.
// It returns the number of bytes queued.
func (p *Port) Write(ctx context.Context, data []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closed.Load() {
		return 0, api.ErrClosed
	}
	p.txWait.SetContext(ctx)

	q := p.tx.Unguarded()
	for i, b := range data {
		p.ctrl.Mask()
		err := q.Write(b)
		p.ctrl.Unmask()
		if err != nil {
			return i, err
		}
		p.ctrl.Raise(p.txVector)
	}
	return len(data), nil
}

// WriteUrgent queues b ahead of everything pending so it is sent next.
func (p *Port) WriteUrgent(ctx context.Context, b byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.closed.Load() {
		return api.ErrClosed
	}
	p.txWait.SetContext(ctx)

	p.ctrl.Mask()
	err := p.tx.Unguarded().WriteFront(b)
	p.ctrl.Unmask()
	if err != nil {
		return err
	}
	p.ctrl.Raise(p.txVector)
	return nil
}

// Flush discards queued RX and TX data and any pending breaks.
func (p *Port) Flush() {
	p.fifo.Flush()
	p.latched.Store(0)
	p.ctrl.Mask()
	p.rx.Unguarded().Flush()
	p.tx.Unguarded().Flush()
	p.breaks = 0
	p.ctrl.Unmask()
	p.txSpace.Notify()
}

// Close releases blocked readers and writers with api.ErrClosed and
// detaches the interrupt handlers.
func (p *Port) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return api.ErrClosed
	}
	p.rxWait.Close()
	p.txWait.Close()
	_ = p.ctrl.Attach(p.rxVector, nil)
	_ = p.ctrl.Attach(p.txVector, nil)
	p.log.Debug("port closed")
	return nil
}

// Stats returns a snapshot of the port counters. It masks interrupts
// briefly and must not be called from a handler.
func (p *Port) Stats() Stats {
	p.ctrl.Mask()
	pending := p.breaks
	rxDepth := p.rx.Unguarded().DataNum()
	txDepth := p.tx.Unguarded().DataNum()
	p.ctrl.Unmask()
	return Stats{
		Received:      p.received.Load(),
		RXRejected:    p.rxRejected.Load(),
		Overruns:      p.overruns.Dropped(),
		Sent:          p.sent.Load(),
		WireErrors:    p.wireErrors.Load(),
		Breaks:        p.delivered.Load(),
		BreaksLost:    p.breaksLost.Load(),
		RXDepth:       rxDepth,
		TXDepth:       txDepth,
		BreaksPending: pending,
	}
}

// Probes registers queue and counter probes under the port name.
func (p *Port) Probes(d api.Debug) {
	d.RegisterProbe(p.name+".rx.depth", func() any { return p.rx.DataNum() })
	d.RegisterProbe(p.name+".rx.capacity", func() any { return p.rx.Size() })
	d.RegisterProbe(p.name+".tx.depth", func() any { return p.tx.DataNum() })
	d.RegisterProbe(p.name+".tx.capacity", func() any { return p.tx.Size() })
	d.RegisterProbe(p.name+".stats", func() any { return p.Stats() })
}

// Reader returns an io.Reader over the port using a background context.
func (p *Port) Reader() io.Reader { return portReader{p} }

// Writer returns an io.Writer over the port using a background context.
func (p *Port) Writer() io.Writer { return portWriter{p} }

type portReader struct{ p *Port }

func (r portReader) Read(b []byte) (int, error) { return r.p.Read(context.Background(), b) }

type portWriter struct{ p *Port }

func (w portWriter) Write(b []byte) (int, error) { return w.p.Write(context.Background(), b) }
