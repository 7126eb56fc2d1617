// File: device/uart/isr.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Interrupt handlers. Both run on the controller dispatcher with the mask
// held, so they use the unguarded engines and must never block.

package uart

import (
	"go.uber.org/zap"

	"github.com/momentics/ringq/api"
	"github.com/momentics/ringq/queue"
)

// rxISR drains the hardware FIFO into RX, then places latched breaks in
// front of everything queued.
func (p *Port) rxISR() {
	q := p.rx.Unguarded()
	for {
		b, err := p.fifo.Read()
		if err != nil {
			break
		}
		if err := q.Write(b); err != nil {
			p.rxRejected.Add(1)
			continue
		}
		p.received.Add(1)
	}
	for n := p.latched.Swap(0); n > 0; n-- {
		p.injectBreak(q)
	}
	p.rxReady.Notify()
}

func (p *Port) injectBreak(q *queue.Queue) {
	before := q.DataNum()
	p.rxView.held = false
	err := q.WriteFront(MarkerBreak)
	if err == nil && (q.DataNum() > before || p.rxView.held) {
		p.breaks++
		return
	}
	p.breaksLost.Add(1)
	p.log.Debug("line break lost", zap.Error(err))
}

// txISR sends one byte and re-raises itself while TX holds more.
func (p *Port) txISR() {
	q := p.tx.Unguarded()
	b, err := q.Read()
	if err != nil {
		return
	}
	p.txSpace.Notify()
	p.txByte[0] = b
	if _, err := p.wire.Write(p.txByte[:]); err != nil {
		p.wireErrors.Add(1)
		p.log.Warn("wire write failed", zap.Error(err))
	} else {
		p.sent.Add(1)
	}
	if q.DataNum() > 0 {
		p.ctrl.Raise(p.txVector)
	}
}

// rxSlots is the view RX overflow policies see. Break markers always form
// a prefix of the queue, so it can tell when a policy evicts one and keeps
// the marker count in step.
type rxSlots struct {
	api.Slots
	p    *Port
	held bool // a LIFO push succeeded during the current overflow
}

func (s *rxSlots) PopHead() (byte, bool) {
	b, ok := s.Slots.PopHead()
	if ok && s.p.breaks > 0 {
		s.p.breaks--
		s.p.breaksLost.Add(1)
	}
	return b, ok
}

func (s *rxSlots) PopTail() (byte, bool) {
	b, ok := s.Slots.PopTail()
	if ok && s.p.breaks > s.Slots.Len() {
		s.p.breaks--
		s.p.breaksLost.Add(1)
	}
	return b, ok
}

func (s *rxSlots) PushHead(b byte) bool {
	ok := s.Slots.PushHead(b)
	if ok {
		s.held = true
	}
	return ok
}
