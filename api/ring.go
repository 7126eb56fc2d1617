// Package api
// Author: momentics@gmail.com
//
// Bounded byte queue contracts shared by the engine, policies and guards.

package api

// Mode identifies the write discipline that ran into a full queue.
type Mode uint8

const (
	// ModeFIFO is an append at the tail (Write).
	ModeFIFO Mode = iota + 1
	// ModeLIFO is a push ahead of the read position (WriteFront).
	ModeLIFO
)

func (m Mode) String() string {
	switch m {
	case ModeFIFO:
		return "fifo"
	case ModeLIFO:
		return "lifo"
	default:
		return "unknown"
	}
}

// ByteQueue is the bounded byte queue contract.
type ByteQueue interface {
	// Write appends b at the tail.
	Write(b byte) error
	// WriteFront places b so that it is the next byte Read returns.
	WriteFront(b byte) error
	// Read removes the byte at the head.
	Read() (byte, error)
	// DataNum returns the number of occupied slots.
	DataNum() int
	// Size returns the configured capacity.
	Size() int
	// Flush discards pending data without invoking hooks.
	Flush()
	// Len is an alias of DataNum.
	Len() int
	// Cap is an alias of Size.
	Cap() int
}

// Slots is the raw, hook-free view of a queue handed to policy hooks.
// None of its methods ever dispatch a hook.
type Slots interface {
	Len() int
	Cap() int
	// PushTail appends b; false if full.
	PushTail(b byte) bool
	// PushHead places b ahead of the read position; false if full.
	PushHead(b byte) bool
	// PopHead removes the next byte to be read.
	PopHead() (byte, bool)
	// PopTail removes the byte that would be read last.
	PopTail() (byte, bool)
}
