// Package uart simulates a serial port driver built on bounded byte queues.
//
// A Port owns two queues that are shared between task context and the
// interrupt handlers of an irq.Controller:
//
//   - RX: the RX handler drains the hardware receive FIFO into it and the
//     task reads from it, blocking when it is empty.
//   - TX: the task writes into it, blocking when it is full, and the TX
//     handler moves one byte per interrupt onto the wire.
//
// Both queues are guarded by the controller mask. A line break received
// by the hardware is placed in front of the queued RX data as MarkerBreak
// and reported to the reader as ErrBreak.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package uart
