// Package policy
// Author: momentics <momentics@gmail.com>
//
// Underflow and overflow policies for the bounded byte queue.
//
// Each policy is a distinct type satisfying api.UnderflowHook and/or
// api.OverflowHook and is selected when the queue is constructed:
//   - Reject reports Empty/Full unchanged
//   - DropNewest and OverwriteOldest never report Full
//   - Sentinel synthesizes a marker byte on underflow
//   - BlockingUnderflow/BlockingOverflow pend on a Signal (task side only)
//   - Spill parks overflow in a backlog and replays it on underflow
//
// Hooks operate on the api.Slots view they are handed and never call back
// into the queue's Read/Write methods. Policies meant for interrupt context
// never block.
package policy
