// Package irq
// Author: momentics <momentics@gmail.com>
//
// Simulated interrupt controller for running ISR/task code on a host.
//
// A single dispatcher goroutine plays the CPU's interrupt entry: raised
// vectors are serviced one at a time, lowest vector first, and a running
// handler excludes the task. Tasks mask the controller (Mask/Unmask, or the
// api.Section Enter/Exit pair) around every touch of a queue shared with a
// handler. Handlers run with the controller already masked and must not block.
package irq
