// Package api
// Author: momentics <momentics@gmail.com>
//
// Live introspection of queues and the platform they run on.

package api

// Debug is a registry of named probes evaluated on demand.
// Probe names are dotted paths such as "uart0.rx.depth".
type Debug interface {
	// DumpState evaluates every probe and returns name -> value.
	DumpState() map[string]any

	// RegisterProbe adds or replaces the probe called name.
	RegisterProbe(name string, fn func() any)
}
