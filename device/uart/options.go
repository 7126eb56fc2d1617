// File: device/uart/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package uart

import (
	"go.uber.org/zap"

	"github.com/momentics/ringq/control"
)

// Option customizes a Port before its queues are built.
type Option func(*Port)

// WithLogger logs policy decisions and handler faults through log.
func WithLogger(log *zap.Logger) Option {
	return func(p *Port) {
		if log != nil {
			p.log = log
		}
	}
}

// WithMetrics counts hook invocations and exports queue depth and
// interrupt counts through m.
func WithMetrics(m *control.Metrics) Option {
	return func(p *Port) {
		p.metrics = m
	}
}

// WithFIFODepth overrides the depth of the hardware receive FIFO.
func WithFIFODepth(n int) Option {
	return func(p *Port) {
		p.fifoDepth = n
	}
}
