// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus metrics for queues, hooks and the interrupt controller.

package control

import (
	"sort"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/momentics/ringq/api"
)

const namespace = "ringq"

// Metrics owns a private registry so several simulators can live in one process.
type Metrics struct {
	reg       *prometheus.Registry
	hookCalls *prometheus.CounterVec
	state     *stateCollector
}

// NewMetrics creates a registry with Go runtime, process and ringq collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		hookCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hook",
			Name:      "invocations_total",
			Help:      "Policy hook invocations by queue, hook, write mode and outcome.",
		}, []string{"queue", "hook", "mode", "outcome"}),
		state: newStateCollector(),
	}
	m.reg.MustRegister(collectors.NewGoCollector())
	m.reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m.reg.MustRegister(m.hookCalls, m.state)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// InstrumentUnderflow counts every invocation of h and its outcome.
func (m *Metrics) InstrumentUnderflow(queue string, h api.UnderflowHook) api.UnderflowHook {
	return api.UnderflowFunc(func(q api.Slots, out *byte) error {
		err := h.OnEmpty(q, out)
		m.hookCalls.WithLabelValues(queue, "underflow", "", api.CodeOf(err).String()).Inc()
		return err
	})
}

// InstrumentOverflow counts every invocation of h with its write mode and outcome.
func (m *Metrics) InstrumentOverflow(queue string, h api.OverflowHook) api.OverflowHook {
	return api.OverflowFunc(func(q api.Slots, b byte, mode api.Mode) error {
		err := h.OnFull(q, b, mode)
		m.hookCalls.WithLabelValues(queue, "overflow", mode.String(), api.CodeOf(err).String()).Inc()
		return err
	})
}

// WatchQueue exports depth and capacity gauges for q.
// q must be safe to inspect from the scraping goroutine (for example a guard.Queue).
func (m *Metrics) WatchQueue(name string, q api.ByteQueue) {
	m.state.mu.Lock()
	m.state.queues[name] = q
	m.state.mu.Unlock()
}

// WatchVectors exports per-vector service counts read through count.
func (m *Metrics) WatchVectors(controller string, vectors map[string]int, count func(vector int) uint64) {
	m.state.mu.Lock()
	m.state.vectors[controller] = vectorSource{vectors: vectors, count: count}
	m.state.mu.Unlock()
}

type vectorSource struct {
	vectors map[string]int
	count   func(int) uint64
}

// stateCollector reads live queue and controller state at scrape time.
type stateCollector struct {
	mu      sync.Mutex
	queues  map[string]api.ByteQueue
	vectors map[string]vectorSource

	depth    *prometheus.Desc
	capacity *prometheus.Desc
	serviced *prometheus.Desc
}

func newStateCollector() *stateCollector {
	return &stateCollector{
		queues:  make(map[string]api.ByteQueue),
		vectors: make(map[string]vectorSource),
		depth: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "queue", "depth"),
			"Bytes currently queued.", []string{"queue"}, nil),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "queue", "capacity"),
			"Configured queue capacity in bytes.", []string{"queue"}, nil),
		serviced: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "irq", "serviced_total"),
			"Interrupts serviced per vector.", []string{"controller", "name", "vector"}, nil),
	}
}

func (c *stateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.depth
	ch <- c.capacity
	ch <- c.serviced
}

func (c *stateCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, q := range c.queues {
		ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue, float64(q.DataNum()), name)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(q.Size()), name)
	}
	for ctrl, src := range c.vectors {
		names := make([]string, 0, len(src.vectors))
		for n := range src.vectors {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			v := src.vectors[n]
			ch <- prometheus.MustNewConstMetric(c.serviced, prometheus.CounterValue,
				float64(src.count(v)), ctrl, n, strconv.Itoa(v))
		}
	}
}
