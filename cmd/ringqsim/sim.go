// File: cmd/ringqsim/sim.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/momentics/ringq/api"
	"github.com/momentics/ringq/control"
	"github.com/momentics/ringq/device/uart"
	"github.com/momentics/ringq/storage"
)

// store is queue storage the simulator owns for the lifetime of the port.
type store interface {
	Bytes() []byte
	Close() error
}

type heapStore []byte

func (h heapStore) Bytes() []byte { return h }
func (heapStore) Close() error { return nil }

// openStorage obtains the storage a queue is built over.
func openStorage(qc control.QueueConfig, log *zap.Logger) (store, error) {
	var (
		r   *storage.Region
		err error
	)
	switch qc.Storage {
	case "heap", "":
		b, err := storage.Heap(qc.Capacity)
		if err != nil {
			return nil, err
		}
		return heapStore(b), nil
	case "anonymous":
		r, err = storage.Anonymous(qc.Capacity)
	case "file":
		r, err = storage.File(qc.Path, qc.Capacity)
	default:
		return nil, fmt.Errorf("unknown storage %q", qc.Storage)
	}
	if err != nil {
		return nil, err
	}
	if qc.Lock {
		if err := r.Lock(); err != nil {
			log.Warn("storage not locked in memory", zap.String("storage", qc.Storage), zap.Error(err))
		}
	}
	return r, nil
}

// lineSink is the far end of the TX line.
type lineSink struct {
	mu sync.Mutex
	n  int
}

func (l *lineSink) Write(p []byte) (int, error) {
	l.mu.Lock()
	l.n += len(p)
	l.mu.Unlock()
	return len(p), nil
}

func (l *lineSink) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

type trafficConfig struct {
	Interval   time.Duration
	Burst      int
	BreakEvery int
}

// receiver is the hardware side of a port.
type receiver interface {
	Receive(b byte)
	ReceiveBreak()
}

// generate feeds bursts of printable text into the receiver until ctx ends.
func generate(ctx context.Context, rx receiver, tc trafficConfig) {
	if tc.Interval <= 0 || tc.Burst <= 0 {
		<-ctx.Done()
		return
	}
	t := time.NewTicker(tc.Interval)
	defer t.Stop()
	var seq, tick int
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		tick++
		if tc.BreakEvery > 0 && tick%tc.BreakEvery == 0 {
			rx.ReceiveBreak()
		}
		for i := 0; i < tc.Burst; i++ {
			rx.Receive(byte('!' + seq%94))
			seq++
		}
	}
}

// echo reads whatever the port receives and writes it back out.
func echo(ctx context.Context, p *uart.Port, log *zap.Logger) {
	buf := make([]byte, 256)
	for ctx.Err() == nil {
		n, err := p.Read(ctx, buf)
		switch {
		case errors.Is(err, uart.ErrBreak):
			log.Debug("line break", zap.String("port", p.Name()))
			continue
		case errors.Is(err, api.ErrTimeout):
			continue
		case err != nil:
			if ctx.Err() == nil {
				log.Warn("echo read failed", zap.Error(err))
			}
			return
		}
		if _, err := p.Write(ctx, buf[:n]); err != nil && ctx.Err() == nil {
			log.Warn("echo write failed", zap.Error(err))
		}
	}
}

// newRouter serves metrics and the debug surface.
func newRouter(m *control.Metrics, dp *control.DebugProbes, cfg func() *control.Config) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})).Methods(http.MethodGet)

	debug := r.PathPrefix("/debug").Subrouter()
	debug.HandleFunc("/probes", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dp.DumpState())
	}).Methods(http.MethodGet)
	debug.HandleFunc("/probes/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := mux.Vars(req)["name"]
		v, ok := dp.DumpState()[name]
		if !ok {
			http.Error(w, "unknown probe", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}).Methods(http.MethodGet)
	debug.HandleFunc("/config", func(w http.ResponseWriter, req *http.Request) {
		format := req.URL.Query().Get("format")
		out, err := cfg().MarshalEffective(format)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if format == "json" {
			w.Header().Set("Content-Type", "application/json")
		} else {
			w.Header().Set("Content-Type", "application/yaml")
		}
		_, _ = w.Write(out)
	}).Methods(http.MethodGet)
	return r
}
