// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// sim_test.go: HTTP routes, traffic generator and storage tests for the simulator.

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/ringq/control"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg, err := control.Decode(control.NewViper(""))
	if err != nil {
		t.Fatal(err)
	}
	dp := control.NewDebugProbes()
	dp.RegisterProbe("line.bytes", func() any { return 42 })
	return newRouter(control.NewMetrics(), dp, func() *control.Config { return cfg })
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestRouterProbes(t *testing.T) {
	h := testRouter(t)

	rec := get(t, h, "/debug/probes")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var state map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state["line.bytes"] != float64(42) {
		t.Fatalf("unexpected state %v", state)
	}

	if rec := get(t, h, "/debug/probes/line.bytes"); strings.TrimSpace(rec.Body.String()) != "42" {
		t.Fatalf("probe body %q", rec.Body.String())
	}
	if rec := get(t, h, "/debug/probes/missing"); rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestRouterConfigAndMetrics(t *testing.T) {
	h := testRouter(t)

	rec := get(t, h, "/debug/config?format=json")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"rx_overflow": "overwrite-oldest"`) {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if rec := get(t, h, "/debug/config"); !strings.Contains(rec.Body.String(), "rx_overflow: overwrite-oldest") {
		t.Fatalf("yaml body %s", rec.Body.String())
	}
	if rec := get(t, h, "/debug/config?format=xml"); rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	if rec := get(t, h, "/metrics"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("metrics status %d", rec.Code)
	}
}

type recorder struct {
	mu     sync.Mutex
	bytes  []byte
	breaks int
}

func (r *recorder) Receive(b byte) {
	r.mu.Lock()
	r.bytes = append(r.bytes, b)
	r.mu.Unlock()
}

func (r *recorder) ReceiveBreak() {
	r.mu.Lock()
	r.breaks++
	r.mu.Unlock()
}

func TestGenerateBurstsAndBreaks(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		generate(ctx, rec, trafficConfig{Interval: time.Millisecond, Burst: 4, BreakEvery: 2})
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec.mu.Lock()
		n, breaks := len(rec.bytes), rec.breaks
		rec.mu.Unlock()
		if n >= 8 && breaks >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("generator produced %d bytes and %d breaks", n, breaks)
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if string(rec.bytes[:4]) != "!\"#$" {
		t.Fatalf("unexpected pattern %q", rec.bytes[:4])
	}
	if len(rec.bytes)%4 != 0 {
		t.Fatalf("partial burst: %d bytes", len(rec.bytes))
	}
}

func TestOpenStorage(t *testing.T) {
	log := zap.NewNop()
	s, err := openStorage(control.QueueConfig{Capacity: 32, Storage: "heap"}, log)
	if err != nil || len(s.Bytes()) != 32 {
		t.Fatalf("heap: %v", err)
	}
	s, err = openStorage(control.QueueConfig{Capacity: 32, Storage: "anonymous"}, log)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Bytes()) != 32 {
		t.Fatalf("anonymous length %d", len(s.Bytes()))
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := openStorage(control.QueueConfig{Capacity: 32, Storage: "tape"}, log); err == nil {
		t.Fatal("expected error for unknown storage")
	}
}
