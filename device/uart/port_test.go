// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// port_test.go: loopback, break, overflow and lifecycle tests for the UART port.

package uart

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/momentics/ringq/api"
	"github.com/momentics/ringq/control"
	"github.com/momentics/ringq/fake"
	"github.com/momentics/ringq/internal/irq"
)

func testConfig() Config {
	return Config{
		Name:         "uart0",
		RXCapacity:   64,
		TXCapacity:   8,
		RXOverflow:   OverflowOverwriteOldest,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

// newPort opens a port on a fresh controller. The dispatcher is not started.
func newPort(t *testing.T, cfg Config, opts ...Option) (*Port, *irq.Controller, *fake.FakeWire) {
	t.Helper()
	ctrl := irq.New(-1, zaptest.NewLogger(t))
	wire := &fake.FakeWire{}
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	p, err := Open(ctrl, wire, cfg, opts...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, ctrl, wire
}

func start(t *testing.T, ctrl *irq.Controller) {
	t.Helper()
	go func() { _ = ctrl.Run(context.Background()) }()
	t.Cleanup(ctrl.Stop)
}

func loopback(p *Port, wire *fake.FakeWire) {
	wire.Notify = func(b []byte) {
		for _, c := range b {
			p.Receive(c)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestOpenRejectsBadArguments(t *testing.T) {
	ctrl := irq.New(-1, nil)
	wire := &fake.FakeWire{}
	cases := map[string]func() error{
		"nil controller": func() error { _, err := Open(nil, wire, testConfig()); return err },
		"nil wire":       func() error { _, err := Open(ctrl, nil, testConfig()); return err },
		"vector": func() error {
			cfg := testConfig()
			cfg.Vector = irq.MaxVectors - 1
			_, err := Open(ctrl, wire, cfg)
			return err
		},
		"capacity": func() error {
			cfg := testConfig()
			cfg.TXCapacity = 0
			_, err := Open(ctrl, wire, cfg)
			return err
		},
		"policy": func() error {
			cfg := testConfig()
			cfg.RXOverflow = "explode"
			_, err := Open(ctrl, wire, cfg)
			return err
		},
	}
	for name, fn := range cases {
		if err := fn(); !errors.Is(err, api.ErrInvalidArgument) {
			t.Errorf("%s: expected ErrInvalidArgument, got %v", name, err)
		}
	}
}

func TestLoopbackEchoesInOrder(t *testing.T) {
	cfg := testConfig()
	cfg.TXCapacity = 2 // forces the writer to block on TX space
	p, ctrl, wire := newPort(t, cfg)
	loopback(p, wire)
	start(t, ctrl)

	msg := []byte("the quick brown fox jumps over the lazy dog")
	n, err := p.Write(context.Background(), msg)
	if err != nil || n != len(msg) {
		t.Fatalf("write n=%d err=%v", n, err)
	}
	got := make([]byte, len(msg))
	if _, err := io.ReadFull(p.Reader(), got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, msg) {
		t.Fatalf("echo mismatch: %q", got)
	}
	if !bytes.Equal(wire.Bytes(), msg) {
		t.Fatalf("wire mismatch: %q", wire.Bytes())
	}
	st := p.Stats()
	if st.Sent != uint64(len(msg)) || st.Received != uint64(len(msg)) || st.TXDepth != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestBreakSurfacesAheadOfQueuedData(t *testing.T) {
	p, ctrl, _ := newPort(t, testConfig())
	p.Receive('a')
	p.Receive('b')
	p.ReceiveBreak()
	start(t, ctrl)

	ctx := context.Background()
	if _, err := p.ReadByteContext(ctx); !errors.Is(err, ErrBreak) {
		t.Fatalf("expected ErrBreak, got %v", err)
	}
	buf := make([]byte, 8)
	n, err := p.Read(ctx, buf)
	if err != nil || string(buf[:n]) != "ab" {
		t.Fatalf("got %q err=%v", buf[:n], err)
	}
	if st := p.Stats(); st.Breaks != 1 || st.BreaksPending != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestZeroDataByteIsNotABreak(t *testing.T) {
	p, ctrl, _ := newPort(t, testConfig())
	p.Receive(MarkerBreak)
	p.Receive('x')
	start(t, ctrl)

	buf := make([]byte, 4)
	waitFor(t, func() bool { return p.Stats().RXDepth == 2 })
	n, err := p.Read(context.Background(), buf)
	if err != nil || !bytes.Equal(buf[:n], []byte{0, 'x'}) {
		t.Fatalf("got %v err=%v", buf[:n], err)
	}
}

func TestReadStopsAtBreak(t *testing.T) {
	p, ctrl, _ := newPort(t, testConfig())
	start(t, ctrl)
	p.Receive('a')
	waitFor(t, func() bool { return p.Stats().RXDepth == 1 })

	ctx := context.Background()
	b, err := p.ReadByteContext(ctx)
	if err != nil || b != 'a' {
		t.Fatalf("got %q err=%v", b, err)
	}
	p.ReceiveBreak()
	p.Receive('z')
	waitFor(t, func() bool { return p.Stats().RXDepth == 2 })
	if _, err := p.ReadByteContext(ctx); !errors.Is(err, ErrBreak) {
		t.Fatalf("expected ErrBreak, got %v", err)
	}
	if b, err := p.ReadByteContext(ctx); err != nil || b != 'z' {
		t.Fatalf("got %q err=%v", b, err)
	}
}

func TestRXOverflowPolicies(t *testing.T) {
	cases := []struct {
		policy   string
		want     []string
		rejected uint64
	}{
		{OverflowOverwriteOldest, []string{"cdef"}, 0},
		{OverflowDropNewest, []string{"abcd"}, 0},
		{OverflowReject, []string{"abcd"}, 2},
		{OverflowSpill, []string{"abcd", "ef"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.policy, func(t *testing.T) {
			cfg := testConfig()
			cfg.RXCapacity = 4
			cfg.RXOverflow = tc.policy
			p, ctrl, _ := newPort(t, cfg)
			for _, c := range []byte("abcdef") {
				p.Receive(c)
			}
			start(t, ctrl)

			buf := make([]byte, 8)
			for _, want := range tc.want {
				n, err := p.Read(context.Background(), buf)
				if err != nil || string(buf[:n]) != want {
					t.Fatalf("got %q err=%v, want %q", buf[:n], err, want)
				}
			}
			if st := p.Stats(); st.RXRejected != tc.rejected {
				t.Fatalf("rejected %d, want %d", st.RXRejected, tc.rejected)
			}
		})
	}
}

func TestOverwriteEvictingBreakKeepsCount(t *testing.T) {
	cfg := testConfig()
	cfg.RXCapacity = 2
	p, ctrl, _ := newPort(t, cfg)
	p.ReceiveBreak()
	start(t, ctrl)
	waitFor(t, func() bool { return p.Stats().BreaksPending == 1 })

	p.Receive('a')
	p.Receive('b') // evicts the marker
	waitFor(t, func() bool { return p.Stats().Received == 2 })

	st := p.Stats()
	if st.BreaksPending != 0 || st.BreaksLost != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
	buf := make([]byte, 4)
	n, err := p.Read(context.Background(), buf)
	if err != nil || string(buf[:n]) != "ab" {
		t.Fatalf("got %q err=%v", buf[:n], err)
	}
}

func TestHardwareFIFOOverrun(t *testing.T) {
	p, ctrl, _ := newPort(t, testConfig(), WithFIFODepth(4))
	for i := 0; i < 6; i++ {
		p.Receive(byte('0' + i))
	}
	start(t, ctrl)

	buf := make([]byte, 8)
	n, err := p.Read(context.Background(), buf)
	if err != nil || string(buf[:n]) != "0123" {
		t.Fatalf("got %q err=%v", buf[:n], err)
	}
	if st := p.Stats(); st.Overruns != 2 {
		t.Fatalf("expected 2 overruns, got %+v", st)
	}
}

func TestReadTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ReadTimeout = 20 * time.Millisecond
	p, ctrl, _ := newPort(t, cfg)
	start(t, ctrl)

	_, err := p.ReadByteContext(context.Background())
	if !errors.Is(err, api.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestReadHonoursContext(t *testing.T) {
	cfg := testConfig()
	cfg.ReadTimeout = 0
	p, ctrl, _ := newPort(t, cfg)
	start(t, ctrl)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.ReadByteContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
}

func TestWriteTimesOutWithoutDispatcher(t *testing.T) {
	cfg := testConfig()
	cfg.TXCapacity = 2
	cfg.WriteTimeout = 20 * time.Millisecond
	p, _, _ := newPort(t, cfg)

	n, err := p.Write(context.Background(), []byte("abc"))
	if n != 2 || !errors.Is(err, api.ErrTimeout) {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestWriteUrgentGoesOutFirst(t *testing.T) {
	p, ctrl, wire := newPort(t, testConfig())
	ctx := context.Background()
	if _, err := p.Write(ctx, []byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := p.WriteUrgent(ctx, '!'); err != nil {
		t.Fatal(err)
	}
	start(t, ctrl)
	waitFor(t, func() bool { return wire.Len() == 4 })
	if got := string(wire.Bytes()); got != "!abc" {
		t.Fatalf("wire %q", got)
	}
}

func TestFlushDiscardsQueues(t *testing.T) {
	p, _, _ := newPort(t, testConfig())
	if _, err := p.Write(context.Background(), []byte("abc")); err != nil {
		t.Fatal(err)
	}
	p.ReceiveBreak()
	p.Flush()
	if st := p.Stats(); st.TXDepth != 0 || st.RXDepth != 0 || st.BreaksPending != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestClose(t *testing.T) {
	p, _, _ := newPort(t, testConfig())
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("second close: %v", err)
	}
	if _, err := p.Read(context.Background(), make([]byte, 1)); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("read after close: %v", err)
	}
	if _, err := p.Write(context.Background(), []byte("x")); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("write after close: %v", err)
	}
}

func TestCloseReleasesBlockedCalls(t *testing.T) {
	cfg := testConfig()
	cfg.ReadTimeout = 0
	cfg.WriteTimeout = 0
	cfg.TXCapacity = 2
	p, _, _ := newPort(t, cfg)

	type result struct {
		n   int
		err error
	}
	reads := make(chan result, 1)
	writes := make(chan result, 1)
	go func() {
		var b [1]byte
		n, err := p.Reader().Read(b[:])
		reads <- result{n, err}
	}()
	go func() {
		// no dispatcher: the third byte waits for TX space forever
		n, err := p.Writer().Write([]byte("abc"))
		writes <- result{n, err}
	}()
	time.Sleep(20 * time.Millisecond)

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	for name, ch := range map[string]chan result{"read": reads, "write": writes} {
		select {
		case r := <-ch:
			if !errors.Is(r.err, api.ErrClosed) {
				t.Fatalf("%s: expected ErrClosed, got n=%d err=%v", name, r.n, r.err)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s still blocked after Close", name)
		}
	}
}

func TestProbesAndMetrics(t *testing.T) {
	m := control.NewMetrics()
	p, ctrl, wire := newPort(t, testConfig(), WithMetrics(m))
	loopback(p, wire)
	start(t, ctrl)

	if _, err := p.Write(context.Background(), []byte("hi")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return p.Stats().RXDepth == 2 })

	dp := control.NewDebugProbes()
	p.Probes(dp)
	state := dp.DumpState()
	if state["uart0.rx.depth"] != 2 || state["uart0.tx.capacity"] != 8 {
		t.Fatalf("unexpected probes %v", state)
	}

	buf := make([]byte, 2)
	if _, err := io.ReadFull(p.Reader(), buf); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.ReadByteContext(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, f := range families {
		seen[f.GetName()] = true
	}
	for _, name := range []string{"ringq_queue_depth", "ringq_irq_serviced_total", "ringq_hook_invocations_total"} {
		if !seen[name] {
			t.Errorf("metric %s not exported", name)
		}
	}
}
