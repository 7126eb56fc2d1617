// File: cmd/ringqsim/main.go
// Package main
// Serial line simulator: an interrupt-driven UART fed by a traffic generator
// and drained by an echo task, with metrics and debug endpoints over HTTP.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/momentics/ringq/control"
	"github.com/momentics/ringq/device/uart"
	"github.com/momentics/ringq/internal/irq"
	"github.com/momentics/ringq/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default ./ringq.yaml if present)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "ringqsim:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	v := control.NewViper(configPath)
	cfg, err := control.Load(v)
	if err != nil {
		return err
	}
	log, err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, nil)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := control.NewMetrics()
	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)

	rxStore, err := openStorage(cfg.UART.RX, log)
	if err != nil {
		return fmt.Errorf("rx storage: %w", err)
	}
	defer rxStore.Close()
	txStore, err := openStorage(cfg.UART.TX, log)
	if err != nil {
		return fmt.Errorf("tx storage: %w", err)
	}
	defer txStore.Close()

	ctrl := irq.New(cfg.IRQ.CPU, log)
	line := &lineSink{}
	port, err := uart.Open(ctrl, line, uart.Config{
		Name:         cfg.UART.Name,
		RXCapacity:   cfg.UART.RX.Capacity,
		TXCapacity:   cfg.UART.TX.Capacity,
		RXStorage:    rxStore.Bytes(),
		TXStorage:    txStore.Bytes(),
		RXOverflow:   cfg.UART.RXOverflow,
		SpillLimit:   cfg.UART.SpillLimit,
		ReadTimeout:  cfg.UART.ReadTimeout,
		WriteTimeout: cfg.UART.WriteTimeout,
	}, uart.WithLogger(log), uart.WithMetrics(metrics))
	if err != nil {
		return err
	}
	port.Probes(probes)
	probes.RegisterProbe("line.bytes", func() any { return line.Len() })

	var current struct {
		sync.Mutex
		cfg *control.Config
	}
	current.cfg = cfg
	control.RegisterReloadHook(func(c *control.Config) {
		if err := logger.SetLevel(c.Logging.Level); err != nil {
			log.Warn("log level not applied", zap.Error(err))
		}
		current.Lock()
		current.cfg = c
		current.Unlock()
	})
	if configPath != "" {
		control.Watch(v, log)
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: newRouter(metrics, probes, func() *control.Config {
			current.Lock()
			defer current.Unlock()
			return current.cfg
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("interrupt dispatcher stopped", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		generate(ctx, port, trafficConfig{
			Interval:   cfg.Traffic.Interval,
			Burst:      cfg.Traffic.Burst,
			BreakEvery: cfg.Traffic.BreakEvery,
		})
	}()
	go func() {
		defer wg.Done()
		echo(ctx, port, log)
	}()

	log.Info("simulator running",
		zap.String("port", port.Name()),
		zap.String("rx_overflow", cfg.UART.RXOverflow))
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	wg.Wait()
	_ = port.Close()

	st := port.Stats()
	log.Info("simulator stopped",
		zap.Uint64("received", st.Received),
		zap.Uint64("rx_rejected", st.RXRejected),
		zap.Uint64("overruns", st.Overruns),
		zap.Uint64("sent", st.Sent),
		zap.Uint64("breaks", st.Breaks),
		zap.Uint64("breaks_lost", st.BreaksLost),
		zap.Int("line_bytes", line.Len()))
	return nil
}
