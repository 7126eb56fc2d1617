// File: internal/logger/logger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Process-wide structured logger with a runtime-adjustable level.

package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	zl    = zap.NewNop()
	level = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// Config selects the level (debug|info|warn|error) and format (text|json).
type Config struct {
	Level  string
	Format string
}

// Init builds the global logger writing to w (stdout when nil) and returns it.
func Init(cfg Config, w io.Writer) (*zap.Logger, error) {
	lvl, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stdout
	}
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     utcTime,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	level.SetLevel(lvl)
	l := zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level), zap.AddCaller())

	mu.Lock()
	zl = l
	mu.Unlock()
	return l, nil
}

func utcTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(time.RFC3339Nano))
}

// Zap returns the global logger. It is a no-op logger until Init.
func Zap() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return zl
}

// SetLevel changes the level of every logger built by Init.
func SetLevel(name string) error {
	lvl, err := parseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

// Level returns the current level name.
func Level() string { return level.Level().String() }

func parseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zap.InfoLevel, nil
	}
	return zapcore.ParseLevel(name)
}
