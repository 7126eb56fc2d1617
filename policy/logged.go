// File: policy/logged.go
// Author: momentics <momentics@gmail.com>
//
// Logging decorators for task-side hooks. Logging allocates and may block on
// the sink, so keep these off interrupt-context hooks in production.

package policy

import (
	"go.uber.org/zap"

	"github.com/momentics/ringq/api"
)

// LogUnderflow wraps h and logs every invocation at debug level.
func LogUnderflow(log *zap.Logger, name string, h api.UnderflowHook) api.UnderflowHook {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("queue", name), zap.String("hook", "underflow"))
	return api.UnderflowFunc(func(q api.Slots, out *byte) error {
		err := h.OnEmpty(q, out)
		if ce := log.Check(zap.DebugLevel, "queue empty"); ce != nil {
			ce.Write(zap.Int("len", q.Len()), zap.Stringer("outcome", api.CodeOf(err)), zap.Uint8("out", *out))
		}
		return err
	})
}

// LogOverflow wraps h and logs every invocation at debug level.
func LogOverflow(log *zap.Logger, name string, h api.OverflowHook) api.OverflowHook {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("queue", name), zap.String("hook", "overflow"))
	return api.OverflowFunc(func(q api.Slots, b byte, mode api.Mode) error {
		err := h.OnFull(q, b, mode)
		if ce := log.Check(zap.DebugLevel, "queue full"); ce != nil {
			ce.Write(zap.Uint8("byte", b), zap.Stringer("mode", mode), zap.Stringer("outcome", api.CodeOf(err)))
		}
		return err
	})
}
