// control/hotreload.go
// Manages reload hooks for config changes.

package control

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	reloadMu    sync.RWMutex
	reloadHooks []func(*Config)
)

// RegisterReloadHook adds a new component reload listener.
func RegisterReloadHook(fn func(*Config)) {
	reloadMu.Lock()
	reloadHooks = append(reloadHooks, fn)
	reloadMu.Unlock()
}

func hooks() []func(*Config) {
	reloadMu.RLock()
	defer reloadMu.RUnlock()
	return append([]func(*Config){}, reloadHooks...)
}

// TriggerHotReload invokes every reload hook in registration order and
// returns once all of them have run.
func TriggerHotReload(cfg *Config) {
	for _, fn := range hooks() {
		fn(cfg)
	}
}

// Watch re-decodes the configuration whenever the file behind v changes and
// dispatches the reload hooks. Invalid edits are logged and ignored.
func Watch(v *viper.Viper, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := Decode(v)
		if err != nil {
			log.Warn("config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		log.Info("config reloaded", zap.String("file", e.Name), zap.Stringer("op", e.Op))
		TriggerHotReload(cfg)
	})
	v.WatchConfig()
}
