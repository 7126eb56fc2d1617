// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Viper-backed configuration for the ringq simulator.

package control

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/momentics/ringq/api"
)

// QueueConfig sizes one queue and selects its storage.
type QueueConfig struct {
	Capacity int    `yaml:"capacity" json:"capacity"`
	Storage  string `yaml:"storage" json:"storage"` // heap|anonymous|file
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	Lock     bool   `yaml:"lock" json:"lock"`
}

// Config is the simulator configuration.
type Config struct {
	Logging struct {
		Level  string `yaml:"level" json:"level"`   // debug|info|warn|error
		Format string `yaml:"format" json:"format"` // text|json
	} `yaml:"logging" json:"logging"`
	HTTP struct {
		Addr string `yaml:"addr" json:"addr"`
	} `yaml:"http" json:"http"`
	IRQ struct {
		CPU int `yaml:"cpu" json:"cpu"` // -1 leaves the dispatcher unpinned
	} `yaml:"irq" json:"irq"`
	UART struct {
		Name         string        `yaml:"name" json:"name"`
		RX           QueueConfig   `yaml:"rx" json:"rx"`
		TX           QueueConfig   `yaml:"tx" json:"tx"`
		RXOverflow   string        `yaml:"rx_overflow" json:"rx_overflow"` // reject|drop-newest|overwrite-oldest|spill
		SpillLimit   int           `yaml:"spill_limit" json:"spill_limit"`
		ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	} `yaml:"uart" json:"uart"`
	Traffic struct {
		Interval   time.Duration `yaml:"interval" json:"interval"`
		Burst      int           `yaml:"burst" json:"burst"`
		BreakEvery int           `yaml:"break_every" json:"break_every"` // 0 disables line breaks
	} `yaml:"traffic" json:"traffic"`
}

// NewViper returns a viper instance with defaults, env binding and the
// optional config file. An empty path searches ./ringq.yaml.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ringq")
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
	}
	// Environment variable support. Example: RINGQ_UART_RX_CAPACITY=512
	v.SetEnvPrefix("RINGQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("http.addr", "127.0.0.1:9464")
	v.SetDefault("irq.cpu", -1)

	v.SetDefault("uart.name", "uart0")
	v.SetDefault("uart.rx.capacity", 256)
	v.SetDefault("uart.rx.storage", "heap")
	v.SetDefault("uart.rx.path", "")
	v.SetDefault("uart.rx.lock", false)
	v.SetDefault("uart.tx.capacity", 256)
	v.SetDefault("uart.tx.storage", "heap")
	v.SetDefault("uart.tx.path", "")
	v.SetDefault("uart.tx.lock", false)
	v.SetDefault("uart.rx_overflow", "overwrite-oldest")
	v.SetDefault("uart.spill_limit", 4096)
	v.SetDefault("uart.read_timeout", "1s")
	v.SetDefault("uart.write_timeout", "1s")

	v.SetDefault("traffic.interval", "10ms")
	v.SetDefault("traffic.burst", 32)
	v.SetDefault("traffic.break_every", 0)
	return v
}

// Load reads the config file (a missing default file is not an error) and
// decodes and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return Decode(v)
}

// Decode builds a Config from the current viper state.
func Decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Format = v.GetString("logging.format")
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.IRQ.CPU = v.GetInt("irq.cpu")

	cfg.UART.Name = v.GetString("uart.name")
	cfg.UART.RX = decodeQueue(v, "uart.rx")
	cfg.UART.TX = decodeQueue(v, "uart.tx")
	cfg.UART.RXOverflow = strings.ToLower(strings.TrimSpace(v.GetString("uart.rx_overflow")))
	cfg.UART.SpillLimit = v.GetInt("uart.spill_limit")
	cfg.UART.ReadTimeout = v.GetDuration("uart.read_timeout")
	cfg.UART.WriteTimeout = v.GetDuration("uart.write_timeout")

	cfg.Traffic.Interval = v.GetDuration("traffic.interval")
	cfg.Traffic.Burst = v.GetInt("traffic.burst")
	cfg.Traffic.BreakEvery = v.GetInt("traffic.break_every")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeQueue(v *viper.Viper, key string) QueueConfig {
	return QueueConfig{
		Capacity: v.GetInt(key + ".capacity"),
		Storage:  strings.ToLower(v.GetString(key + ".storage")),
		Path:     v.GetString(key + ".path"),
		Lock:     v.GetBool(key + ".lock"),
	}
}

// Validate checks the values the simulator cannot recover from.
func (c *Config) Validate() error {
	invalid := func(field string, value any) error {
		return api.NewError(api.ErrCodeInvalidArgument, "config: invalid "+field).
			WithContext("value", value)
	}
	for name, q := range map[string]QueueConfig{"uart.rx": c.UART.RX, "uart.tx": c.UART.TX} {
		if q.Capacity <= 0 {
			return invalid(name+".capacity", q.Capacity)
		}
		switch q.Storage {
		case "heap", "anonymous":
		case "file":
			if q.Path == "" {
				return invalid(name+".path", q.Path)
			}
		default:
			return invalid(name+".storage", q.Storage)
		}
	}
	switch c.UART.RXOverflow {
	case "reject", "drop-newest", "overwrite-oldest", "spill":
	default:
		return invalid("uart.rx_overflow", c.UART.RXOverflow)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level", c.Logging.Level)
	}
	if c.Traffic.Burst < 0 {
		return invalid("traffic.burst", c.Traffic.Burst)
	}
	return nil
}
