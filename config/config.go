// Package config loads hierasock settings from TOML files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-zeromq/zmq4"

	"github.com/VanDung-dev/hierasock/logging"
	"github.com/VanDung-dev/hierasock/sock"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config describes one socket and the process around it.
type Config struct {
	Type           string
	Endpoints      string
	Serverish      bool
	Subscribe      string
	DynamicFirst   int
	DynamicLast    int
	Unbounded      bool
	DialRetry      time.Duration
	DialMaxRetries int
	LogLevel       string
	MetricsAddress string
}

// config.toml key mapping to Config.
type fileConfig struct {
	Type           string `toml:"type"`
	Endpoints      string `toml:"endpoints"`
	Serverish      bool   `toml:"serverish"`
	Subscribe      string `toml:"subscribe"`
	DynamicFirst   int    `toml:"dynamic_first"`
	DynamicLast    int    `toml:"dynamic_last"`
	Unbounded      bool   `toml:"unbounded"`
	DialRetry      string `toml:"dial_retry"`
	DialMaxRetries int    `toml:"dial_max_retries"`
	LogLevel       string `toml:"log_level"`
	MetricsAddress string `toml:"metrics_address"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Type:           "PAIR",
		DynamicFirst:   sock.DynamicFirst,
		DynamicLast:    sock.DynamicLast,
		DialRetry:      250 * time.Millisecond,
		DialMaxRetries: 10,
		LogLevel:       "info",
	}
}

// Load reads path and overlays the keys it defines on Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: %w: unknown key %q", ErrInvalid, undecoded[0].String())
	}

	if meta.IsDefined("type") {
		cfg.Type = strings.ToUpper(strings.TrimSpace(raw.Type))
	}
	if meta.IsDefined("endpoints") {
		cfg.Endpoints = raw.Endpoints
	}
	if meta.IsDefined("serverish") {
		cfg.Serverish = raw.Serverish
	}
	if meta.IsDefined("subscribe") {
		cfg.Subscribe = raw.Subscribe
	}
	if meta.IsDefined("dynamic_first") {
		cfg.DynamicFirst = raw.DynamicFirst
	}
	if meta.IsDefined("dynamic_last") {
		cfg.DynamicLast = raw.DynamicLast
	}
	if meta.IsDefined("unbounded") {
		cfg.Unbounded = raw.Unbounded
	}
	if meta.IsDefined("dial_retry") {
		retry, err := time.ParseDuration(strings.TrimSpace(raw.DialRetry))
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w: dial_retry: %w", ErrInvalid, err)
		}
		cfg.DialRetry = retry
	}
	if meta.IsDefined("dial_max_retries") {
		cfg.DialMaxRetries = raw.DialMaxRetries
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("metrics_address") {
		cfg.MetricsAddress = strings.TrimSpace(raw.MetricsAddress)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the settings describe a usable socket.
func (c Config) Validate() error {
	if _, err := sock.ParseType(c.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.DynamicFirst < 1 || c.DynamicFirst > c.DynamicLast || c.DynamicLast > 65535 {
		return fmt.Errorf("%w: dynamic port range [%d-%d]", ErrInvalid, c.DynamicFirst, c.DynamicLast)
	}
	if c.DialRetry < 0 {
		return fmt.Errorf("%w: negative dial_retry %s", ErrInvalid, c.DialRetry)
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// SocketType returns the configured socket type.
func (c Config) SocketType() (sock.Type, error) {
	return sock.ParseType(c.Type)
}

// Logging returns the logger settings.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	return cfg
}

// SocketOptions returns the handle options for the configured socket.
func (c Config) SocketOptions() []sock.Option {
	return []sock.Option{
		sock.WithDynamicRange(c.DynamicFirst, c.DynamicLast),
		sock.WithSocketOptions(
			zmq4.WithDialerRetry(c.DialRetry),
			zmq4.WithDialerMaxRetries(c.DialMaxRetries),
		),
	}
}
