// Package config loads server settings: built-in defaults, then an
// optional YAML file, then .env and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "buzzer.yaml"

type Config struct {
	Addr              string        `yaml:"addr"`
	LogLevel          string        `yaml:"log_level"`
	LogFormat         string        `yaml:"log_format"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	PublicURL         string        `yaml:"public_url"`
	RoomTTL           time.Duration `yaml:"room_ttl"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	WitnessWindow     time.Duration `yaml:"witness_window"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	OutboxSize        int           `yaml:"outbox_size"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	MaxMessageSize    int64         `yaml:"max_message_size"`
	DatabaseURL       string        `yaml:"database_url"`
	DefaultGame       string        `yaml:"default_game"`
}

func Default() Config {
	return Config{
		Addr:              ":3000",
		LogLevel:          "info",
		LogFormat:         "json",
		AllowedOrigins:    []string{"*"},
		RoomTTL:           2 * time.Hour,
		SweepInterval:     time.Minute,
		WitnessWindow:     500 * time.Millisecond,
		HeartbeatInterval: 5 * time.Second,
		OutboxSize:        20,
		WriteTimeout:      5 * time.Second,
		MaxMessageSize:    32 << 10,
	}
}

// Load reads .env into the environment, then builds the config. An empty
// path means $BUZZER_CONFIG or DefaultPath; a missing file is not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("BUZZER_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	env := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := env("PORT"); ok {
		c.Addr = ":" + v
	}
	if v, ok := env("BUZZER_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := env("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := env("LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := env("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
	if v, ok := env("PUBLIC_URL"); ok {
		c.PublicURL = v
	}
	if v, ok := env("DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
	if v, ok := env("DEFAULT_GAME"); ok {
		c.DefaultGame = v
	}

	var errs error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"ROOM_TTL", &c.RoomTTL},
		{"SWEEP_INTERVAL", &c.SweepInterval},
		{"WITNESS_WINDOW", &c.WitnessWindow},
		{"HEARTBEAT_INTERVAL", &c.HeartbeatInterval},
		{"WRITE_TIMEOUT", &c.WriteTimeout},
	}
	for _, d := range durations {
		v, ok := env(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", d.key, err))
			continue
		}
		*d.dst = parsed
	}

	if v, ok := env("OUTBOX_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("OUTBOX_SIZE: %w", err))
		} else {
			c.OutboxSize = n
		}
	}
	if v, ok := env("MAX_MESSAGE_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("MAX_MESSAGE_SIZE: %w", err))
		} else {
			c.MaxMessageSize = n
		}
	}
	return errs
}

func (c Config) validate() error {
	var errs error
	positive := map[string]time.Duration{
		"room_ttl":           c.RoomTTL,
		"sweep_interval":     c.SweepInterval,
		"witness_window":     c.WitnessWindow,
		"heartbeat_interval": c.HeartbeatInterval,
		"write_timeout":      c.WriteTimeout,
	}
	for name, d := range positive {
		if d <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.OutboxSize <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("outbox_size must be positive, got %d", c.OutboxSize))
	}
	if c.MaxMessageSize <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("max_message_size must be positive, got %d", c.MaxMessageSize))
	}
	return errs
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
