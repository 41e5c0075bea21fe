// Package config loads the playground CLI configuration.
//
// Values come from, in order of precedence: command-line flags, environment
// variables (PLAYGROUND_*), a YAML file, and the defaults below.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "playground.yaml"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the full CLI configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	Network  string `mapstructure:"network" yaml:"network"`

	// RPCURL overrides the endpoint derived from Network.
	RPCURL string `mapstructure:"rpc_url" yaml:"rpc_url,omitempty"`

	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// StoreConfig selects and configures the playground store.
type StoreConfig struct {
	Kind      string        `mapstructure:"kind" yaml:"kind"`
	Dir       string        `mapstructure:"dir" yaml:"dir,omitempty"`
	Format    string        `mapstructure:"format" yaml:"format,omitempty"`
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr,omitempty"`
	Prefix    string        `mapstructure:"prefix" yaml:"prefix,omitempty"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl,omitempty"`

	// EncryptionKey is a base64 AES-256 key. Empty disables encryption.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key,omitempty"`

	// Redact masks secret-looking params before they are stored.
	Redact bool `mapstructure:"redact" yaml:"redact"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// MetricsConfig toggles Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Network:  "devnet",
		Store: StoreConfig{
			Kind:   StoreFile,
			Dir:    ".playground/playgrounds",
			Format: "json",
			Prefix: "playground:",
		},
		HTTP:    HTTPConfig{Port: 8080},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads path (or DefaultFile when path is empty and the file exists)
// over the defaults, then applies PLAYGROUND_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	raw := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := decode(raw, &cfg, true); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := decode(fromEnv(os.Environ()), &cfg, false); err != nil {
		return cfg, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects unusable settings.
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Kind {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store kind %q", c.Store.Kind))
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", s)
	}
	return l, nil
}

func decode(input map[string]any, cfg *Config, strict bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			intToDurationSeconds,
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// intToDurationSeconds reads bare numbers as seconds.
func intToDurationSeconds(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return data, nil
}

// fromEnv turns PLAYGROUND_STORE__REDIS_ADDR=x into {"store": {"redis_addr": "x"}}.
// A double underscore separates sections.
func fromEnv(environ []string) map[string]any {
	out := map[string]any{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, "PLAYGROUND_") {
			continue
		}
		path := strings.Split(strings.ToLower(strings.TrimPrefix(key, "PLAYGROUND_")), "__")
		node := out
		for _, p := range path[:len(path)-1] {
			next, ok := node[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				node[p] = next
			}
			node = next
		}
		node[path[len(path)-1]] = value
	}
	return out
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
