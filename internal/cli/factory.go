package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/playground"
	"github.com/aretw0/playground/internal/config"
	"github.com/aretw0/playground/internal/logging"
	"github.com/aretw0/playground/pkg/adapters/file"
	"github.com/aretw0/playground/pkg/adapters/memory"
	"github.com/aretw0/playground/pkg/adapters/redis"
	"github.com/aretw0/playground/pkg/codec"
	"github.com/aretw0/playground/pkg/observability"
	"github.com/aretw0/playground/pkg/persistence/middleware"
	"github.com/aretw0/playground/pkg/ports"
	"github.com/aretw0/playground/pkg/registry"
	"github.com/aretw0/playground/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Stack is everything a long-running command needs, built from the configuration.
type Stack struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *registry.Registry
	Store    ports.PlaygroundStore
	Sessions *session.Manager

	// Gatherer is nil when metrics are disabled.
	Gatherer prometheus.Gatherer

	closers []io.Closer
}

// Close releases store connections and stops every open playground.
func (s *Stack) Close() error {
	err := s.Sessions.CloseAll()
	for _, c := range s.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// NewLogger creates the application logger for cfg.
// Debug forces the debug level.
func NewLogger(cfg config.Config, debug bool) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if debug {
		level = slog.LevelDebug
	}
	return logging.New(level)
}

// network returns the RPC URL override when set, the cluster name otherwise.
func network(cfg config.Config) string {
	if cfg.RPCURL != "" {
		return cfg.RPCURL
	}
	return cfg.Network
}

// NewStack wires store, sessions, registry and metrics from cfg.
func NewStack(cfg config.Config, logger *slog.Logger) (*Stack, error) {
	s := &Stack{Config: cfg, Logger: logger}

	reg, err := playground.DefaultRegistry(network(cfg), logger)
	if err != nil {
		return nil, err
	}
	s.Registry = reg

	var locker ports.DistributedLocker
	switch cfg.Store.Kind {
	case config.StoreMemory:
		s.Store = memory.NewStore()
	case config.StoreFile:
		format, err := codec.ParseFormat(cfg.Store.Format)
		if err != nil {
			return nil, err
		}
		s.Store = file.New(cfg.Store.Dir, file.WithFormat(format))
	case config.StoreRedis:
		rs := redis.New(cfg.Store.RedisAddr, "", 0,
			redis.WithPrefix(cfg.Store.Prefix),
			redis.WithTTL(cfg.Store.TTL),
		)
		s.closers = append(s.closers, rs)
		s.Store = rs
		locker = redis.NewLocker(rs.Client(), cfg.Store.Prefix)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}

	var mws []middleware.Middleware
	if cfg.Store.Redact {
		mws = append(mws, middleware.NewRedactMiddleware(middleware.DefaultSecretPatterns))
	}
	if cfg.Store.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(cfg.Store.EncryptionKey)
		if err != nil || len(key) != 32 {
			return nil, fmt.Errorf("store.encryption_key must be 32 bytes, base64 encoded")
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	s.Store = middleware.Chain(s.Store, mws...)

	engineOpts := []playground.Option{playground.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		engineOpts = append(engineOpts, playground.WithMetrics(observability.NewMetrics(promReg)))
		s.Gatherer = promReg
	}
	if cfg.RPCURL != "" {
		// Playgrounds keep their own network, the override wins for all of them.
		engineOpts = append(engineOpts, playground.WithRegistry(reg))
	}

	sessOpts := []session.Option{
		session.WithLogger(logger),
		session.WithDefaultNetwork(cfg.Network),
		session.WithEngineOptions(engineOpts...),
	}
	if locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(locker))
	}
	s.Sessions = session.NewManager(s.Store, sessOpts...)
	return s, nil
}
