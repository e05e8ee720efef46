// Package app wires the configured storage backend, slot locker and event log
// for the binaries.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-booking/internal/appointment"
	"github.com/hackgods/hospital-booking/internal/config"
	"github.com/hackgods/hospital-booking/internal/db"
	redisclient "github.com/hackgods/hospital-booking/internal/redis"
	"github.com/hackgods/hospital-booking/internal/storage"
)

// NewLogger builds the root logger: console output in dev, JSON otherwise.
func NewLogger(cfg config.Config, service string) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return logger.Level(level).With().Str("service", service).Logger()
}

// BootstrapLogger is used before configuration is available.
func BootstrapLogger(service string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", service).Logger()
}

// Runtime holds the process-wide collaborators of the service.
type Runtime struct {
	Backend storage.Backend
	Locker  redisclient.Locker
	Events  appointment.EventRepository

	pgPool *pgxpool.Pool
	rdb    *redis.Client
	logger zerolog.Logger
}

// Open connects whatever cfg asks for. On error everything opened so far is closed.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Runtime, error) {
	rt := &Runtime{logger: logger}

	if cfg.StoreBackend == config.BackendPostgres {
		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("postgres connection: %w", err)
		}
		rt.pgPool = pool
		logger.Info().Msg("connected to Postgres")

		if err := db.EnsureSchema(ctx, pool); err != nil {
			rt.Close()
			return nil, err
		}
	}

	if cfg.NeedsRedis() {
		rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("redis connection: %w", err)
		}
		rt.rdb = rdb
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		rt.Backend = storage.NewPgBackend(rt.pgPool)
	case config.BackendRedis:
		rt.Backend = storage.NewRedisBackend(rt.rdb)
	case config.BackendMemory:
		rt.Backend = storage.NewMemoryBackend()
	default:
		fb, err := storage.NewFileBackend(cfg.StoreDir)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Backend = fb
	}

	if cfg.LockBackend == config.LockRedis {
		rt.Locker = redisclient.NewRedisSlotLocker(rt.rdb, cfg.LockTTL)
	} else {
		rt.Locker = redisclient.NewLocalSlotLocker(cfg.LockTTL)
	}

	if rt.pgPool != nil {
		rt.Events = appointment.NewPgEventRepository(rt.pgPool)
	} else {
		rt.Events = appointment.NewLogEventRepository(logger)
	}

	logger.Info().
		Str("store_backend", cfg.StoreBackend).
		Str("lock_backend", cfg.LockBackend).
		Msg("runtime ready")
	return rt, nil
}

// Pingers lists the dependencies readiness should check.
func (rt *Runtime) Pingers() map[string]func(context.Context) error {
	deps := map[string]func(context.Context) error{
		"store": rt.Backend.Ping,
	}
	if rt.rdb != nil {
		rdb := rt.rdb
		deps["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return deps
}

// Close releases the connections. Backends borrow the pool and client, so
// closing those is enough.
func (rt *Runtime) Close() {
	if rt.rdb != nil {
		if err := rt.rdb.Close(); err != nil {
			rt.logger.Error().Err(err).Msg("error closing redis")
		}
	}
	if rt.pgPool != nil {
		rt.pgPool.Close()
	}
}
