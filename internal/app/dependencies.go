// Package app wires shared infrastructure for the API and worker binaries.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-billing/internal/config"
	"github.com/noah-isme/backend-billing/internal/obs"
)

// Dependencies enumerates core services shared across modules to make
// wiring explicit.
type Dependencies struct {
	Context      context.Context
	DB           *pgxpool.Pool
	Redis        *redis.Client
	Validator    *validator.Validate
	Limiter      *limiter.Limiter
	LimiterStore limiter.Store
	TaskClient   *asynq.Client
	TaskServer   *asynq.Server
}

// NewDatabasePool opens a pgx pool with query tracing and an application
// name, then verifies connectivity.
func NewDatabasePool(ctx context.Context, databaseURL, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("app: parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("app: connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("app: ping database: %w", err)
	}
	return pool, nil
}

// NewRedisClient connects to redis with otel tracing and metrics instrumented.
func NewRedisClient(ctx context.Context, redisURL string, withMetrics bool) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("app: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("app: instrument redis tracing: %w", err)
	}
	if withMetrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			return nil, fmt.Errorf("app: instrument redis metrics: %w", err)
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("app: ping redis: %w", err)
	}
	return client, nil
}

// NewLimiterStore wires a rate limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "limiter:global",
	})
}

// NewGlobalLimiter builds the instance-wide IP limiter from config. It sits
// in front of the per-org sliding window limiter as a blunt flood guard.
func NewGlobalLimiter(store limiter.Store, cfg *config.Config) *limiter.Limiter {
	rate := limiter.Rate{
		Period: cfg.RateLimitWindow,
		Limit:  int64(cfg.RateLimitMax) * 10,
	}
	return limiter.New(store, rate)
}

// GlobalLimiterMiddleware adapts the ulule limiter for the chi stack.
func GlobalLimiterMiddleware(l *limiter.Limiter) func(next http.Handler) http.Handler {
	mw := limiterstdlib.NewMiddleware(l)
	return mw.Handler
}

// NewTaskClient builds an asynq client from the redis URL.
func NewTaskClient(redisURL string) (*asynq.Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("app: parse redis url for tasks: %w", err)
	}
	return asynq.NewClient(opt), nil
}

// NewTaskServer builds the asynq server for the worker binary.
func NewTaskServer(redisURL string, concurrency int, queues map[string]int) (*asynq.Server, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("app: parse redis url for tasks: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}), nil
}

// Tracer returns the default OpenTelemetry tracer for instrumentation hooks.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Meter returns the default OpenTelemetry meter for instrumentation hooks.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// RunMigrations applies pending schema migrations at startup. An up-to-date
// schema is not an error.
func RunMigrations(migrationsPath, databaseURL string) error {
	source := migrationsPath
	if !strings.Contains(source, "://") {
		source = "file://" + source
	}
	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return fmt.Errorf("app: open migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("app: apply migrations: %w", err)
	}
	return nil
}
