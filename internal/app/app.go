// Package app builds the batch service and its backing infrastructure from
// configuration. Both the server binary and the CLI's serve command use it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"istr/internal/batch"
	"istr/internal/batch/handler"
	batchmetrics "istr/internal/batch/metrics"
	"istr/internal/batch/store/memory"
	"istr/internal/batch/store/postgres"
	"istr/internal/batch/store/sqlite"
	"istr/internal/columnar"
	jwttoken "istr/internal/jwt_token"
	"istr/internal/platform/config"
	"istr/internal/platform/httpserver"
	"istr/internal/platform/metrics"
	"istr/internal/platform/redis"
	"istr/internal/projection"
	rlmetrics "istr/internal/ratelimit/metrics"
	ratelimit "istr/internal/ratelimit/middleware"
	"istr/internal/ratelimit/store/bucket"
	httptransport "istr/internal/transport/http"
	"istr/pkg/platform/audit/publisher"
	"istr/pkg/platform/audit/sink/kafka"
	auditmemory "istr/pkg/platform/audit/store/memory"
)

const (
	// TokenIssuer and TokenAudience bind API tokens to this service.
	TokenIssuer   = "istr"
	TokenAudience = "istr-api"

	auditBuffer = 1024
)

// App owns every long lived resource of a running service.
type App struct {
	Service  *batch.Service
	Registry *prometheus.Registry

	handler http.Handler
	logger  *slog.Logger
	closers []func() error
}

// New wires the service described by cfg. On error, everything opened so far
// is closed again.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger, Registry: prometheus.NewRegistry()}
	if err := a.wire(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, cfg config.Config) error {
	logger := a.logger

	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	health := map[string]httptransport.HealthCheck{}

	ledger, err := a.openLedger(ctx, cfg.Ledger, health)
	if err != nil {
		return err
	}

	auditor, err := a.openAudit(ctx, cfg.Kafka, health)
	if err != nil {
		return err
	}

	engine := columnar.NewEngine(
		columnar.WithPartitionSize(cfg.Engine.PartitionSize),
		columnar.WithMaxWorkers(cfg.Engine.MaxWorkers),
	)
	a.Service, err = batch.New(projection.Default(), engine, ledger,
		batch.WithLogger(logger),
		batch.WithMetrics(batchmetrics.New(a.Registry)),
		batch.WithAuditPublisher(auditor),
		batch.WithMaxRows(cfg.Engine.MaxBatchRows),
	)
	if err != nil {
		return err
	}

	limiter, err := a.rateLimiter(ctx, cfg, health)
	if err != nil {
		return err
	}

	deps := httptransport.Dependencies{
		Logger:    logger,
		Batch:     handler.New(a.Service, logger, metrics.New(a.Registry)),
		RateLimit: limiter,
		Gatherer:  a.Registry,
		Health:    health,
	}
	if cfg.Server.RequireAuth {
		deps.Auth = jwttoken.NewJWTService(cfg.Server.JWTSigningKey, TokenIssuer, TokenAudience).Validator()
	}
	a.handler = httptransport.NewRouter(deps)
	return nil
}

// Handler is the HTTP entry point.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func (a *App) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	return httpserver.Run(ctx, httpserver.New(addr, a.handler, a.logger), a.logger, shutdownTimeout)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openLedger(ctx context.Context, cfg config.LedgerConfig, health map[string]httptransport.HealthCheck) (batch.Ledger, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		store := postgres.New(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		health["ledger"] = db.PingContext
		a.logger.InfoContext(ctx, "run ledger ready", "driver", "postgres")
		return store, nil
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.logger.InfoContext(ctx, "run ledger ready", "driver", "sqlite", "dsn", cfg.DSN)
		return store, nil
	default:
		return memory.New(0), nil
	}
}

func (a *App) openAudit(ctx context.Context, cfg config.KafkaConfig, health map[string]httptransport.HealthCheck) (*publisher.Publisher, error) {
	opts := []publisher.Option{
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithLogger(a.logger),
	}
	var sink *kafka.Sink
	if len(cfg.Brokers) > 0 {
		var err error
		sink, err = kafka.New(kafka.Config{
			Brokers:           cfg.Brokers,
			Topic:             cfg.Topic,
			Partitions:        cfg.Partitions,
			ReplicationFactor: cfg.ReplicationFactor,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { sink.Close(); return nil })
		if err := sink.EnsureTopic(ctx, cfg.Partitions, cfg.ReplicationFactor); err != nil {
			return nil, fmt.Errorf("ensure audit topic: %w", err)
		}
		health["kafka"] = sink.Health
		opts = append(opts, publisher.WithSink(sink))
	}

	p := publisher.NewPublisher(auditmemory.NewInMemoryStore(auditmemory.DefaultCapacity), opts...)
	// Registered after the sink so the queue drains before the client closes.
	a.closers = append(a.closers, func() error { p.Close(); return nil })
	return p, nil
}

func (a *App) rateLimiter(ctx context.Context, cfg config.Config, health map[string]httptransport.HealthCheck) (*ratelimit.Middleware, error) {
	opts := []ratelimit.Option{
		ratelimit.WithDisabled(!cfg.RateLimit.Enabled),
		ratelimit.WithMetrics(rlmetrics.New(a.Registry)),
	}
	var primary ratelimit.BucketStore = bucket.New()
	if cfg.RateLimit.Enabled && cfg.Redis.URL != "" {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		health["redis"] = client.Health
		primary = bucket.NewRedis(client.Client)
		opts = append(opts, ratelimit.WithFallback(bucket.New()))
	}
	return ratelimit.New(primary, cfg.RateLimit.Requests, cfg.RateLimit.Window, a.logger, opts...), nil
}
