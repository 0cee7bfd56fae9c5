package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"idbridge/internal/audit"
	"idbridge/internal/classify"
	"idbridge/internal/classify/registry"
	"idbridge/internal/health"
	"idbridge/internal/lookup"
	"idbridge/internal/mapping"
	"idbridge/internal/platform/config"
	"idbridge/internal/platform/httpserver"
	"idbridge/internal/platform/logger"
	"idbridge/internal/platform/metrics"
	"idbridge/internal/platform/middleware"
	"idbridge/internal/platform/postgres"
	"idbridge/internal/platform/redis"
	"idbridge/internal/translation"
	translationHandler "idbridge/internal/translation/handler"
	"idbridge/internal/translation/provenance"
)

const (
	serviceName    = "idbridge"
	serviceVersion = "0.3.0"
)

// main wires configuration, stores, services and the HTTP router, then runs
// the server until SIGINT/SIGTERM. Business logic lives in internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	var checks []health.Check

	// Postgres backs both the entity registry and the mapping store when
	// configured; otherwise everything runs in memory.
	pool, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
		checks = append(checks, health.Check{Name: "postgres", Probe: pool.Health})
		log.Info("postgres connected")
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks = append(checks, health.Check{Name: "redis", Probe: redisClient.Health})
		log.Info("redis connected")
	}

	registryStore, mappingStore, err := buildStores(ctx, cfg, pool, redisClient)
	if err != nil {
		return err
	}
	if err := registry.Seed(ctx, registryStore); err != nil {
		return err
	}

	gate, err := provenance.NewHMAC(cfg.ServiceSecret, cfg.RequiredPipeline)
	if err != nil {
		return err
	}

	emitter, closePublisher, err := buildAudit(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	m := metrics.New()
	svc := translation.New(mappingStore, classify.New(registryStore), gate, log,
		translation.WithAudit(emitter),
		translation.WithMetrics(m),
		translation.WithDefaults(cfg.DefaultJurisdiction, *cfg.DefaultTrustLevel),
	)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)

	translationHandler.New(svc, log).Register(router)
	lookup.NewHandler(lookup.New(registryStore, mappingStore), log).Register(router)
	health.NewHandler(serviceName, serviceVersion, checks...).Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting idbridge", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildStores picks the persistence layer: Postgres when configured, memory
// otherwise, with an optional Redis read-through cache on the registry.
func buildStores(ctx context.Context, cfg config.Config, pool *postgres.Pool, redisClient *redis.Client) (classify.RegistryStore, mapping.Store, error) {
	var (
		registryStore classify.RegistryStore
		mappingStore  mapping.Store
	)

	if pool != nil {
		pgRegistry := registry.NewPostgres(pool.Pool)
		if err := pgRegistry.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		pgMappings := mapping.NewPostgres(pool.Pool)
		if err := pgMappings.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		registryStore = pgRegistry
		mappingStore = pgMappings
	} else {
		registryStore = registry.NewMemory()
		mappingStore = mapping.NewInMemoryStore()
	}

	if redisClient != nil {
		registryStore = registry.NewCached(registryStore, redisClient.Client, cfg.Redis.CacheTTL)
	}
	return registryStore, mappingStore, nil
}

// buildAudit wires the Kafka publisher when brokers are configured. The
// returned close function is a no-op when auditing is disabled.
func buildAudit(ctx context.Context, cfg config.Config, log *slog.Logger) (*audit.Emitter, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return audit.NewEmitter(nil, log), func() {}, nil
	}
	publisher, err := audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	if err != nil {
		return nil, nil, err
	}
	log.Info("kafka audit publisher connected", "topic", cfg.Kafka.Topic)
	return audit.NewEmitter(publisher, log), publisher.Close, nil
}
