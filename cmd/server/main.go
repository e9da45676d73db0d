// Package main - точка входа HTTP API сервиса эскалации поведенческих инцидентов.
//
// Сервис принимает оценки инцидентов и рекомендует уровень вмешательства
// (A, B или C), ведёт журнал Level A и жизненный цикл кейсов Level C.
// Фоновые напоминания отправляет отдельный процесс cmd/worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/behavior-hub/behavior-hub/config"
	"github.com/behavior-hub/behavior-hub/internal/application/command"
	"github.com/behavior-hub/behavior-hub/internal/application/eventhandler"
	"github.com/behavior-hub/behavior-hub/internal/application/query"
	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/escalation"
	"github.com/behavior-hub/behavior-hub/internal/domain/levela"
	"github.com/behavior-hub/behavior-hub/internal/domain/levelb"
	"github.com/behavior-hub/behavior-hub/internal/domain/levelc"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/messaging"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/metrics"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/persistence/memory"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/persistence/postgres"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/persistence/redis"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/persistence/seed"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/service"
	httpserver "github.com/behavior-hub/behavior-hub/internal/interface/http"
	"github.com/behavior-hub/behavior-hub/internal/interface/http/handlers"
	"github.com/behavior-hub/behavior-hub/pkg/circuitbreaker"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
	"github.com/behavior-hub/behavior-hub/pkg/retry"
	"github.com/behavior-hub/behavior-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	migrateOnly := pflag.Bool("migrate", false, "apply database migrations and exit")
	seedFile := pflag.String("seed", "", "catalog YAML to upsert at startup (overrides CATALOG_SEED_FILE)")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *migrateOnly, *seedFile); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, migrateOnly bool, seedFile string) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if seedFile != "" {
		cfg.Catalog.SeedFile = seedFile
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	}).With(logger.String("app", cfg.App.Name), logger.String("version", cfg.App.Version))
	slogger := setupSlog(cfg)

	log.Info("starting behavior hub API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("timezone", cfg.App.Timezone),
		logger.Bool("memory_store", cfg.UsesMemoryStore()),
	)

	m := metrics.New()
	clock := timeutil.NewSystemClock(cfg.App.Location)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	st, err := openStores(ctx, cfg, log, migrateOnly || cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer st.close()

	if migrateOnly {
		if st.conn == nil {
			return errors.New("--migrate requires DATABASE_URL")
		}
		log.Info("migrations applied, exiting")
		return nil
	}

	if _, err := seed.SeedCatalog(ctx, st.seeder, cfg.Catalog.SeedFile, log); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	cache := openRedis(ctx, cfg, log)
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	var cat catalog.Catalog = st.catalog
	if cache != nil && cfg.Features.IsEnabled(config.FeatureCatalogRedisCache) {
		catalogCache := redis.NewCatalogCache(st.catalog, cache, cfg.Redis.CatalogTTL, log).
			WithBreaker(circuitbreaker.CacheBreaker(m.BreakerStateChanged))
		// Seeded rows may have changed the active list.
		if err := catalogCache.Invalidate(ctx); err != nil {
			log.Warn("failed to invalidate catalog cache", logger.Err(err))
		}
		cat = catalogCache
		log.Info("catalog served through redis cache", logger.Duration("ttl", cfg.Redis.CatalogTTL))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	bus, closeBus, err := newEventBus(cfg, cache, m, slogger)
	if err != nil {
		return err
	}
	defer closeBus()

	if err := eventhandler.Register(bus,
		eventhandler.NewMetricsHandler(m),
		eventhandler.NewAuditHandler(slogger),
		nil,
	); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	guard := service.NewGuardedLevelBStore(st.levelB, log, m.BreakerStateChanged,
		circuitbreaker.WithFailureThreshold(cfg.LevelB.CircuitBreakerThreshold),
		circuitbreaker.WithTimeout(cfg.LevelB.CircuitBreakerTimeout),
	)

	policy := escalation.Policy{
		PatternWindowDays:       cfg.Escalation.PatternWindowDays,
		PatternThreshold:        cfg.Escalation.PatternThreshold,
		IgnoredPromptsThreshold: cfg.Escalation.IgnoredPromptsThreshold,
		PriorLevelBThreshold:    cfg.Escalation.PriorLevelBThreshold,
	}
	detector := query.NewPatternDetector(st.levelA, clock, policy)
	counter := query.NewLevelBCounter(guard)

	deps := command.Deps{
		Clock:     clock,
		Publisher: bus,
		Logger:    log,
		NewID:     command.UUIDGenerator(),
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	checker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	checker.AddCheck("level_b_store", handlers.NewBreakerCheck("level_b_store", guard.Breaker()))
	if st.conn != nil {
		checker.AddCheck("postgres", handlers.NewPingCheck(st.conn))
	}

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.RequestTimeout = cfg.HTTP.RequestTimeout
	httpConfig.MaxBodyBytes = cfg.HTTP.MaxRequestBytes
	httpConfig.MetricsPath = ""
	if cfg.Observability.MetricsEnabled {
		httpConfig.MetricsPath = cfg.Observability.MetricsPath
	}

	srv := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		Decisions:     query.NewDecideEscalationHandler(cat, detector, counter, bus, log),
		Domains:       query.NewDomainQueries(cat),
		LevelA:        query.NewLevelAQueries(st.levelA),
		Cases:         query.NewCaseQueries(st.cases, clock),
		LogLevelA:     command.NewLogLevelAHandler(st.levelA, cat, detector, deps),
		SetOutcome:    command.NewSetLevelAOutcomeHandler(st.levelA, deps),
		CreateCase:    command.NewCreateCaseHandler(st.cases, guard, cat, st.tx, deps),
		Lifecycle:     command.NewCaseLifecycleHandler(st.cases, cfg.Features, deps, command.CaseLifecycleConfig{ReviewStrideDays: cfg.Monitoring.ReviewStrideDays}),
		Logger:        log,
		Metrics:       m,
		HealthChecker: checker,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop HTTP server: %w", err)
		}
		return nil
	})

	log.Info("behavior hub API is running", logger.String("address", srv.Address()))

	if err := g.Wait(); err != nil {
		log.Error("shutdown completed with errors", logger.Err(err))
		return err
	}
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STORES
// ══════════════════════════════════════════════════════════════════════════════

// stores bundles the repositories behind one backend.
type stores struct {
	levelA  levela.Repository
	cases   levelc.Repository
	levelB  levelb.Store
	catalog catalog.Catalog
	seeder  catalog.Seeder
	tx      shared.Transactor

	conn *postgres.Connection
}

func (s *stores) close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

// openStores connects to PostgreSQL, or falls back to the in-memory store
// when no database is configured outside production.
func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger, migrate bool) (*stores, error) {
	if cfg.UsesMemoryStore() {
		log.Warn("DATABASE_URL not set, using in-memory store; data is lost on restart")
		mem := memory.NewStore()
		return &stores{
			levelA:  mem.LevelA(),
			cases:   mem.Cases(),
			levelB:  mem.LevelB(),
			catalog: mem.Catalog(),
			seeder:  mem.Catalog(),
			tx:      mem,
		}, nil
	}

	log.Info("connecting to database")
	conn, err := postgres.Connect(ctx, cfg.Database.URL, postgres.PoolConfig{
		MaxConns:          int32(cfg.Database.MaxOpenConns),
		MinConns:          int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime:   cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime:   cfg.Database.ConnMaxIdleTime,
		HealthCheckPeriod: time.Minute,
	}, retry.StartupRetrier(nil, logRetry(log, "postgres")))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if migrate {
		log.Info("running database migrations")
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	catalogRepo := postgres.NewCatalogRepository(conn)
	return &stores{
		levelA:  postgres.NewLevelARepository(conn),
		cases:   postgres.NewCaseRepository(conn),
		levelB:  postgres.NewLevelBStore(conn),
		catalog: catalogRepo,
		seeder:  catalogRepo,
		tx:      conn,
		conn:    conn,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS & EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// openRedis connects when a Redis-backed feature is enabled. A failed
// connection disables those features instead of failing startup.
func openRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Cache {
	if cfg.Redis.Disabled {
		return nil
	}
	if !cfg.Features.IsEnabled(config.FeatureCatalogRedisCache) && !cfg.Features.IsEnabled(config.FeatureRedisEventBus) {
		return nil
	}

	// Redis is optional, so startup gives up sooner than for the database.
	r := retry.StartupRetrier(nil, logRetry(log, "redis")).WithAttempts(3)
	cache, err := redis.NewCache(ctx, redisConfig(cfg.Redis), r)
	if err != nil {
		log.Warn("failed to connect to Redis, redis features disabled", logger.Err(err))
		return nil
	}
	log.Info("Redis connection established", logger.String("addr", cfg.Redis.Addr()))
	return cache
}

// logRetry reports a failed connection attempt before the next one.
func logRetry(log *logger.Logger, dependency string) retry.OnRetryFunc {
	return func(attempt int, err error, delay time.Duration) {
		log.Warn("dependency not ready, retrying",
			logger.String("dependency", dependency),
			logger.Int("attempt", attempt),
			logger.Duration("retry_in", delay),
			logger.Err(err),
		)
	}
}

func redisConfig(rc config.RedisConfig) redis.Config {
	c := redis.DefaultConfig()
	c.URL = rc.URL
	c.Host = rc.Host
	c.Port = rc.Port
	c.Password = rc.Password
	c.DB = rc.DB
	c.PoolSize = rc.PoolSize
	c.MinIdleConns = rc.MinIdleConns
	c.DialTimeout = rc.DialTimeout
	c.ReadTimeout = rc.ReadTimeout
	c.WriteTimeout = rc.WriteTimeout
	return c
}

// newEventBus returns the Redis fan-out bus when enabled and connected,
// otherwise the in-process bus.
func newEventBus(cfg *config.Config, cache *redis.Cache, m *metrics.Metrics, slogger *slog.Logger) (shared.EventBus, func(), error) {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.Logger = slogger
	local.Observer = m

	if cache != nil && cfg.Features.IsEnabled(config.FeatureRedisEventBus) {
		bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSubClient(cache.Client(), false),
			LocalBusConfig: local,
			Logger:         slogger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis event bus: %w", err)
		}
		return bus, func() { _ = bus.Close() }, nil
	}

	bus := messaging.NewInMemoryEventBus(local)
	return bus, func() { _ = bus.Close() }, nil
}

// setupSlog configures the slog default used by the event bus and handlers.
func setupSlog(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}
