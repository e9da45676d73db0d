// Package main - точка входа фонового процесса (Worker) сервиса эскалации.
//
// Worker опрашивает кейсы Level C по расписанию и публикует напоминания:
// - о кейсах pending_reentry, у которых наступила дата возвращения;
// - о плановых встречах мониторинга на сегодня.
// Напоминания доставляются через очередь Redis или пишутся в журнал.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/behavior-hub/behavior-hub/config"
	"github.com/behavior-hub/behavior-hub/internal/application/eventhandler"
	"github.com/behavior-hub/behavior-hub/internal/application/query"
	"github.com/behavior-hub/behavior-hub/internal/domain/levelc"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/messaging"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/metrics"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/persistence/memory"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/persistence/postgres"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/persistence/redis"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/scheduler"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/scheduler/jobs"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/service"
	"github.com/behavior-hub/behavior-hub/pkg/retry"
	"github.com/behavior-hub/behavior-hub/pkg/timeutil"
)

// reminderCooldown - повторное напоминание по тому же кейсу и дате не раньше.
const reminderCooldown = 12 * time.Hour

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

type options struct {
	once        bool
	job         string
	metricsAddr string
}

func main() {
	var opts options
	pflag.BoolVar(&opts.once, "once", false, "run every enabled job once and exit")
	pflag.StringVar(&opts.job, "job", "", "run a single job by name and exit (pending_reentries, due_reviews)")
	pflag.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9091")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting behavior hub worker",
		"env", string(cfg.App.Environment),
		"timezone", cfg.App.Timezone,
	)

	if !cfg.Scheduler.Enabled && !opts.once && opts.job == "" {
		log.Info("scheduler disabled (SCHEDULER_ENABLED=false), exiting")
		return nil
	}

	m := metrics.New()
	clock := timeutil.NewSystemClock(cfg.App.Location)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ КЕЙСОВ
	// ─────────────────────────────────────────────────────────────────────────
	var cases levelc.Repository
	if cfg.UsesMemoryStore() {
		log.Warn("DATABASE_URL not set, worker polls an empty in-memory store")
		cases = memory.NewStore().Cases()
	} else {
		conn, err := postgres.Connect(ctx, cfg.Database.URL, postgres.DefaultPoolConfig(),
			retry.StartupRetrier(nil, logRetry(log, "postgres")))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer conn.Close()
		cases = postgres.NewCaseRepository(conn)
		log.Info("database connection established")
	}
	caseQueries := query.NewCaseQueries(cases, clock)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	if !cfg.Redis.Disabled {
		r := retry.StartupRetrier(nil, logRetry(log, "redis")).WithAttempts(3)
		cache, err = redis.NewCache(ctx, redisConfig(cfg.Redis), r)
		if err != nil {
			log.Warn("failed to connect to Redis, reminders go to the log", "error", err)
			cache = nil
		} else {
			defer func() { _ = cache.Close() }()
			log.Info("Redis connection established", "addr", cfg.Redis.Addr())
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS И ДОСТАВКА НАПОМИНАНИЙ
	// ─────────────────────────────────────────────────────────────────────────
	// Синхронная шина: запуск задачи завершается после доставки напоминаний.
	local := messaging.DefaultInMemoryEventBusConfig()
	local.AsyncMode = false
	local.Logger = log
	local.Observer = m

	var bus shared.EventBus
	if cache != nil && cfg.Features.IsEnabled(config.FeatureRedisEventBus) {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSubClient(cache.Client(), false),
			LocalBusConfig: local,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis event bus: %w", err)
		}
		defer func() { _ = redisBus.Close() }()
		bus = redisBus
	} else {
		localBus := messaging.NewInMemoryEventBus(local)
		defer func() { _ = localBus.Close() }()
		bus = localBus
	}

	var sink eventhandler.ReminderSink = eventhandler.LogSink{Logger: log}
	if cache != nil {
		sink = service.NewReminderOutbox(cache.Client(), "")
		log.Info("reminders queued on redis", "queue", service.DefaultReminderQueue)
	}

	if err := eventhandler.Register(bus,
		eventhandler.NewMetricsHandler(m),
		eventhandler.NewAuditHandler(log),
		eventhandler.NewOnReminderDueHandler(sink, log, reminderCooldown),
	); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:            log,
		Timezone:          cfg.App.Location,
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		JobTimeout:        cfg.Scheduler.JobTimeout,
	})
	sched.OnJobComplete(func(r scheduler.JobResult) {
		m.JobFinished(r.JobName, r.Duration, r.Error)
	})

	if err := registerJobs(sched, cfg, caseQueries, bus, clock, log); err != nil {
		return err
	}

	if !cfg.Features.IsEnabled(config.FeatureWorkerReminders) {
		log.Warn("reminder jobs disabled by feature flag", "flag", config.FeatureWorkerReminders)
		for _, name := range []string{jobs.PendingReentriesJobName, jobs.DueReviewsJobName} {
			_ = sched.SetEnabled(name, false)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. РАЗОВЫЙ ЗАПУСК
	// ─────────────────────────────────────────────────────────────────────────
	if opts.job != "" {
		result, err := sched.RunNow(ctx, opts.job)
		if err != nil {
			return fmt.Errorf("failed to run job %s: %w", opts.job, err)
		}
		log.Info("job finished", "job", result.JobName, "duration", result.Duration.String(), "success", result.Success)
		return result.Error
	}
	if opts.once {
		return sched.RunAll(ctx)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	if err := sched.Start(gctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	if opts.metricsAddr != "" {
		metricsServer := newMetricsServer(opts.metricsAddr, m)
		g.Go(func() error {
			log.Info("serving metrics", "address", opts.metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("starting graceful shutdown", "timeout", cfg.App.ShutdownTimeout.String())
		if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			return err
		}
		return nil
	})

	log.Info("behavior hub worker is running", "jobs", len(sched.ListJobs()))

	if err := g.Wait(); err != nil {
		log.Error("shutdown completed with errors", "error", err)
		return err
	}
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// registerJobs регистрирует задачи напоминаний с расписаниями из конфигурации.
func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	cases jobs.CaseFinder,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	log *slog.Logger,
) error {
	entries := []struct {
		job  scheduler.Job
		spec string
	}{
		{jobs.NewPendingReentriesJob(cases, publisher, clock, log), cfg.Scheduler.PendingReentriesSpec},
		{jobs.NewDueReviewsJob(cases, publisher, clock, log), cfg.Scheduler.DueReviewsSpec},
	}

	for _, e := range entries {
		schedule, err := scheduler.ParseCron(e.spec, cfg.App.Location)
		if err != nil {
			return fmt.Errorf("job %s: %w", e.job.Name(), err)
		}
		if err := sched.Register(e.job, schedule); err != nil {
			return fmt.Errorf("failed to register job %s: %w", e.job.Name(), err)
		}
	}
	return nil
}

func newMetricsServer(addr string, m *metrics.Metrics) *http.Server {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// logRetry reports a failed connection attempt before the next one.
func logRetry(log *slog.Logger, dependency string) retry.OnRetryFunc {
	return func(attempt int, err error, delay time.Duration) {
		log.Warn("dependency not ready, retrying",
			"dependency", dependency,
			"attempt", attempt,
			"retry_in", delay,
			"error", err,
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

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
