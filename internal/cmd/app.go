package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"eam/internal/accounts/lockout"
	"eam/internal/accounts/service"
	accountstore "eam/internal/accounts/store"
	"eam/internal/accounts/token"
	"eam/internal/gitlab"
	"eam/internal/gitlabsync/lock"
	syncmodels "eam/internal/gitlabsync/models"
	syncservice "eam/internal/gitlabsync/service"
	syncstore "eam/internal/gitlabsync/store"
	"eam/internal/history"
	"eam/internal/kpi"
	"eam/internal/mirror"
	"eam/internal/platform/config"
	"eam/internal/platform/kafka"
	"eam/internal/platform/metrics"
	"eam/internal/platform/middleware"
	"eam/internal/platform/postgres"
	"eam/internal/platform/redis"
	phandler "eam/internal/portfolio/handler"
	pservice "eam/internal/portfolio/service"
	"eam/internal/scrum"
	"eam/pkg/platform/tx"
)

const outboxSize = 256

// App holds every wired component of a running eam process. Without a
// DATABASE_URL all stores are in memory; Redis and Kafka stay optional.
type App struct {
	Config   config.Server
	Logger   *slog.Logger
	Proxies  middleware.TrustedProxies
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	DB       *sql.DB
	Redis    *redis.Client
	Producer *kafka.Producer
	Outbox   chan history.Entry

	History   *history.Recorder
	Portfolio *pservice.Portfolio
	Views     *phandler.Views
	Mirror    *mirror.Mirror
	Sync      *syncservice.Service
	KPI       *kpi.Service
	Scrum     *scrum.Service
	Accounts  *service.Service
	Tokens    *token.JWTService
}

// NewApp connects the configured backends and wires the services.
// progress, when set, receives every saved sync job; the CLI uses it.
func NewApp(ctx context.Context, cfg config.Server, logger *slog.Logger, progress func(*syncmodels.Job)) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	a := &App{
		Config:   cfg,
		Proxies:  proxies,
		Logger:   logger,
		Registry: reg,
		Metrics:  metrics.New(reg),
	}
	if err := a.connect(ctx); err != nil {
		a.Close(context.WithoutCancel(ctx))
		return nil, err
	}

	views, err := phandler.NewViews(cfg.TemplatesDir, logger)
	if err != nil {
		a.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	a.Views = views

	a.wireHistory()
	a.wirePortfolio()
	if err := a.wireSync(progress); err != nil {
		a.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	a.wireReports()
	a.wireAccounts()
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	if a.Config.DatabaseURL != "" {
		db, err := postgres.Open(ctx, a.Config.DatabaseURL)
		if err != nil {
			return err
		}
		a.DB = db
	} else {
		a.Logger.WarnContext(ctx, "DATABASE_URL not set; using in-memory stores")
	}

	rc, err := redis.New(ctx, a.Config.Redis)
	if err != nil {
		return err
	}
	a.Redis = rc

	producer, err := kafka.NewProducer(ctx, a.Config.Kafka, a.Logger)
	if err != nil {
		return err
	}
	if producer != nil {
		if err := producer.EnsureTopic(ctx, a.Config.Kafka.Partitions, a.Config.Kafka.Replication); err != nil {
			_ = producer.Close(ctx)
			return err
		}
		a.Producer = producer
	}
	return nil
}

func (a *App) wireHistory() {
	var st history.Store = history.NewInMemoryStore()
	if a.DB != nil {
		st = history.NewPostgresStore(a.DB)
	}
	opts := []history.Option{history.WithLogger(a.Logger), history.WithMetrics(a.Metrics)}
	if a.Producer != nil {
		a.Outbox = make(chan history.Entry, outboxSize)
		opts = append(opts, history.WithOutbox(a.Outbox))
	}
	a.History = history.NewRecorder(st, opts...)
}

func (a *App) wirePortfolio() {
	opts := []pservice.Option{
		pservice.WithLogger(a.Logger),
		pservice.WithMetrics(a.Metrics),
		pservice.WithHistory(a.History),
	}
	stores := pservice.InMemoryStores()
	a.Mirror = mirror.NewInMemoryMirror()
	if a.DB != nil {
		stores = pservice.PostgresStores(a.DB)
		a.Mirror = mirror.NewPostgresMirror(a.DB)
		opts = append(opts, pservice.WithTxRunner(tx.NewSQLRunner(a.DB)))
	}
	a.Portfolio = pservice.NewPortfolio(stores, opts...)
}

func (a *App) wireSync(progress func(*syncmodels.Job)) error {
	var jobs syncservice.JobStore = syncstore.NewInMemory()
	if a.DB != nil {
		jobs = syncstore.NewPostgres(a.DB)
	}
	var locker lock.Locker = lock.NewLocal()
	if a.Redis != nil {
		locker = lock.NewRedis(a.Redis.Client)
	}

	opts := []syncservice.Option{
		syncservice.WithLogger(a.Logger),
		syncservice.WithMetrics(a.Metrics),
	}
	if progress != nil {
		opts = append(opts, syncservice.WithProgress(progress))
	}

	gl := a.Config.GitLab
	var runner *syncservice.Runner
	if gl.Enabled() {
		client, err := gitlab.NewClient(gl.BaseURL, gl.Token,
			gitlab.WithLogger(a.Logger),
			gitlab.WithMetrics(a.Metrics),
			gitlab.WithPerPage(gl.PerPage),
			gitlab.WithRetryConfig(gitlab.RetryConfig{
				MaxRetries:     gl.MaxRetries,
				InitialBackoff: gl.InitialBackoff,
				MaxBackoff:     gl.MaxBackoff,
				Multiplier:     2,
			}),
		)
		if err != nil {
			return err
		}
		runner = syncservice.NewRunner(client, a.Mirror, jobs, syncservice.RunnerConfig{
			CommitsSince: gl.CommitsSince,
			GroupIDs:     gl.GroupIDs,
		}, opts...)
	} else {
		a.Logger.Warn("GITLAB_TOKEN not set; GitLab sync is disabled")
	}
	a.Sync = syncservice.NewService(jobs, runner, locker, gl.LockTTL, opts...)
	return nil
}

func (a *App) wireReports() {
	opts := []kpi.Option{kpi.WithLogger(a.Logger), kpi.WithMetrics(a.Metrics)}
	if a.Redis != nil {
		opts = append(opts, kpi.WithCache(kpi.NewRedisCache(a.Redis.Client), a.Config.KPICacheTTL))
	}
	a.KPI = kpi.NewService(kpi.SourcesFrom(a.Portfolio), a.Mirror, opts...)
	a.Scrum = scrum.NewService(a.Mirror)
}

func (a *App) wireAccounts() {
	var users service.Store = accountstore.NewInMemory()
	if a.DB != nil {
		users = accountstore.NewPostgres(a.DB)
	}
	var failures lockout.Store = lockout.NewInMemory()
	if a.Redis != nil {
		failures = lockout.NewRedis(a.Redis.Client)
	}
	limiter := lockout.New(failures,
		lockout.WithLogger(a.Logger),
		lockout.WithConfig(lockout.Config{
			MaxFailures: a.Config.Login.MaxFailures,
			Window:      a.Config.Login.Window,
		}),
	)

	a.Tokens = token.NewJWTService(a.Config.JWTSigningKey, a.Config.JWTTTL)
	a.Accounts = service.New(users, a.Tokens,
		service.WithLogger(a.Logger),
		service.WithMetrics(a.Metrics),
		service.WithLimiter(limiter),
	)
}

// Health pings the configured backends.
func (a *App) Health(ctx context.Context) error {
	if a.DB != nil {
		if err := a.DB.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close stops sync jobs and releases connections.
func (a *App) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var errs []error
	if a.Sync != nil {
		errs = append(errs, a.Sync.Shutdown(ctx))
	}
	if a.Producer != nil {
		errs = append(errs, a.Producer.Close(ctx))
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.WarnContext(ctx, "shutdown finished with errors", "error", err)
	}
}
