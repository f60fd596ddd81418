package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devtofunmi/fake-bank/config"
	httpHandler "github.com/devtofunmi/fake-bank/internal/adapter/http/handler"
	"github.com/devtofunmi/fake-bank/internal/adapter/http/middleware"
	"github.com/devtofunmi/fake-bank/internal/adapter/metrics"
	memStorage "github.com/devtofunmi/fake-bank/internal/adapter/storage/memory"
	pgStorage "github.com/devtofunmi/fake-bank/internal/adapter/storage/postgres"
	redisStorage "github.com/devtofunmi/fake-bank/internal/adapter/storage/redis"
	"github.com/devtofunmi/fake-bank/internal/core/ports"
	"github.com/devtofunmi/fake-bank/internal/service"
	"github.com/devtofunmi/fake-bank/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// storage is the set of repositories behind one driver.
type storage struct {
	accounts   ports.AccountRepository
	ledger     ports.LedgerRepository
	users      ports.UserRepository
	jobs       ports.JobRepository
	audit      ports.AuditRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store := memStorage.NewStore(cfg.Ledger.LockTimeout)
		log.Warn().Msg("Using in-memory storage; data is lost on exit")
		return &storage{
			accounts:   memStorage.NewAccountRepo(store),
			ledger:     memStorage.NewLedgerRepo(store),
			users:      memStorage.NewUserRepo(store),
			jobs:       memStorage.NewJobRepo(store),
			audit:      memStorage.NewAuditRepo(store),
			transactor: store,
			health:     store,
			close:      func() {},
		}, nil
	default:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := pgStorage.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrating schema: %w", err)
			}
			log.Info().Msg("Database schema applied")
		}
		transactor := pgStorage.NewTransactor(pool, cfg.Ledger.LockTimeout)
		return &storage{
			accounts:   pgStorage.NewAccountRepo(pool),
			ledger:     pgStorage.NewLedgerRepo(pool),
			users:      pgStorage.NewUserRepo(pool),
			jobs:       pgStorage.NewJobRepo(pool),
			audit:      pgStorage.NewAuditRepo(pool),
			transactor: transactor,
			health:     transactor,
			close:      pool.Close,
		}, nil
	}
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting fake-bank")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, logger.Component(log, "storage"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.close()

	healthCheckers := []ports.HealthChecker{store.health}

	// Redis is optional: without it deposits skip the cache and rate limiting is off.
	var (
		idempotencyCache ports.IdempotencyCache
		rateLimitStore   *redisStorage.RateLimitStore
	)
	if cfg.Redis.Enabled {
		redisLog := logger.Component(log, "redis")
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, redisLog)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		breaker := redisStorage.NewBreakerCache(
			redisStorage.NewIdempotencyCache(rdb, ""),
			redisStorage.DefaultBreakerConfig(),
			redisLog,
		)
		idempotencyCache = breaker
		if cfg.RateLimit.Enabled {
			rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		}
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb, breaker))
	}

	// Prometheus metrics
	var (
		ledgerMetrics  ports.LedgerMetrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector := metrics.NewCollector(cfg.Metrics.Namespace)
		if err := collector.Register(registry); err != nil {
			log.Fatal().Err(err).Msg("Failed to register metrics")
		}
		ledgerMetrics = collector
		metricsHandler = metrics.Handler(registry)
	}

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	walletSvc := service.NewWalletService(
		store.accounts,
		store.ledger,
		store.transactor,
		idempotencyCache,
		ledgerMetrics,
		cfg.Ledger.IdempotencyTTL,
		logger.Component(log, "wallet"),
	)
	authSvc := service.NewAuthService(store.users, store.accounts, store.transactor, hashSvc, tokenSvc, logger.Component(log, "auth"))
	reportingSvc := service.NewReportingService(store.accounts, store.ledger, logger.Component(log, "reporting"))
	auditSvc := service.NewAuditService(store.audit, logger.Component(log, "audit"))

	runCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()

	var jobSvc ports.JobService
	jobsDone := make(chan struct{})
	if cfg.Jobs.Enabled {
		runner := service.NewJobService(store.jobs, walletSvc, ledgerMetrics, service.JobConfig{
			PollInterval: cfg.Jobs.PollInterval,
			BatchSize:    cfg.Jobs.BatchSize,
			MaxAttempts:  cfg.Jobs.MaxAttempts,
			RetryBackoff: cfg.Jobs.RetryBackoff,
			ExecTimeout:  cfg.Jobs.ExecTimeout,
			StaleAfter:   cfg.Jobs.StaleAfter,
		}, logger.Component(log, "jobs"))
		jobSvc = runner
		go func() {
			defer close(jobsDone)
			runner.Start(runCtx)
		}()
	} else {
		close(jobsDone)
	}

	rules := middleware.DefaultRateLimitRules()
	if cfg.RateLimit.Limit > 0 && cfg.RateLimit.Window > 0 {
		rules[middleware.GroupWalletWrite] = middleware.RateLimitRule{
			Limit:  int64(cfg.RateLimit.Limit),
			Window: cfg.RateLimit.Window,
		}
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		ReportingSvc:   reportingSvc,
		JobSvc:         jobSvc,
		Users:          store.users,
		Accounts:       store.accounts,
		TokenSvc:       tokenSvc,
		SigSvc:         sigSvc,
		FundingSecret:  cfg.Funding.WebhookSecret,
		RateLimitStore: rateLimitStore,
		RateLimitRules: rules,
		HealthCheckers: healthCheckers,
		AuditSvc:       auditSvc,
		Metrics:        metricsHandler,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// The running job finishes on a detached context; claimed jobs not yet
	// started go back to pending.
	stopJobs()
	<-jobsDone
	auditSvc.Wait()

	log.Info().Msg("Server exited")
}
