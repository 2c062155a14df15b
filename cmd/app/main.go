// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"votelab/internal/config"
	"votelab/internal/domain/ports/adapter"
	"votelab/internal/domain/ports/repository"
	"votelab/internal/infra/api"
	pg "votelab/internal/infra/db/postgres"
	"votelab/internal/infra/db/postgres/migrations"
	"votelab/internal/infra/i18n"
	"votelab/internal/infra/logging"
	"votelab/internal/infra/memstore"
	"votelab/internal/infra/metrics"
	"votelab/internal/infra/payment"
	"votelab/internal/infra/phone"
	red "votelab/internal/infra/redis"
	"votelab/internal/infra/sched"
	"votelab/internal/infra/worker"
	"votelab/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		// logger is not configured yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Bool("dev", cfg.Runtime.Dev).Msg("starting votelab")

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if cfg.Runtime.Migrate {
		if err := pg.ApplyMigrations(ctx, pool, migrations.Files, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrations")
		}
	}

	// ---- Sessions, locks, rate limit, notifier ----
	var (
		sessions repository.SessionRepository
		locker   repository.Locker
		limiter  repository.RateLimiter
		notifier adapter.ChangeNotifier
		redisUp  func(ctx context.Context) error
	)
	tm := pg.NewTxManager(pool)
	catalog := pg.NewCatalogRepo(pool)
	polls := pg.NewPollRepo(pool)
	codes := pg.NewAdmissionCodeRepo(pool)
	txs := pg.NewTransactionRepo(pool)
	var votes repository.VoteRepository = pg.NewVoteRepo(pool)

	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer rc.Close()
		sessions = red.NewSessionRepo(rc)
		locker = red.NewLocker(rc)
		limiter = red.NewRateLimiter(rc)
		notifier = red.NewNotifier(rc)
		votes = pg.NewVoteRepoCacheDecorator(votes, rc, cfg.Redis.TTL)
		redisUp = rc.Ping
	} else {
		logger.Warn().Msg("redis.url empty; USSD sessions are kept in process (single instance only)")
		sessions = memstore.NewSessionStore(time.Minute)
		locker = memstore.NewLocker()
		limiter = memstore.NewRateLimiter()
	}

	// ---- Gateway ----
	ps := cfg.Payment.Paystack
	gateway, err := payment.NewPaystackGateway(payment.PaystackOptions{
		SecretKey:   ps.SecretKey,
		BaseURL:     ps.BaseURL,
		CallbackURL: ps.CallbackURL,
		Timeout:     ps.Timeout,
		RatePerSec:  ps.RatePerSec,
		Burst:       ps.Burst,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("paystack gateway")
	}
	retry := usecase.RetryPolicy{
		Attempts:  cfg.Payment.Retry.Attempts,
		BaseDelay: cfg.Payment.Retry.BaseDelay,
		MaxDelay:  cfg.Payment.Retry.MaxDelay,
	}

	// ---- Workers ----
	workers := worker.NewPool(cfg.Workers.Size, cfg.Workers.Queue, logger)
	workers.Start(ctx)
	defer workers.Stop()

	// ---- Use cases ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.USSD.Locale)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	ledgerUC := usecase.NewLedgerUseCase(tm, txs, polls, catalog, votes, gateway, notifier, workers, retry, logger)
	voteUC := usecase.NewVoteUseCase(tm, catalog, polls, codes, txs, votes, gateway, notifier, workers, retry, logger)
	adminUC := usecase.NewAdminUseCase(tm, polls, codes, txs, gateway, retry, logger)
	resultsUC := usecase.NewResultsUseCase(catalog, votes, logger)
	ussdUC := usecase.NewUSSDUseCase(sessions, locker, limiter, catalog, voteUC, tr, usecase.USSDOptions{
		SessionTTL:  cfg.Session.TTL,
		LockTTL:     cfg.Session.LockTTL,
		RateLimit:   cfg.USSD.RateLimit,
		RateWindow:  cfg.USSD.RateWindow,
		ServiceCode: cfg.USSD.ServiceCode,
		PayerDomain: cfg.USSD.PayerDomain,
		Currency:    cfg.USSD.Currency,
		Dev:         cfg.Runtime.Dev,
	}, logger)

	// ---- Background ----
	if cfg.Reconciler.Enabled {
		rec := sched.NewPaymentReconciler(ledgerUC, cfg.Reconciler.Interval, cfg.Reconciler.MinAge, cfg.Reconciler.MaxAge, cfg.Reconciler.BatchSize, logger)
		go rec.Start(ctx)
	}
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				metrics.ObservePool(pool.Stat())
			}
		}
	}()

	// ---- HTTP ----
	srv := api.NewServer(api.Deps{
		USSD:          ussdUC,
		Ledger:        ledgerUC,
		Votes:         voteUC,
		Results:       resultsUC,
		Admin:         adminUC,
		Auth:          api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.AdminKey, cfg.Auth.TokenTTL),
		Phones:        phone.NewNormalizer(cfg.USSD.DefaultRegion),
		WebhookSecret: ps.SecretKey,
		Health: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
			if redisUp != nil {
				return redisUp(ctx)
			}
			return nil
		},
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Logger:         logger,
	})
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
