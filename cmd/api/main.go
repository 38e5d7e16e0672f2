package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dhecash/gateway/config"
	httpHandler "github.com/dhecash/gateway/internal/adapter/http/handler"
	"github.com/dhecash/gateway/internal/adapter/provider"
	"github.com/dhecash/gateway/internal/adapter/provider/moncash"
	"github.com/dhecash/gateway/internal/adapter/provider/natcash"
	"github.com/dhecash/gateway/internal/adapter/provider/stripe"
	pgStorage "github.com/dhecash/gateway/internal/adapter/storage/postgres"
	redisStorage "github.com/dhecash/gateway/internal/adapter/storage/redis"
	"github.com/dhecash/gateway/internal/core/domain"
	"github.com/dhecash/gateway/internal/core/ports"
	"github.com/dhecash/gateway/internal/queue"
	"github.com/dhecash/gateway/internal/service"
	"github.com/dhecash/gateway/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("starting DheCash gateway")

	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Repositories
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	txnRepo := pgStorage.NewTransactionRepo(pool)
	customerRepo := pgStorage.NewCustomerRepo(pool)
	webhookConfigRepo := pgStorage.NewWebhookConfigRepo(pool)
	webhookLogRepo := pgStorage.NewWebhookLogRepo(pool)
	queueRepo := pgStorage.NewQueueRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Redis-backed stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	tokenCache := redisStorage.NewTokenCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Core services
	encSvc, err := service.NewAESEncryptionService(cfg.Encryption.KeyHex)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize encryption service")
	}
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Provider adapters, one per channel. All three are always wired; an
	// adapter whose credentials are not configured returns
	// ErrProviderUnavailable from its own calls.
	httpClient := provider.NewHTTPClient(provider.DefaultTimeout)
	providers := map[domain.Channel]ports.Provider{
		domain.ChannelMonCash: moncash.NewAdapter(cfg.Providers.MonCash, httpClient, tokenCache),
		domain.ChannelNatCash: natcash.NewAdapter(cfg.Providers.NatCash, httpClient, tokenCache, cfg.Server.PublicBaseURL+"/v1/webhooks/natcash"),
		domain.ChannelStripe:  stripe.NewAdapter(cfg.Providers.Stripe, httpClient),
	}

	webhookDispatcher := service.NewWebhookDispatcher(
		webhookConfigRepo,
		webhookLogRepo,
		queueRepo,
		sigSvc,
		encSvc,
		httpClient,
		cfg.Queue.WebhookAttempts,
		log,
	)

	paymentSvc := service.NewPaymentService(
		paymentRepo,
		txnRepo,
		customerRepo,
		idempotencyCache,
		transactor,
		providers,
		queueRepo,
		webhookDispatcher,
		service.QueueAttemptConfig{PaymentAttempts: cfg.Queue.PaymentAttempts},
		log,
	)

	callbackRecon := service.NewCallbackReconciler(
		providers,
		paymentRepo,
		txnRepo,
		customerRepo,
		transactor,
		webhookDispatcher,
		log,
	)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Durable queue consumers: one worker per payment channel queue, one
	// for outbound webhook delivery, and a sweeper for expired payments.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	paymentQueues := []domain.Queue{domain.QueuePaymentsMonCash, domain.QueuePaymentsNatCash, domain.QueuePaymentsStripe}
	for _, q := range paymentQueues {
		w := queue.NewWorker(queueRepo, queue.Config{
			Queue:           q,
			WorkerID:        string(q) + "-worker",
			Concurrency:     cfg.Queue.PaymentConcurrency,
			BackoffBase:     cfg.Queue.PaymentBackoff,
			PollInterval:    cfg.Queue.PollInterval,
			DLQOnExhaustion: true,
		}, func(ctx context.Context, job *domain.QueueJob) error {
			return paymentSvc.Dispatch(ctx, string(job.Payload))
		}, log)
		go w.Run(workerCtx)
	}

	webhookWorker := queue.NewWorker(queueRepo, queue.Config{
		Queue:           domain.QueueNotificationsWebhooks,
		WorkerID:        "webhooks-worker",
		Concurrency:     cfg.Queue.WebhookConcurrency,
		BackoffBase:     cfg.Queue.WebhookBackoff,
		PollInterval:    cfg.Queue.PollInterval,
		DLQOnExhaustion: false,
	}, func(ctx context.Context, job *domain.QueueJob) error {
		logID, err := parseWebhookLogID(job.Payload)
		if err != nil {
			return err
		}
		return webhookDispatcher.Deliver(ctx, logID)
	}, log)
	go webhookWorker.Run(workerCtx)

	sweeper := queue.NewSweeper(paymentRepo, cfg.Queue.PollInterval*10, log)
	go sweeper.Run(workerCtx)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PaymentSvc:     paymentSvc,
		CallbackRecon:  callbackRecon,
		WebhookLogs:    webhookLogRepo,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

func parseWebhookLogID(payload []byte) (uuid.UUID, error) {
	return uuid.Parse(string(payload))
}
