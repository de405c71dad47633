package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spec-kit/quotation-service/internal/config"
	"github.com/spec-kit/quotation-service/internal/jobs"
	"github.com/spec-kit/quotation-service/internal/notify"
	"github.com/spec-kit/quotation-service/internal/observability"
	"github.com/spec-kit/quotation-service/internal/persistence"
	"github.com/spec-kit/quotation-service/internal/queue"
	"github.com/spec-kit/quotation-service/internal/repository"
	"github.com/spec-kit/quotation-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "quotation-worker")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	collaborators := jobs.Collaborators{
		Customers: repository.NewCustomerRepository(pool),
		Artists:   repository.NewArtistRepository(pool),
		Email:     &notify.LogEmailSender{Logger: logger},
		Push:      &notify.LogPushSender{Logger: logger},
		EmailFrom: cfg.Notification.EmailFrom,
		Logger:    logger,
	}

	registry, err := jobs.NewRegistry(jobs.DefaultRegistrations(collaborators))
	if err != nil {
		logger.Fatal("failed to build job registry", zap.Error(err))
	}

	jobQueue := queue.NewRedisQueue(redis.Client, cfg.Queue.Name, cfg.Queue.PollTimeout())
	metrics := observability.NewPipelineMetrics(prometheus.DefaultRegisterer)

	dispatcher := worker.NewDispatcher(jobQueue, registry, metrics, logger,
		cfg.Queue.MaxAttempts, cfg.Queue.Concurrency)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("dispatch pipeline starting",
		zap.String("queue", cfg.Queue.Name),
		zap.Int("concurrency", cfg.Queue.Concurrency),
		zap.Int("max_attempts", cfg.Queue.MaxAttempts))
	dispatcher.Run(ctx)
	logger.Info("dispatch pipeline drained")
}
