package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/quotation-service/internal/api/http"
	"github.com/spec-kit/quotation-service/internal/api/http/handlers"
	"github.com/spec-kit/quotation-service/internal/config"
	"github.com/spec-kit/quotation-service/internal/observability"
	"github.com/spec-kit/quotation-service/internal/persistence"
	"github.com/spec-kit/quotation-service/internal/queue"
	"github.com/spec-kit/quotation-service/internal/repository"
	"github.com/spec-kit/quotation-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "quotation-api")
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	quotationRepo := repository.NewQuotationRepository(pool)
	offerRepo := repository.NewOfferRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	artistRepo := repository.NewArtistRepository(pool)
	txManager := repository.NewTxManager(pool, cfg.Postgres.LockTimeoutMilli)

	jobQueue := queue.NewRedisQueue(redis.Client, cfg.Queue.Name, cfg.Queue.PollTimeout())

	quotationService := service.NewQuotationService(txManager, quotationRepo, historyRepo, jobQueue, logger)
	offerService := service.NewOfferService(txManager, quotationRepo, offerRepo, historyRepo, jobQueue, logger)
	viewService := service.NewViewService(quotationRepo, offerRepo, historyRepo, customerRepo, artistRepo)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, jobQueue),
		Quotations: handlers.NewQuotationsHandler(quotationService, viewService),
		Offers:     handlers.NewOffersHandler(offerService),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
