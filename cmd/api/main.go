package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/adoption-service/internal/api/http"
	"github.com/spec-kit/adoption-service/internal/api/http/handlers"
	"github.com/spec-kit/adoption-service/internal/app"
	"github.com/spec-kit/adoption-service/internal/auth"
	"github.com/spec-kit/adoption-service/internal/config"
	"github.com/spec-kit/adoption-service/internal/events"
	"github.com/spec-kit/adoption-service/internal/imagestore"
	"github.com/spec-kit/adoption-service/internal/mailer"
	"github.com/spec-kit/adoption-service/internal/observability"
	"github.com/spec-kit/adoption-service/internal/persistence"
	"github.com/spec-kit/adoption-service/internal/service"
	"github.com/spec-kit/adoption-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(cfg.App.Name)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var queue worker.Queue = worker.NewMemoryQueue(256)
	if redis.Enabled() {
		if err := redis.Ping(ctx); err != nil {
			logger.Warn("redis unreachable; notifications use an in-process queue", zap.Error(err))
		} else {
			queue = worker.NewRedisQueue(redis.Client, cfg.Redis.QueueKey)
		}
	}

	images, err := imagestore.NewFromConfig(ctx, cfg.Images)
	if err != nil {
		logger.Fatal("failed to init image store", zap.Error(err))
	}
	sender, err := mailer.NewFromConfig(cfg.Notification, logger)
	if err != nil {
		logger.Fatal("failed to init mailer", zap.Error(err))
	}

	repos := app.NewRepositories(pg)
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, queue, logger, metrics).RegisterHandlers()

	authService := service.NewAuthService(*cfg, repos.Users, logger)
	petService := service.NewPetService(service.PetDependencies{
		PetRepo:      repos.Pets,
		AdoptionRepo: repos.Adoptions,
		Images:       images,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	adoptionService := service.NewAdoptionService(service.AdoptionDependencies{
		AdoptionRepo: repos.Adoptions,
		PetRepo:      repos.Pets,
		UserRepo:     repos.Users,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	notifier := worker.NewNotificationWorker(queue, sender, logger, metrics,
		cfg.Notification.Workers, cfg.Notification.Timeout())
	notifier.Start(workerCtx)

	server := httptransport.NewServer(cfg.App, logger, metrics, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:              handlers.NewAuthHandler(authService),
		Pets:              handlers.NewPetsHandler(petService),
		Adoptions:         handlers.NewAdoptionsHandler(adoptionService),
		Admin:             handlers.NewAdminHandler(petService, adoptionService),
		AuthMiddleware:    auth.NewAuthMiddleware(authService.TokenManager(), repos.Users, logger),
		Metrics:           metrics,
		AuthRatePerMinute: cfg.Auth.AuthRateLimitPerMin,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- server.Listen(cfg.App.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-listenErr:
		if err != nil {
			logger.Error("fiber listen", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	cancelWorkers()
	notifier.Wait()
	logger.Info("shutdown complete")
}
