package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/agency-hub/backend/internal/config"
	"github.com/agency-hub/backend/internal/crypto"
	"github.com/agency-hub/backend/internal/db"
	"github.com/agency-hub/backend/internal/events"
	"github.com/agency-hub/backend/internal/publishing"
	"github.com/agency-hub/backend/internal/repositories"
	"github.com/agency-hub/backend/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)
	if cfg.PublishAPIURL == "" {
		log.Fatal("PUBLISH_API_URL is not set, the worker has nothing to publish to")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, 5, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repos
	clientRepo := repositories.NewClientRepo(pool)
	campaignRepo := repositories.NewCampaignRepo(pool)
	postRepo := repositories.NewPostRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	var cipher services.Cipher
	if sealer, err := crypto.NewSealer(cfg.CredentialsKey); err == nil {
		cipher = sealer
	}
	publisher := events.NewRedisPublisher(rdb, log)
	credentials := services.NewCredentialService(clientRepo, cipher)
	platform := services.NewPublishClient(cfg.PublishAPIURL, cfg.PublishTimeout, log)
	notifier := services.NewNotifier(publisher, log)

	scheduler := publishing.NewScheduler(
		postRepo,
		campaignRepo,
		credentials,
		platform,
		notifier,
		auditRepo,
		publisher,
		cfg.SchedulerInterval,
		log,
	)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down worker")
		cancel()
	}()

	log.Info("worker started", zap.Duration("interval", cfg.SchedulerInterval))
	scheduler.Run(ctx)
}
