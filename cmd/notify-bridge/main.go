package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/agency-hub/backend/internal/config"
	"github.com/agency-hub/backend/internal/db"
	"github.com/agency-hub/backend/internal/events"
	"github.com/agency-hub/backend/internal/services"
	"go.uber.org/zap"
)

// Notify bridge: small service that subscribes to notification events and
// forwards them to the team chat webhook.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	if cfg.NotifyWebhookURL == "" {
		log.Fatal("NOTIFY_WEBHOOK_URL is not set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)
	webhook := services.NewWebhookClient(cfg.NotifyWebhookURL, log)

	err = subscriber.Subscribe(ctx, func(channel string, event events.Event) {
		log.Info("forwarding notification", zap.String("type", event.Type))
		if err := webhook.Send(ctx, event); err != nil {
			log.Warn("failed to forward notification", zap.String("type", event.Type), zap.Error(err))
		}
	}, events.ChannelNotify)
	if err != nil {
		log.Fatal("failed to subscribe", zap.Error(err))
	}

	log.Info("notify-bridge started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notify-bridge")
	cancel()
}
