package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/agency-hub/backend/internal/agents"
	"github.com/agency-hub/backend/internal/auth"
	"github.com/agency-hub/backend/internal/config"
	"github.com/agency-hub/backend/internal/crypto"
	"github.com/agency-hub/backend/internal/db"
	"github.com/agency-hub/backend/internal/events"
	"github.com/agency-hub/backend/internal/gateway"
	apphttp "github.com/agency-hub/backend/internal/http"
	"github.com/agency-hub/backend/internal/http/handlers"
	"github.com/agency-hub/backend/internal/rbac"
	"github.com/agency-hub/backend/internal/relay"
	"github.com/agency-hub/backend/internal/repositories"
	"github.com/agency-hub/backend/internal/services"
	"github.com/agency-hub/backend/internal/siteparser"
	"github.com/agency-hub/backend/migrations"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, 0, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	clientRepo := repositories.NewClientRepo(pool)
	campaignRepo := repositories.NewCampaignRepo(pool)
	postRepo := repositories.NewPostRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	messageRepo := repositories.NewMessageRepo(pool)
	taskRepo := repositories.NewTaskRepo(pool)
	leadRepo := repositories.NewLeadRepo(pool)
	invoiceRepo := repositories.NewInvoiceRepo(pool)

	if err := bootstrapAdmin(ctx, cfg, userRepo, log); err != nil {
		log.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	var cipher services.Cipher
	if sealer, err := crypto.NewSealer(cfg.CredentialsKey); err == nil {
		cipher = sealer
	}
	storage := services.NewObjectStorage(cfg.StorageURL, cfg.StoragePublicURL, cfg.StorageBucket, cfg.StorageToken, log)
	imageService := services.NewImageService(
		services.DefaultImageBackends(cfg.OpenAIImagesURL, cfg.OpenAIAPIKey, cfg.GeminiAPIURL, cfg.GeminiAPIKey),
		storage,
		log,
	)
	campaignService := services.NewCampaignService(campaignRepo, postRepo, auditRepo, imageService, publisher, log)
	credentialService := services.NewCredentialService(clientRepo, cipher)
	notifier := services.NewNotifier(publisher, log)

	// Agents
	gw := gateway.NewClient(cfg.GatewayURL, cfg.GatewayToken, cfg.GatewayModel, cfg.GatewayTimeout, log)
	rl := relay.New(gw, messageRepo, log)
	sites := siteparser.NewParser(cfg.WebsiteFetchTimeoutMS, cfg.WebsiteFetchMaxRetries, log)
	personas := agents.DefaultPersonas()
	agentService := agents.NewService(rl, messageRepo, agents.Deps{
		Clients:   clientRepo,
		Tasks:     taskRepo,
		Leads:     leadRepo,
		Invoices:  invoiceRepo,
		Notifier:  notifier,
		Campaigns: campaignService,
		Sites:     sites,
	}, personas, log)

	// Handlers
	wsHub := handlers.NewWSHub(cfg.JWTSecret, subscriber, log)
	if err := wsHub.Start(ctx); err != nil {
		log.Fatal("failed to start ws hub", zap.Error(err))
	}

	h := apphttp.Handlers{
		Auth:     handlers.NewAuthHandler(userRepo, cfg.JWTSecret, cfg.JWTExpiration, log),
		Agent:    handlers.NewAgentHandler(agentService, log),
		Campaign: handlers.NewCampaignHandler(campaignService, auditRepo, log),
		Client:   handlers.NewClientHandler(clientRepo, credentialService, log),
		Meta:     handlers.NewMetaHandler(personas),
		WS:       wsHub,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, h)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr), zap.Bool("gateway_configured", cfg.GatewayConfigured()))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

// bootstrapAdmin makes sure the configured admin account exists and carries
// the current password.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, users *repositories.UserRepo, log *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Warn("ADMIN_EMAIL or ADMIN_PASSWORD is not set, skipping admin bootstrap")
		return nil
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	user, err := users.UpsertByEmail(ctx, strings.ToLower(strings.TrimSpace(cfg.AdminEmail)), "Admin", hash, rbac.RoleAdmin)
	if err != nil {
		return err
	}
	log.Info("admin account ready", zap.String("user_id", user.ID.String()))
	return nil
}
