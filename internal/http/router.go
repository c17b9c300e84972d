package http

import (
	"time"

	"github.com/agency-hub/backend/internal/config"
	"github.com/agency-hub/backend/internal/http/handlers"
	"github.com/agency-hub/backend/internal/middleware"
	"github.com/agency-hub/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Agent    *handlers.AgentHandler
	Campaign *handlers.CampaignHandler
	Client   *handlers.ClientHandler
	Meta     *handlers.MetaHandler
	WS       *handlers.WSHub
}

func SetupRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, rdb *redis.Client, h Handlers) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Auth (public)
	api.Post("/auth/login", middleware.RateLimitMiddleware(rdb, 10, time.Minute), h.Auth.Login)

	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret, log))
	protected.Get("/me", h.Auth.Me)

	// Meta
	protected.Get("/meta/agents", h.Meta.GetAgents)
	protected.Get("/meta/statuses", h.Meta.GetStatuses)
	protected.Get("/meta/image-models", h.Meta.GetImageModels)

	// Agents
	agent := protected.Group("/agent",
		middleware.AdminMiddleware(),
		middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute),
	)
	agent.Post("/campaign/:campaignId", h.Agent.CampaignChat)
	agent.Get("/campaign/:campaignId/history", h.Agent.CampaignHistory)
	agent.Post("/:slug", h.Agent.Chat)
	agent.Get("/:slug/history", h.Agent.History)

	// Campaigns (read)
	view := middleware.RequirePermission(rbac.PermViewCampaigns)
	protected.Get("/campaigns", view, h.Campaign.ListCampaigns)
	protected.Get("/campaigns/:id", view, h.Campaign.GetCampaign)
	protected.Get("/campaigns/:id/audit", view, h.Campaign.AuditTrail)

	// Campaigns (actions)
	manage := protected.Group("/campaigns", middleware.RequirePermission(rbac.PermManageCampaigns))
	manage.Post("", h.Campaign.CreateCampaign)
	manage.Delete("/:id", h.Campaign.DeleteCampaign)
	manage.Post("/:id/activate", h.Campaign.ActivateCampaign)
	manage.Post("/:id/complete", h.Campaign.CompleteCampaign)
	manage.Post("/:id/posts/approve-all", h.Campaign.BulkApprove)
	manage.Post("/:id/posts/:postId/approve", h.Campaign.ApprovePost)
	manage.Post("/:id/posts/:postId/reject", h.Campaign.RejectPost)
	manage.Post("/:id/posts/:postId/reset", h.Campaign.ResetPost)
	manage.Patch("/:id/posts/:postId", h.Campaign.EditPost)
	manage.Post("/:id/posts/:postId/image", h.Campaign.RegenerateImage)

	// Clients
	clients := protected.Group("/clients", middleware.RequirePermission(rbac.PermManageClients))
	clients.Get("", h.Client.ListClients)
	clients.Put("/:id/credentials", h.Client.SetCredentials)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(h.WS.HandleWS))
}
