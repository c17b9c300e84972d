package handlers

import (
	"context"

	"github.com/agency-hub/backend/internal/http/dto"
	"github.com/agency-hub/backend/internal/middleware"
	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/relay"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AgentService interface {
	Chat(ctx context.Context, userID uuid.UUID, slug, message string) (*relay.Result, error)
	ChatCampaign(ctx context.Context, userID, campaignID uuid.UUID, message string) (*relay.Result, error)
	History(ctx context.Context, userID uuid.UUID, slug string) ([]models.ConversationMessage, error)
	CampaignHistory(ctx context.Context, campaignID uuid.UUID) ([]models.ConversationMessage, error)
}

type AgentHandler struct {
	agents AgentService
	log    *zap.Logger
}

func NewAgentHandler(agents AgentService, log *zap.Logger) *AgentHandler {
	return &AgentHandler{agents: agents, log: log}
}

// Chat handles POST /agent/:slug.
func (h *AgentHandler) Chat(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.agents.Chat(c.UserContext(), middleware.GetUserID(c), c.Params("slug"), req.Message)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ChatResponse{Reply: res.Reply})
}

// CampaignChat handles POST /agent/campaign/:campaignId.
func (h *AgentHandler) CampaignChat(c *fiber.Ctx) error {
	campaignID, err := uuid.Parse(c.Params("campaignId"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	res, err := h.agents.ChatCampaign(c.UserContext(), middleware.GetUserID(c), campaignID, req.Message)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ChatResponse{Reply: res.Reply})
}

func (h *AgentHandler) History(c *fiber.Ctx) error {
	rows, err := h.agents.History(c.UserContext(), middleware.GetUserID(c), c.Params("slug"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: nonNil(rows)})
}

func (h *AgentHandler) CampaignHistory(c *fiber.Ctx) error {
	campaignID, err := uuid.Parse(c.Params("campaignId"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}
	rows, err := h.agents.CampaignHistory(c.UserContext(), campaignID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: nonNil(rows)})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
