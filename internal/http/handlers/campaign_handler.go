package handlers

import (
	"context"
	"strconv"

	"github.com/agency-hub/backend/internal/http/dto"
	"github.com/agency-hub/backend/internal/middleware"
	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CampaignActions are the human actions on campaigns and posts.
type CampaignActions interface {
	Create(ctx context.Context, actor models.Actor, clientID uuid.UUID, name, imageModel string, imageStyle *string) (*models.Campaign, error)
	Get(ctx context.Context, id uuid.UUID) (*models.CampaignWithPosts, error)
	List(ctx context.Context, f repositories.CampaignFilter) ([]models.Campaign, error)
	Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error
	Activate(ctx context.Context, actor models.Actor, id uuid.UUID) error
	Complete(ctx context.Context, actor models.Actor, id uuid.UUID) error
	ApprovePost(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID) error
	RejectPost(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID) error
	ResetFailedPost(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID) error
	BulkApprove(ctx context.Context, actor models.Actor, campaignID uuid.UUID) (int, error)
	EditPost(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID, e models.PostEdit) error
	RegenerateImage(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID, prompt *string) (string, error)
}

type AuditReader interface {
	ListForCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}

type CampaignHandler struct {
	campaigns CampaignActions
	audit     AuditReader
	log       *zap.Logger
}

func NewCampaignHandler(campaigns CampaignActions, audit AuditReader, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, audit: audit, log: log}
}

func actorOf(c *fiber.Ctx) models.Actor {
	return models.UserActor(middleware.GetUserID(c))
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return badRequest(c, "invalid client_id")
	}
	if req.ImageModel == "" {
		req.ImageModel = models.ImageModelGemini
	}

	campaign, err := h.campaigns.Create(c.UserContext(), actorOf(c), clientID, req.Name, req.ImageModel, req.ImageStyle)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	campaign, err := h.campaigns.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	filter := repositories.CampaignFilter{
		Limit:  20,
		Offset: 0,
	}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("client_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "invalid client_id")
		}
		filter.ClientID = &id
	}

	campaigns, err := h.campaigns.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: nonNil(campaigns)})
}

func (h *CampaignHandler) DeleteCampaign(c *fiber.Ctx) error {
	return h.campaignAction(c, h.campaigns.Delete)
}

func (h *CampaignHandler) ActivateCampaign(c *fiber.Ctx) error {
	return h.campaignAction(c, h.campaigns.Activate)
}

func (h *CampaignHandler) CompleteCampaign(c *fiber.Ctx) error {
	return h.campaignAction(c, h.campaigns.Complete)
}

func (h *CampaignHandler) campaignAction(c *fiber.Ctx, fn func(context.Context, models.Actor, uuid.UUID) error) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}
	if err := fn(c.UserContext(), actorOf(c), id); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *CampaignHandler) BulkApprove(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}
	n, err := h.campaigns.BulkApprove(c.UserContext(), actorOf(c), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.CountResponse{OK: true, Count: n})
}

func (h *CampaignHandler) ApprovePost(c *fiber.Ctx) error {
	return h.postAction(c, h.campaigns.ApprovePost)
}

func (h *CampaignHandler) RejectPost(c *fiber.Ctx) error {
	return h.postAction(c, h.campaigns.RejectPost)
}

func (h *CampaignHandler) ResetPost(c *fiber.Ctx) error {
	return h.postAction(c, h.campaigns.ResetFailedPost)
}

func (h *CampaignHandler) postAction(c *fiber.Ctx, fn func(context.Context, models.Actor, uuid.UUID, uuid.UUID) error) error {
	campaignID, postID, err := postParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := fn(c.UserContext(), actorOf(c), campaignID, postID); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *CampaignHandler) EditPost(c *fiber.Ctx) error {
	campaignID, postID, err := postParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req dto.EditPostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	edit := models.PostEdit{
		Caption:     req.Caption,
		Hashtags:    req.Hashtags,
		ImagePrompt: req.ImagePrompt,
		ScheduledAt: req.ScheduledAt,
		Theme:       req.Theme,
	}
	if edit == (models.PostEdit{}) {
		return badRequest(c, "nothing to update")
	}
	if err := h.campaigns.EditPost(c.UserContext(), actorOf(c), campaignID, postID, edit); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *CampaignHandler) RegenerateImage(c *fiber.Ctx) error {
	campaignID, postID, err := postParams(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req dto.RegenerateImageRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request")
		}
	}

	url, err := h.campaigns.RegenerateImage(c.UserContext(), actorOf(c), campaignID, postID, req.Prompt)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ImageResponse{OK: true, ImageURL: url})
}

// AuditTrail handles GET /campaigns/:id/audit: campaign and post
// transitions, newest first.
func (h *CampaignHandler) AuditTrail(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	entries, err := h.audit.ListForCampaign(c.UserContext(), id, limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: nonNil(entries)})
}

func postParams(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	campaignID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, errInvalidCampaignID
	}
	postID, err := uuid.Parse(c.Params("postId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, errInvalidPostID
	}
	return campaignID, postID, nil
}
