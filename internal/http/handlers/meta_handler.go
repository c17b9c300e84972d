package handlers

import (
	"sort"

	"github.com/agency-hub/backend/internal/agents"
	"github.com/agency-hub/backend/internal/http/dto"
	"github.com/agency-hub/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

type MetaHandler struct {
	agents []MetaAgent
}

type MetaAgent struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	MaxRounds int    `json:"max_rounds"`
}

type MetaStatuses struct {
	Campaign           []string            `json:"campaign"`
	CampaignTransition map[string][]string `json:"campaign_transitions"`
	Post               []string            `json:"post"`
	PostTransition     map[string][]string `json:"post_transitions"`
	Invoice            []string            `json:"invoice"`
	Task               []string            `json:"task"`
	Lead               []string            `json:"lead"`
}

var campaignStatusOrder = []string{
	models.CampaignStatusDiscovery,
	models.CampaignStatusStrategy,
	models.CampaignStatusGenerating,
	models.CampaignStatusApproval,
	models.CampaignStatusActive,
	models.CampaignStatusCompleted,
}

var postStatusOrder = []string{
	models.PostStatusDraft,
	models.PostStatusApproved,
	models.PostStatusRejected,
	models.PostStatusScheduled,
	models.PostStatusPosted,
	models.PostStatusFailed,
}

func NewMetaHandler(personas map[string]agents.Persona) *MetaHandler {
	list := make([]MetaAgent, 0, len(personas))
	for slug, p := range personas {
		list = append(list, MetaAgent{Slug: slug, Name: p.Name, MaxRounds: p.MaxRounds})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Slug < list[j].Slug })
	return &MetaHandler{agents: list}
}

func (h *MetaHandler) GetAgents(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.agents})
}

func (h *MetaHandler) GetStatuses(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: MetaStatuses{
		Campaign:           campaignStatusOrder,
		CampaignTransition: models.ValidCampaignTransitions,
		Post:               postStatusOrder,
		PostTransition:     models.ValidPostTransitions,
		Invoice:            models.AllInvoiceStatuses,
		Task:               models.AllTaskStatuses,
		Lead:               models.AllLeadStatuses,
	}})
}

func (h *MetaHandler) GetImageModels(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: []string{models.ImageModelGemini, models.ImageModelOpenAI}})
}
