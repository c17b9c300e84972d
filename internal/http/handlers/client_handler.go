package handlers

import (
	"context"

	"github.com/agency-hub/backend/internal/http/dto"
	"github.com/agency-hub/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ClientLister interface {
	List(ctx context.Context) ([]models.Client, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error)
}

type CredentialSetter interface {
	Set(ctx context.Context, clientID uuid.UUID, accountID, accessToken string) error
}

type ClientHandler struct {
	clients ClientLister
	creds   CredentialSetter
	log     *zap.Logger
}

func NewClientHandler(clients ClientLister, creds CredentialSetter, log *zap.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, creds: creds, log: log}
}

func (h *ClientHandler) ListClients(c *fiber.Ctx) error {
	clients, err := h.clients.List(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: nonNil(clients)})
}

// SetCredentials stores the client's publishing account. The token is never
// returned.
func (h *ClientHandler) SetCredentials(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid client id")
	}
	var req dto.SetCredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	if _, err := h.clients.GetByID(c.UserContext(), id); err != nil {
		return writeError(c, h.log, err)
	}
	if err := h.creds.Set(c.UserContext(), id, req.AccountID, req.AccessToken); err != nil {
		return writeError(c, h.log, err)
	}
	h.log.Info("platform credentials updated", zap.String("client_id", id.String()))
	return c.JSON(dto.SuccessResponse{OK: true})
}
