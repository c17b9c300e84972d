package handlers

import (
	"errors"

	"github.com/agency-hub/backend/internal/agents"
	"github.com/agency-hub/backend/internal/gateway"
	"github.com/agency-hub/backend/internal/http/dto"
	"github.com/agency-hub/backend/internal/middleware"
	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// writeError maps domain errors to status codes. Upstream error bodies are
// logged, never returned.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status, msg := fiber.StatusInternalServerError, "internal server error"

	switch {
	case errors.Is(err, gateway.ErrNotConfigured):
		status, msg = fiber.StatusServiceUnavailable, "agent gateway not configured"
	case errors.Is(err, gateway.ErrUnavailable):
		status, msg = fiber.StatusBadGateway, "agent unavailable, try again"
	case errors.Is(err, services.ErrPublishNotConfigured), errors.Is(err, services.ErrImagesNotConfigured):
		status, msg = fiber.StatusServiceUnavailable, err.Error()
	case errors.Is(err, services.ErrNotFound):
		status, msg = fiber.StatusNotFound, "not found"
	case errors.Is(err, agents.ErrUnknownAgent):
		status, msg = fiber.StatusNotFound, "unknown agent"
	case errors.Is(err, models.ErrInvalidTransition):
		status, msg = fiber.StatusConflict, err.Error()
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, agents.ErrInvalidMessage):
		status, msg = fiber.StatusBadRequest, err.Error()
	}

	if status >= fiber.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(dto.ErrorResponse{
		Error:     msg,
		RequestID: middleware.GetRequestID(c),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg})
}

var (
	errInvalidCampaignID = errors.New("invalid campaign id")
	errInvalidPostID     = errors.New("invalid post id")
)
