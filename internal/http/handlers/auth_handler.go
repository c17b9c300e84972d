package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/agency-hub/backend/internal/auth"
	"github.com/agency-hub/backend/internal/http/dto"
	"github.com/agency-hub/backend/internal/middleware"
	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/repositories"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastActive(ctx context.Context, id uuid.UUID) error
}

type AuthHandler struct {
	users         UserStore
	jwtSecret     string
	jwtExpiration time.Duration
	log           *zap.Logger
}

func NewAuthHandler(users UserStore, jwtSecret string, jwtExpiration time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, jwtExpiration: jwtExpiration, log: log}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return badRequest(c, "email and password are required")
	}

	user, err := h.users.GetByEmail(c.Context(), email)
	if errors.Is(err, repositories.ErrNotFound) || (err == nil && !auth.CheckPassword(req.Password, user.PasswordHash)) {
		h.log.Debug("login rejected", zap.String("email", email))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "invalid email or password"})
	}
	if err != nil {
		h.log.Error("failed to load user", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	token, err := auth.GenerateJWT(h.jwtSecret, user.ID, user.Role, h.jwtExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	return c.JSON(dto.AuthResponse{
		Token: token,
		User:  user,
	})
}

// Me returns the caller and bumps their last-active time.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	user, err := h.users.GetByID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "user not found"})
	}
	if err := h.users.UpdateLastActive(c.Context(), userID); err != nil {
		h.log.Warn("failed to update last_active", zap.Error(err))
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: user})
}
