package services

import (
	"errors"

	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/repositories"
)

var (
	ErrNotFound = repositories.ErrNotFound
	// ErrInvalidTransition is the same value as models.ErrInvalidTransition,
	// re-exported so handlers need not import models for it.
	ErrInvalidTransition = models.ErrInvalidTransition
	ErrInvalidInput      = errors.New("invalid input")

	ErrPublishNotConfigured = errors.New("publishing not configured")
	ErrNoCredentials        = errors.New("no platform credentials for client")
	ErrImagesNotConfigured  = errors.New("image generation not configured")
)
