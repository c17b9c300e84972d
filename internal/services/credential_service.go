package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agency-hub/backend/internal/models"
	"github.com/google/uuid"
)

type CredentialStore interface {
	UpsertCredential(ctx context.Context, clientID uuid.UUID, accountID string, accessTokenEnc []byte) error
	GetCredential(ctx context.Context, clientID uuid.UUID) (string, []byte, error)
}

type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// CredentialService stores platform access tokens encrypted at rest.
type CredentialService struct {
	store  CredentialStore
	cipher Cipher
}

// NewCredentialService accepts a nil cipher; every call then fails with
// ErrPublishNotConfigured.
func NewCredentialService(store CredentialStore, cipher Cipher) *CredentialService {
	return &CredentialService{store: store, cipher: cipher}
}

func (s *CredentialService) Set(ctx context.Context, clientID uuid.UUID, accountID, accessToken string) error {
	if s.cipher == nil {
		return fmt.Errorf("credentials key: %w", ErrPublishNotConfigured)
	}
	accountID, accessToken = strings.TrimSpace(accountID), strings.TrimSpace(accessToken)
	if accountID == "" || accessToken == "" {
		return fmt.Errorf("%w: account id and access token are required", ErrInvalidInput)
	}
	enc, err := s.cipher.Seal([]byte(accessToken))
	if err != nil {
		return err
	}
	return s.store.UpsertCredential(ctx, clientID, accountID, enc)
}

// Get returns ErrNoCredentials when the client has none stored.
func (s *CredentialService) Get(ctx context.Context, clientID uuid.UUID) (*models.PlatformCredential, error) {
	if s.cipher == nil {
		return nil, fmt.Errorf("credentials key: %w", ErrPublishNotConfigured)
	}
	accountID, enc, err := s.store.GetCredential(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, err
	}
	token, err := s.cipher.Open(enc)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	return &models.PlatformCredential{ClientID: clientID, AccountID: accountID, AccessToken: string(token)}, nil
}
