package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/repository"
	"github.com/google/uuid"
)

// RefreshStore persists the single live refresh token of each user, which
// makes logout and rotation revoke tokens whose signature is still valid.
type RefreshStore struct {
	repo repository.RefreshTokenRepository
}

func NewRefreshStore(repo repository.RefreshTokenRepository) *RefreshStore {
	return &RefreshStore{repo: repo}
}

// Persist makes token the only live refresh token of userID. Any token issued
// to the user before is revoked by this call.
func (s *RefreshStore) Persist(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.repo.Replace(ctx, userID, token); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	return nil
}

// Lookup reports whether token is the live refresh token of some user.
func (s *RefreshStore) Lookup(ctx context.Context, token string) (*domain.RefreshToken, bool, error) {
	rec, err := s.repo.GetByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup refresh token: %w", err)
	}
	return rec, true, nil
}

// Delete revokes token. Deleting an unknown token is not an error.
func (s *RefreshStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}
