package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/repository"
	"github.com/dom/anivers/internal/repository/memory"
	"github.com/dom/anivers/internal/service"
	"github.com/dom/anivers/internal/token"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTokenService(t *testing.T, now func() time.Time) *token.Service {
	t.Helper()
	opts := []token.Option{}
	if now != nil {
		opts = append(opts, token.WithClock(now))
	}
	svc, err := token.NewService(token.Config{
		AccessSecret:  "test-access-" + uuid.NewString(),
		RefreshSecret: "test-refresh-" + uuid.NewString(),
		AccessTTL:     30 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
		Issuer:        "anivers-test",
	}, opts...)
	require.NoError(t, err)
	return svc
}

type env struct {
	repos    *repository.Repositories
	tokens   *token.Service
	services *service.Services
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repos := memory.NewRepositories()
	return newEnvWithRepos(t, repos)
}

func newEnvWithRepos(t *testing.T, repos *repository.Repositories) *env {
	t.Helper()
	tokens := newTokenService(t, nil)
	return &env{
		repos:  repos,
		tokens: tokens,
		services: service.NewServices(repos, service.Deps{
			Tokens:     tokens,
			Catalog:    &fakeCatalog{},
			Players:    &fakePlayers{},
			BcryptCost: bcrypt.MinCost,
		}),
	}
}

func (e *env) register(t *testing.T, email string) *service.AuthResult {
	t.Helper()
	res, err := e.services.Auth.Register(context.Background(), service.RegisterInput{
		Email:    email,
		Password: "pass123",
	})
	require.NoError(t, err)
	return res
}

// countingTokens records every call that reaches the refresh token table.
type countingTokens struct {
	repository.RefreshTokenRepository
	calls      atomic.Int32
	replaceErr error
}

func (c *countingTokens) Replace(ctx context.Context, userID uuid.UUID, tok string) error {
	c.calls.Add(1)
	if c.replaceErr != nil {
		return c.replaceErr
	}
	return c.RefreshTokenRepository.Replace(ctx, userID, tok)
}

func (c *countingTokens) GetByToken(ctx context.Context, tok string) (*domain.RefreshToken, error) {
	c.calls.Add(1)
	return c.RefreshTokenRepository.GetByToken(ctx, tok)
}

func (c *countingTokens) DeleteByToken(ctx context.Context, tok string) error {
	c.calls.Add(1)
	return c.RefreshTokenRepository.DeleteByToken(ctx, tok)
}

var errStoreDown = errors.New("store down")
