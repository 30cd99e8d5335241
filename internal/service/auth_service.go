package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/logging"
	"github.com/dom/anivers/internal/metrics"
	"github.com/dom/anivers/internal/repository"
	"github.com/dom/anivers/internal/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthService drives the session workflow: register, login, logout, refresh.
type AuthService struct {
	userRepo   repository.UserRepository
	tokens     *token.Service
	refresh    *token.RefreshStore
	bcryptCost int
	// dummyHash keeps login timing the same for unknown emails.
	dummyHash []byte
}

func NewAuthService(userRepo repository.UserRepository, tokens *token.Service, refresh *token.RefreshStore, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("anivers-dummy-password"), bcryptCost)
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		refresh:    refresh,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
	}
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=3,max=32"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Email = domain.NormalizeEmail(input.Email)
	if err := validateStruct(input); err != nil {
		metrics.Auth("register", "invalid")
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err == nil && existing != nil {
		metrics.Auth("register", "conflict")
		return nil, domain.Conflict("a user with this email already exists")
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Internal(fmt.Errorf("lookup email: %w", err))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.Auth("register", "conflict")
			return nil, domain.Conflict("a user with this email already exists")
		}
		return nil, domain.Internal(fmt.Errorf("create user: %w", err))
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		// Registration is all or nothing: an account without a session is removed.
		if cleanupErr := s.userRepo.Delete(context.WithoutCancel(ctx), user.ID); cleanupErr != nil {
			logging.Ctx(ctx).Error().Err(cleanupErr).
				Str("user_id", user.ID.String()).
				Msg("failed to roll back user after session error")
		}
		metrics.Auth("register", "error")
		return nil, domain.Internal(fmt.Errorf("register: %w", err))
	}

	metrics.Auth("register", "success")
	logging.Ctx(ctx).Info().Str("user_id", user.ID.String()).Msg("user registered")
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		metrics.Auth("login", "failure")
		return nil, domain.InvalidCredentials()
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(input.Password))
			metrics.Auth("login", "failure")
			return nil, domain.InvalidCredentials()
		}
		return nil, domain.Internal(fmt.Errorf("lookup email: %w", err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		metrics.Auth("login", "failure")
		return nil, domain.InvalidCredentials()
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		metrics.Auth("login", "error")
		return nil, domain.Internal(fmt.Errorf("login: %w", err))
	}

	metrics.Auth("login", "success")
	return result, nil
}

// Logout revokes refreshToken. It never fails from the caller's point of view.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if err := s.refresh.Delete(ctx, refreshToken); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to delete refresh token on logout")
		metrics.Auth("logout", "error")
		return
	}
	metrics.Auth("logout", "success")
}

// Refresh rotates the session behind refreshToken. The token must verify and
// still be the live token of its user; otherwise the caller is unauthenticated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		metrics.Auth("refresh", "failure")
		return nil, domain.Unauthenticated()
	}

	identity, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		metrics.Auth("refresh", "failure")
		return nil, domain.Unauthenticated()
	}

	rec, found, err := s.refresh.Lookup(ctx, refreshToken)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if !found || rec.UserID != identity.UserID {
		metrics.Auth("refresh", "failure")
		return nil, domain.Unauthenticated()
	}

	user, err := s.userRepo.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.Auth("refresh", "failure")
			return nil, domain.Unauthenticated()
		}
		return nil, domain.Internal(fmt.Errorf("load user: %w", err))
	}

	result, err := s.startSession(ctx, user)
	if err != nil {
		metrics.Auth("refresh", "error")
		return nil, domain.Internal(fmt.Errorf("refresh: %w", err))
	}

	metrics.Auth("refresh", "success")
	return result, nil
}

// startSession mints a new pair and makes its refresh token the user's only
// live one, which revokes whatever refresh token the user held before.
func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(token.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, err
	}

	if err := s.refresh.Persist(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("user not found")
		}
		return nil, domain.Internal(err)
	}
	return user, nil
}
