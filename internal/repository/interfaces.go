package repository

import (
	"context"
	"errors"

	"github.com/dom/anivers/internal/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate record")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RefreshTokenRepository keeps at most one refresh token per user.
type RefreshTokenRepository interface {
	// Replace stores token as the only live refresh token of userID,
	// discarding any previous one.
	Replace(ctx context.Context, userID uuid.UUID, token string) error
	GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) error
}

type TrackedItemRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.TrackedItem, error)
	// Upsert updates the item with the same (UserID, ExternalID) in place or
	// appends it to the end of the user's list, atomically.
	Upsert(ctx context.Context, item *domain.TrackedItem, fields UpsertFields) error
	Delete(ctx context.Context, userID uuid.UUID, externalID string) error
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TrackedItem, error)
}

// UpsertFields says which display fields of an existing item an upsert overwrites.
type UpsertFields struct {
	Title         bool
	PosterURL     bool
	EpisodesTotal bool
}

type FriendRepository interface {
	AddRequest(ctx context.Context, from, to uuid.UUID) error
	DeleteRequest(ctx context.Context, from, to uuid.UUID) error
	// Befriend records both directions of the relation together.
	Befriend(ctx context.Context, a, b uuid.UUID) error
	// Unfriend removes both directions of the relation together.
	Unfriend(ctx context.Context, a, b uuid.UUID) error
	ListFriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ListRequestIDs(ctx context.Context, toUserID uuid.UUID) ([]uuid.UUID, error)
}

type Repositories struct {
	User         UserRepository
	RefreshToken RefreshTokenRepository
	TrackedItem  TrackedItemRepository
	Friend       FriendRepository
}
