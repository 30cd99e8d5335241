package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/repository"
	"github.com/google/uuid"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 50

	defaultDynamicsDays = 14
	maxDynamicsDays     = 90
)

// ListService manages a user's tracked items. Items are keyed by their
// external catalog id, so repeating a write never creates a second entry.
type ListService struct {
	userRepo repository.UserRepository
	itemRepo repository.TrackedItemRepository
}

func NewListService(userRepo repository.UserRepository, itemRepo repository.TrackedItemRepository) *ListService {
	return &ListService{
		userRepo: userRepo,
		itemRepo: itemRepo,
	}
}

// UpsertInput carries a list write. Nil display fields leave the stored
// values of an existing item untouched.
type UpsertInput struct {
	ExternalID    any
	Status        string
	Title         *string
	PosterURL     *string
	EpisodesTotal *int
}

func (s *ListService) List(ctx context.Context, userID uuid.UUID) ([]*domain.TrackedItem, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.list(ctx, userID)
}

func (s *ListService) Upsert(ctx context.Context, userID uuid.UUID, input UpsertInput) ([]*domain.TrackedItem, error) {
	externalID := domain.NormalizeExternalID(input.ExternalID)
	status := domain.ListStatus(strings.TrimSpace(input.Status))

	fields := map[string]string{}
	if externalID == "" {
		fields["externalId"] = "is required"
	}
	if status == "" {
		fields["status"] = "is required"
	} else if !status.IsValid() {
		fields["status"] = "must be one of: watching completed dropped planned"
	}
	if input.EpisodesTotal != nil && *input.EpisodesTotal < 0 {
		fields["episodesTotal"] = "must not be negative"
	}
	if len(fields) > 0 {
		return nil, domain.Validation("invalid list entry", fields)
	}

	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	item := &domain.TrackedItem{
		UserID:        userID,
		ExternalID:    externalID,
		Status:        status,
		EpisodesTotal: input.EpisodesTotal,
	}
	if input.Title != nil {
		item.Title = *input.Title
	}
	if input.PosterURL != nil {
		item.PosterURL = *input.PosterURL
	}

	err := s.itemRepo.Upsert(ctx, item, repository.UpsertFields{
		Title:         input.Title != nil,
		PosterURL:     input.PosterURL != nil,
		EpisodesTotal: input.EpisodesTotal != nil,
	})
	if err != nil {
		return nil, domain.Internal(err)
	}

	return s.list(ctx, userID)
}

// Remove drops the entry for externalID. Removing an absent entry is not an error.
func (s *ListService) Remove(ctx context.Context, userID uuid.UUID, externalID any) ([]*domain.TrackedItem, error) {
	id := domain.NormalizeExternalID(externalID)
	if id == "" {
		return nil, domain.Validation("invalid list entry", map[string]string{"externalId": "is required"})
	}

	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.itemRepo.Delete(ctx, userID, id); err != nil {
		return nil, domain.Internal(err)
	}

	return s.list(ctx, userID)
}

// Stats is computed from the current list on every call and is never stored.
func (s *ListService) Stats(ctx context.Context, userID uuid.UUID) (domain.ListStats, error) {
	items, err := s.List(ctx, userID)
	if err != nil {
		return domain.ListStats{}, err
	}
	return domain.ComputeStats(items), nil
}

// Recent returns the most recently written items, newest first.
func (s *ListService) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TrackedItem, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	items, err := s.itemRepo.RecentByUser(ctx, userID, limit)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if items == nil {
		items = []*domain.TrackedItem{}
	}
	return items, nil
}

// Dynamics reports how many entries were last written on each of the past
// days, ending today.
func (s *ListService) Dynamics(ctx context.Context, userID uuid.UUID, days int, now time.Time) ([]domain.DailyActivity, error) {
	if days <= 0 {
		days = defaultDynamicsDays
	}
	if days > maxDynamicsDays {
		days = maxDynamicsDays
	}

	items, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.ComputeDynamics(items, days, now), nil
}

func (s *ListService) list(ctx context.Context, userID uuid.UUID) ([]*domain.TrackedItem, error) {
	items, err := s.itemRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if items == nil {
		items = []*domain.TrackedItem{}
	}
	return items, nil
}

func (s *ListService) ensureUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.userRepo.GetByID(ctx, userID)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound("user not found")
	}
	return domain.Internal(fmt.Errorf("load user: %w", err))
}
