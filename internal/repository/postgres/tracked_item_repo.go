package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type trackedItemRepository struct {
	db *gorm.DB
}

func NewTrackedItemRepository(db *gorm.DB) *trackedItemRepository {
	return &trackedItemRepository{db: db}
}

func (r *trackedItemRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.TrackedItem, error) {
	items := make([]*domain.TrackedItem, 0)
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list tracked items: %w", err)
	}
	return items, nil
}

// Upsert is a single INSERT ... ON CONFLICT statement, so two concurrent
// writes for the same item can never produce two rows. The position is only
// drawn from the sequence on insert; updates keep the original place.
func (r *trackedItemRepository) Upsert(ctx context.Context, item *domain.TrackedItem, fields repository.UpsertFields) error {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	columns := []string{"status", "updated_at"}
	if fields.Title {
		columns = append(columns, "title")
	}
	if fields.PosterURL {
		columns = append(columns, "poster_url")
	}
	if fields.EpisodesTotal {
		columns = append(columns, "episodes_total")
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Omit("position").
		Create(item).Error
	if err != nil {
		return fmt.Errorf("upsert tracked item: %w", translate(err))
	}
	return nil
}

func (r *trackedItemRepository) Delete(ctx context.Context, userID uuid.UUID, externalID string) error {
	return r.db.WithContext(ctx).
		Delete(&domain.TrackedItem{}, "user_id = ? AND external_id = ?", userID, externalID).Error
}

func (r *trackedItemRepository) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.TrackedItem, error) {
	items := make([]*domain.TrackedItem, 0)
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("position DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("recent tracked items: %w", err)
	}
	return items, nil
}
