package postgres

import (
	"context"
	"time"

	"github.com/dom/anivers/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type friendRepository struct {
	db *gorm.DB
}

func NewFriendRepository(db *gorm.DB) *friendRepository {
	return &friendRepository{db: db}
}

func (r *friendRepository) AddRequest(ctx context.Context, from, to uuid.UUID) error {
	req := &domain.FriendRequest{FromUserID: from, ToUserID: to, CreatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(req).Error
}

func (r *friendRepository) DeleteRequest(ctx context.Context, from, to uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&domain.FriendRequest{}, "from_user_id = ? AND to_user_id = ?", from, to).Error
}

func (r *friendRepository) Befriend(ctx context.Context, a, b uuid.UUID) error {
	now := time.Now()
	rows := []domain.Friendship{
		{UserID: a, FriendID: b, CreatedAt: now},
		{UserID: b, FriendID: a, CreatedAt: now},
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.FriendRequest{},
			"(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)", a, b, b, a).Error
	})
}

func (r *friendRepository) Unfriend(ctx context.Context, a, b uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Friendship{},
		"(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).Error
}

func (r *friendRepository) ListFriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	err := r.db.WithContext(ctx).Model(&domain.Friendship{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("friend_id", &ids).Error
	return ids, err
}

func (r *friendRepository) ListRequestIDs(ctx context.Context, toUserID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	err := r.db.WithContext(ctx).Model(&domain.FriendRequest{}).
		Where("to_user_id = ?", toUserID).
		Order("created_at ASC").
		Pluck("from_user_id", &ids).Error
	return ids, err
}
