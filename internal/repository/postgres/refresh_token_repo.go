package postgres

import (
	"context"
	"time"

	"github.com/dom/anivers/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type refreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *refreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Replace(ctx context.Context, userID uuid.UUID, token string) error {
	rec := &domain.RefreshToken{
		UserID:     userID,
		TokenValue: token,
		UpdatedAt:  time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_value", "updated_at"}),
	}).Create(rec).Error
	return translate(err)
}

func (r *refreshTokenRepository) GetByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var rec domain.RefreshToken
	err := r.db.WithContext(ctx).First(&rec, "token_value = ?", token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (r *refreshTokenRepository) DeleteByToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Delete(&domain.RefreshToken{}, "token_value = ?", token).Error
}
