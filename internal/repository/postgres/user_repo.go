package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	var users []*domain.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at ASC").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	res := r.db.WithContext(ctx).Model(user).Select("*").Omit("id", "created_at").Updates(user)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes the user together with everything that references it.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.TrackedItem{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.RefreshToken{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.Friendship{}, "user_id = ? OR friend_id = ?", id, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.FriendRequest{}, "from_user_id = ? OR to_user_id = ?", id, id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.User{}, "id = ?", id).Error
	})
}

// translate maps gorm errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	default:
		return err
	}
}
