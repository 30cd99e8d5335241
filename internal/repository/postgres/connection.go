package postgres

import (
	"time"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/logging"
	"github.com/dom/anivers/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table owned by this package, in migration order.
var Models = []interface{}{
	&domain.User{},
	&domain.RefreshToken{},
	&domain.TrackedItem{},
	&domain.Friendship{},
	&domain.FriendRequest{},
}

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.New(logging.GormWriter{}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the tables and the tracked item position sequence.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE SEQUENCE IF NOT EXISTS tracked_item_position_seq").Error; err != nil {
		return err
	}
	return db.AutoMigrate(Models...)
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:         NewUserRepository(db),
		RefreshToken: NewRefreshTokenRepository(db),
		TrackedItem:  NewTrackedItemRepository(db),
		Friend:       NewFriendRepository(db),
	}
}
