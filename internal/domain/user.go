package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	ID           uuid.UUID                       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email        string                          `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string                          `json:"-" gorm:"not null"`
	Nickname     string                          `json:"nickname" gorm:"not null;default:''"`
	Bio          string                          `json:"bio" gorm:"not null;default:''"`
	AvatarPath   string                          `json:"avatarPath" gorm:"not null;default:''"`
	CoverPath    string                          `json:"coverPath" gorm:"not null;default:''"`
	SocialLinks  datatypes.JSONType[SocialLinks] `json:"socialLinks" gorm:"type:jsonb"`
	Badge        *string                         `json:"badge"`
	CreatedAt    time.Time                       `json:"createdAt"`
	UpdatedAt    time.Time                       `json:"updatedAt"`
}

// SocialLinks are the optional external profile links shown on a user page.
type SocialLinks struct {
	Website  string `json:"website,omitempty" validate:"omitempty,url,max=255"`
	Telegram string `json:"telegram,omitempty" validate:"max=255"`
	Twitter  string `json:"twitter,omitempty" validate:"max=255"`
	VK       string `json:"vk,omitempty" validate:"max=255"`
	Discord  string `json:"discord,omitempty" validate:"max=255"`
}

// RefreshToken is the server-side record of the single live refresh token of a user.
type RefreshToken struct {
	UserID     uuid.UUID `json:"userId" gorm:"type:uuid;primary_key"`
	TokenValue string    `json:"-" gorm:"not null;uniqueIndex"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Friendship is one direction of the symmetric friend relation.
type Friendship struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	FriendID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

// FriendRequest is a pending request from one user to another.
type FriendRequest struct {
	FromUserID uuid.UUID `gorm:"type:uuid;primaryKey"`
	ToUserID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt  time.Time
}

// PublicUser is the view of a user that is safe to send to clients.
type PublicUser struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	Nickname    string      `json:"nickname"`
	Bio         string      `json:"bio"`
	AvatarPath  string      `json:"avatarPath"`
	CoverPath   string      `json:"coverPath"`
	SocialLinks SocialLinks `json:"socialLinks"`
	Badge       *string     `json:"badge"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		Nickname:    u.Nickname,
		Bio:         u.Bio,
		AvatarPath:  u.AvatarPath,
		CoverPath:   u.CoverPath,
		SocialLinks: u.SocialLinks.Data(),
		Badge:       u.Badge,
	}
}

// NormalizeEmail trims and lowercases an email so it can be used as a login key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
