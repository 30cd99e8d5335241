package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ProfileService owns the social side of a user: profile fields, uploaded
// image paths and the friend relation.
type ProfileService struct {
	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
}

func NewProfileService(userRepo repository.UserRepository, friendRepo repository.FriendRepository) *ProfileService {
	return &ProfileService{
		userRepo:   userRepo,
		friendRepo: friendRepo,
	}
}

// FriendSummary is what a profile page shows about each friend.
type FriendSummary struct {
	ID         uuid.UUID `json:"id"`
	Nickname   string    `json:"nickname"`
	AvatarPath string    `json:"avatarPath"`
	Badge      *string   `json:"badge"`
}

type Profile struct {
	User    domain.PublicUser `json:"user"`
	Friends []FriendSummary   `json:"friends"`
	// IsFriend and RequestPending describe the viewer's relation to User.
	// Both stay false for anonymous viewers and for the owner.
	IsFriend       bool `json:"isFriend"`
	RequestPending bool `json:"requestPending"`
}

// ProfileUpdate is a partial update; nil fields are left unchanged.
type ProfileUpdate struct {
	Nickname    *string             `json:"nickname" validate:"omitempty,max=64"`
	Bio         *string             `json:"bio" validate:"omitempty,max=1000"`
	AvatarPath  *string             `json:"avatarPath" validate:"omitempty,max=512"`
	CoverPath   *string             `json:"coverPath" validate:"omitempty,max=512"`
	SocialLinks *domain.SocialLinks `json:"socialLinks"`
	Badge       *string             `json:"badge" validate:"omitempty,max=64"`
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.ViewProfile(ctx, userID, uuid.Nil)
}

// ViewProfile is GetProfile as seen by viewerID; uuid.Nil is an anonymous viewer.
func (s *ProfileService) ViewProfile(ctx context.Context, userID, viewerID uuid.UUID) (*Profile, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids, err := s.friendRepo.ListFriendIDs(ctx, userID)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("list friends: %w", err))
	}
	friends, err := s.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: user.Public(), Friends: friends}
	if viewerID == uuid.Nil || viewerID == userID {
		return profile, nil
	}

	profile.IsFriend = containsID(ids, viewerID)
	if !profile.IsFriend {
		pending, err := s.friendRepo.ListRequestIDs(ctx, userID)
		if err != nil {
			return nil, domain.Internal(fmt.Errorf("list friend requests: %w", err))
		}
		profile.RequestPending = containsID(pending, viewerID)
	}
	return profile, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*domain.User, error) {
	if err := validateStruct(update); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Nickname != nil {
		user.Nickname = *update.Nickname
	}
	if update.Bio != nil {
		user.Bio = *update.Bio
	}
	if update.AvatarPath != nil {
		user.AvatarPath = *update.AvatarPath
	}
	if update.CoverPath != nil {
		user.CoverPath = *update.CoverPath
	}
	if update.SocialLinks != nil {
		user.SocialLinks = datatypes.NewJSONType(*update.SocialLinks)
	}
	if update.Badge != nil {
		if *update.Badge == "" {
			user.Badge = nil
		} else {
			badge := *update.Badge
			user.Badge = &badge
		}
	}

	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetAvatar records the storage path of a freshly uploaded avatar.
func (s *ProfileService) SetAvatar(ctx context.Context, userID uuid.UUID, path string) (*domain.User, error) {
	return s.UpdateProfile(ctx, userID, ProfileUpdate{AvatarPath: &path})
}

// SetCover records the storage path of a freshly uploaded cover image.
func (s *ProfileService) SetCover(ctx context.Context, userID uuid.UUID, path string) (*domain.User, error) {
	return s.UpdateProfile(ctx, userID, ProfileUpdate{CoverPath: &path})
}

// RequestFriend leaves a pending request from one user to another.
// Requesting someone who is already a friend does nothing.
func (s *ProfileService) RequestFriend(ctx context.Context, fromID, toID uuid.UUID) error {
	if fromID == toID {
		return domain.Validation("cannot befriend yourself", map[string]string{"id": "must not be your own id"})
	}
	if err := s.ensureUsers(ctx, fromID, toID); err != nil {
		return err
	}

	friends, err := s.friendRepo.ListFriendIDs(ctx, toID)
	if err != nil {
		return domain.Internal(err)
	}
	for _, id := range friends {
		if id == fromID {
			return nil
		}
	}

	if err := s.friendRepo.AddRequest(ctx, fromID, toID); err != nil {
		return domain.Internal(fmt.Errorf("add friend request: %w", err))
	}
	return nil
}

// AcceptFriend makes userID and fromID friends of each other.
func (s *ProfileService) AcceptFriend(ctx context.Context, userID, fromID uuid.UUID) error {
	if userID == fromID {
		return domain.Validation("cannot befriend yourself", map[string]string{"id": "must not be your own id"})
	}
	if err := s.ensureUsers(ctx, userID, fromID); err != nil {
		return err
	}
	if err := s.friendRepo.Befriend(ctx, userID, fromID); err != nil {
		return domain.Internal(fmt.Errorf("befriend: %w", err))
	}
	return nil
}

// RemoveFriend ends the friendship on both sides. It is idempotent.
func (s *ProfileService) RemoveFriend(ctx context.Context, userID, friendID uuid.UUID) error {
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}
	if err := s.friendRepo.Unfriend(ctx, userID, friendID); err != nil {
		return domain.Internal(fmt.Errorf("unfriend: %w", err))
	}
	if err := s.friendRepo.DeleteRequest(ctx, friendID, userID); err != nil {
		return domain.Internal(fmt.Errorf("delete friend request: %w", err))
	}
	return nil
}

// IncomingRequests lists users waiting for userID to accept them.
func (s *ProfileService) IncomingRequests(ctx context.Context, userID uuid.UUID) ([]FriendSummary, error) {
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}
	ids, err := s.friendRepo.ListRequestIDs(ctx, userID)
	if err != nil {
		return nil, domain.Internal(fmt.Errorf("list friend requests: %w", err))
	}
	return s.summaries(ctx, ids)
}

func (s *ProfileService) summaries(ctx context.Context, ids []uuid.UUID) ([]FriendSummary, error) {
	out := make([]FriendSummary, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, domain.Internal(err)
	}
	byID := make(map[uuid.UUID]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, FriendSummary{
			ID:         u.ID,
			Nickname:   u.Nickname,
			AvatarPath: u.AvatarPath,
			Badge:      u.Badge,
		})
	}
	return out, nil
}

func (s *ProfileService) getUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("user not found")
		}
		return nil, domain.Internal(err)
	}
	return user, nil
}

func (s *ProfileService) ensureUsers(ctx context.Context, ids ...uuid.UUID) error {
	for _, id := range ids {
		if _, err := s.getUser(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProfileService) save(ctx context.Context, user *domain.User) error {
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound("user not found")
		}
		return domain.Internal(fmt.Errorf("update user: %w", err))
	}
	return nil
}
