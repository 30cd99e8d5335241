package service_test

import (
	"context"
	"testing"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_UpdateIsPartial(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User

	_, err := e.services.Profile.UpdateProfile(ctx, user.ID, service.ProfileUpdate{
		Nickname: strPtr("luffy"),
		Bio:      strPtr("pirate king"),
		SocialLinks: &domain.SocialLinks{
			Website:  "https://example.com",
			Telegram: "@luffy",
		},
		Badge: strPtr("founder"),
	})
	require.NoError(t, err)

	updated, err := e.services.Profile.UpdateProfile(ctx, user.ID, service.ProfileUpdate{
		Bio: strPtr("still pirate king"),
	})
	require.NoError(t, err)

	assert.Equal(t, "luffy", updated.Nickname)
	assert.Equal(t, "still pirate king", updated.Bio)
	assert.Equal(t, "@luffy", updated.SocialLinks.Data().Telegram)
	require.NotNil(t, updated.Badge)
	assert.Equal(t, "founder", *updated.Badge)

	cleared, err := e.services.Profile.UpdateProfile(ctx, user.ID, service.ProfileUpdate{Badge: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.Badge)
}

func TestProfileService_UpdateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User

	_, err := e.services.Profile.UpdateProfile(ctx, user.ID, service.ProfileUpdate{
		SocialLinks: &domain.SocialLinks{Website: "not a url"},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	long := make([]byte, 65)
	for i := range long {
		long[i] = 'x'
	}
	_, err = e.services.Profile.UpdateProfile(ctx, user.ID, service.ProfileUpdate{Nickname: strPtr(string(long))})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.services.Profile.UpdateProfile(ctx, uuid.New(), service.ProfileUpdate{Bio: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProfileService_SetImages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User

	_, err := e.services.Profile.SetAvatar(ctx, user.ID, "/uploads/avatar.png")
	require.NoError(t, err)
	u, err := e.services.Profile.SetCover(ctx, user.ID, "/uploads/cover.jpg")
	require.NoError(t, err)

	assert.Equal(t, "/uploads/avatar.png", u.AvatarPath)
	assert.Equal(t, "/uploads/cover.jpg", u.CoverPath)
}

func TestProfileService_FriendFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "alice@example.com").User
	bob := e.register(t, "bob@example.com").User

	_, err := e.services.Profile.UpdateProfile(ctx, alice.ID, service.ProfileUpdate{Nickname: strPtr("alice")})
	require.NoError(t, err)

	require.NoError(t, e.services.Profile.RequestFriend(ctx, alice.ID, bob.ID))
	require.NoError(t, e.services.Profile.RequestFriend(ctx, alice.ID, bob.ID), "repeating a request is harmless")

	incoming, err := e.services.Profile.IncomingRequests(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, alice.ID, incoming[0].ID)
	assert.Equal(t, "alice", incoming[0].Nickname)

	require.NoError(t, e.services.Profile.AcceptFriend(ctx, bob.ID, alice.ID))

	incoming, err = e.services.Profile.IncomingRequests(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, incoming)

	for _, pair := range [][2]uuid.UUID{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		p, err := e.services.Profile.GetProfile(ctx, pair[0])
		require.NoError(t, err)
		require.Len(t, p.Friends, 1)
		assert.Equal(t, pair[1], p.Friends[0].ID)
	}

	require.NoError(t, e.services.Profile.RemoveFriend(ctx, alice.ID, bob.ID))
	require.NoError(t, e.services.Profile.RemoveFriend(ctx, alice.ID, bob.ID))

	p, err := e.services.Profile.GetProfile(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, p.Friends)
}

func TestProfileService_ViewProfileRelation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "alice@example.com").User
	bob := e.register(t, "bob@example.com").User
	carol := e.register(t, "carol@example.com").User

	require.NoError(t, e.services.Profile.RequestFriend(ctx, alice.ID, bob.ID))

	p, err := e.services.Profile.ViewProfile(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, p.IsFriend)
	assert.True(t, p.RequestPending)

	p, err = e.services.Profile.ViewProfile(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, p.RequestPending, "only the requester sees the request as pending")

	p, err = e.services.Profile.ViewProfile(ctx, bob.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, p.IsFriend)
	assert.False(t, p.RequestPending)

	require.NoError(t, e.services.Profile.AcceptFriend(ctx, bob.ID, alice.ID))

	p, err = e.services.Profile.ViewProfile(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, p.IsFriend)
	assert.False(t, p.RequestPending)

	p, err = e.services.Profile.ViewProfile(ctx, bob.ID, uuid.Nil)
	require.NoError(t, err)
	assert.False(t, p.IsFriend)
}

func TestProfileService_SelfFriendship(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User

	assert.ErrorIs(t, e.services.Profile.RequestFriend(ctx, user.ID, user.ID), domain.ErrValidation)
	assert.ErrorIs(t, e.services.Profile.AcceptFriend(ctx, user.ID, user.ID), domain.ErrValidation)
}

func TestProfileService_FriendUnknownUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User

	assert.ErrorIs(t, e.services.Profile.RequestFriend(ctx, user.ID, uuid.New()), domain.ErrNotFound)
	assert.ErrorIs(t, e.services.Profile.AcceptFriend(ctx, user.ID, uuid.New()), domain.ErrNotFound)
}

func TestProfileService_PublicProfileHidesSecrets(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User

	p, err := e.services.Profile.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.User.ID)
	assert.NotNil(t, p.Friends)
}
