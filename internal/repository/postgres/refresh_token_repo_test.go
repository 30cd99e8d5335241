package postgres_test

import (
	"context"
	"testing"

	"github.com/dom/anivers/internal/repository"
	"github.com/dom/anivers/internal/repository/postgres"
	"github.com/dom/anivers/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokenRepository_OnePerUser(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	users := postgres.NewUserRepository(testDB.DB)
	repo := postgres.NewRefreshTokenRepository(testDB.DB)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, users)

	require.NoError(t, repo.Replace(ctx, user.ID, "first"))
	require.NoError(t, repo.Replace(ctx, user.ID, "second"))

	_, err := repo.GetByToken(ctx, "first")
	assert.ErrorIs(t, err, repository.ErrNotFound, "replaced token is gone")

	rec, err := repo.GetByToken(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, user.ID, rec.UserID)

	var count int64
	require.NoError(t, testDB.DB.Table("refresh_tokens").Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRefreshTokenRepository_Delete(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	users := postgres.NewUserRepository(testDB.DB)
	repo := postgres.NewRefreshTokenRepository(testDB.DB)
	ctx := context.Background()

	alice, _ := testutil.NewUserBuilder().Build(t, users)
	bob, _ := testutil.NewUserBuilder().Build(t, users)

	require.NoError(t, repo.Replace(ctx, alice.ID, "alice-token"))
	require.NoError(t, repo.Replace(ctx, bob.ID, "bob-token"))

	require.NoError(t, repo.DeleteByToken(ctx, "alice-token"))
	require.NoError(t, repo.DeleteByToken(ctx, "alice-token"), "deleting twice is fine")
	require.NoError(t, repo.DeleteByToken(ctx, "never-issued"))

	_, err := repo.GetByToken(ctx, "alice-token")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetByToken(ctx, "bob-token")
	assert.NoError(t, err, "other users keep their sessions")
}
