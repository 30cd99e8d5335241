package service_test

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"testing"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/service"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestListService_UpsertReplacesInPlace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User

	_, err := e.services.List.Upsert(ctx, user.ID, service.UpsertInput{
		ExternalID: "5114",
		Status:     "watching",
		Title:      strPtr("Fullmetal Alchemist: Brotherhood"),
	})
	require.NoError(t, err)

	list, err := e.services.List.Upsert(ctx, user.ID, service.UpsertInput{
		ExternalID: 5114,
		Status:     "completed",
	})
	require.NoError(t, err)

	require.Len(t, list, 1)
	assert.Equal(t, "5114", list[0].ExternalID)
	assert.Equal(t, domain.StatusCompleted, list[0].Status)
	assert.Equal(t, "Fullmetal Alchemist: Brotherhood", list[0].Title, "omitted fields keep their value")
}

func TestListService_UpsertKeepsInsertionOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User

	for _, id := range []string{"1", "2", "3"} {
		_, err := e.services.List.Upsert(ctx, user.ID, service.UpsertInput{ExternalID: id, Status: "planned"})
		require.NoError(t, err)
	}
	list, err := e.services.List.Upsert(ctx, user.ID, service.UpsertInput{ExternalID: "1", Status: "watching"})
	require.NoError(t, err)

	ids := make([]string, 0, len(list))
	for _, it := range list {
		ids = append(ids, it.ExternalID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestListService_UpsertValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User

	tests := []struct {
		name  string
		input service.UpsertInput
		field string
	}{
		{name: "missing id", input: service.UpsertInput{Status: "watching"}, field: "externalId"},
		{name: "blank id", input: service.UpsertInput{ExternalID: "  ", Status: "watching"}, field: "externalId"},
		{name: "missing status", input: service.UpsertInput{ExternalID: "1"}, field: "status"},
		{name: "removed status", input: service.UpsertInput{ExternalID: "1", Status: "on_hold"}, field: "status"},
		{name: "unknown status", input: service.UpsertInput{ExternalID: "1", Status: "binging"}, field: "status"},
		{name: "negative episodes", input: service.UpsertInput{ExternalID: "1", Status: "planned", EpisodesTotal: intPtr(-1)}, field: "episodesTotal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.services.List.Upsert(ctx, user.ID, tt.input)
			require.Error(t, err)

			var derr *domain.Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, domain.KindValidation, derr.Kind)
			assert.Contains(t, derr.Fields, tt.field)
		})
	}

	list, err := e.services.List.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListService_UpsertLargeNumericIDIsOneEntry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "big@example.com").User

	_, err := e.services.List.Upsert(ctx, user.ID, service.UpsertInput{ExternalID: "9007199254740993", Status: "watching"})
	require.NoError(t, err)

	list, err := e.services.List.Upsert(ctx, user.ID, service.UpsertInput{ExternalID: json.Number("9007199254740993"), Status: "completed"})
	require.NoError(t, err)

	require.Len(t, list, 1)
	assert.Equal(t, "9007199254740993", list[0].ExternalID)
	assert.Equal(t, domain.StatusCompleted, list[0].Status)
}

func TestListService_UnknownUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.services.List.Upsert(ctx, uuid.New(), service.UpsertInput{ExternalID: "1", Status: "planned"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.services.List.List(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListService_RemoveAbsentEntry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User

	before, err := e.services.List.Upsert(ctx, user.ID, service.UpsertInput{ExternalID: "21", Status: "watching"})
	require.NoError(t, err)

	after, err := e.services.List.Remove(ctx, user.ID, "5114")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	after, err = e.services.List.Remove(ctx, user.ID, 21)
	require.NoError(t, err)
	assert.NotNil(t, after)
	assert.Empty(t, after)
}

func TestListService_StatsMatchList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		id := strconv.Itoa(rng.Intn(15))
		if rng.Intn(4) == 0 {
			_, err := e.services.List.Remove(ctx, user.ID, id)
			require.NoError(t, err)
		} else {
			status := domain.AllStatuses[rng.Intn(len(domain.AllStatuses))]
			_, err := e.services.List.Upsert(ctx, user.ID, service.UpsertInput{ExternalID: id, Status: string(status)})
			require.NoError(t, err)
		}

		list, err := e.services.List.List(ctx, user.ID)
		require.NoError(t, err)
		stats, err := e.services.List.Stats(ctx, user.ID)
		require.NoError(t, err)

		assert.Equal(t, len(list), stats.Total)
		assert.Equal(t, stats.Total, stats.Watching+stats.Planned+stats.Completed+stats.Dropped)

		seen := map[string]bool{}
		for _, it := range list {
			assert.False(t, seen[it.ExternalID], "duplicate entry %s", it.ExternalID)
			seen[it.ExternalID] = true
		}
	}
}

func TestListService_ConcurrentUpsertsKeepOneEntry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := domain.AllStatuses[i%len(domain.AllStatuses)]
			_, err := e.services.List.Upsert(ctx, user.ID, service.UpsertInput{ExternalID: "5114", Status: string(status)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, err := e.services.List.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListService_Recent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.register(t, "a@example.com").User

	for _, id := range []string{"1", "2", "3"} {
		_, err := e.services.List.Upsert(ctx, user.ID, service.UpsertInput{ExternalID: id, Status: "planned"})
		require.NoError(t, err)
	}

	recent, err := e.services.List.Recent(ctx, user.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].ExternalID)
	assert.Equal(t, "2", recent[1].ExternalID)

	recent, err = e.services.List.Recent(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestScenario_RegisterLoginTrackStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.services.Auth.Register(ctx, service.RegisterInput{Email: "a@example.com", Password: "pass123"})
	require.NoError(t, err)
	login, err := e.services.Auth.Login(ctx, service.LoginInput{Email: "a@example.com", Password: "pass123"})
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, login.User.ID)
	userID := login.User.ID

	_, err = e.services.List.Upsert(ctx, userID, service.UpsertInput{
		ExternalID: "21",
		Status:     "watching",
		Title:      strPtr("One Piece"),
	})
	require.NoError(t, err)

	list, err := e.services.List.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "21", list[0].ExternalID)
	assert.Equal(t, domain.StatusWatching, list[0].Status)
	assert.Equal(t, "One Piece", list[0].Title)

	stats, err := e.services.List.Stats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, domain.ListStats{Total: 1, Watching: 1}, stats)
}
