package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listItem struct {
	ExternalID    string `json:"externalId"`
	Title         string `json:"title"`
	PosterURL     string `json:"posterUrl"`
	EpisodesTotal *int   `json:"episodesTotal"`
	Status        string `json:"status"`
}

func doJSON(t *testing.T, req *http.Request, v interface{}) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if v != nil {
		require.Equal(t, http.StatusOK, resp.StatusCode)
		testutil.AssertJSONResponse(t, resp, v)
	}
	return resp
}

func TestListHandler_RequiresAuth(t *testing.T) {
	ts := testutil.NewTestServer(t)

	for _, req := range []*http.Request{
		testutil.AuthedRequest(t, http.MethodGet, ts.APIURL("/list"), "", nil),
		testutil.AuthedRequest(t, http.MethodPost, ts.APIURL("/list"), "", map[string]string{"externalId": "1", "status": "planned"}),
		testutil.AuthedRequest(t, http.MethodDelete, ts.APIURL("/list/1"), "", nil),
		testutil.AuthedRequest(t, http.MethodGet, ts.APIURL("/list"), "not-a-token", nil),
	} {
		resp := doJSON(t, req, nil)
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "unauthenticated")
	}
}

func TestListHandler_UpsertAcceptsAllIdShapes(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	bodies := []map[string]interface{}{
		{"externalId": "21", "status": "planned", "title": "One Piece"},
		{"shikimori_id": 21, "status": "watching"},
		{"mal_id": "0021", "status": "watching", "animeData": map[string]interface{}{"poster_url": "https://img/21.jpg", "episodes_total": 1100}},
		{"animeData": map[string]interface{}{"mal_id": 5114, "title": "FMA:B"}, "status": "completed"},
	}

	var list []listItem
	for _, body := range bodies {
		list = nil
		doJSON(t, testutil.AuthedRequest(t, http.MethodPost, ts.APIURL("/list"), token, body), &list)
	}

	require.Len(t, list, 2)
	assert.Equal(t, "21", list[0].ExternalID)
	assert.Equal(t, "watching", list[0].Status)
	assert.Equal(t, "One Piece", list[0].Title)
	assert.Equal(t, "https://img/21.jpg", list[0].PosterURL)
	require.NotNil(t, list[0].EpisodesTotal)
	assert.Equal(t, 1100, *list[0].EpisodesTotal)

	assert.Equal(t, "5114", list[1].ExternalID)
	assert.Equal(t, "completed", list[1].Status)
	assert.Equal(t, "FMA:B", list[1].Title)
}

func TestListHandler_UpsertLargeNumericID(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	var list []listItem
	doJSON(t, testutil.AuthedRequest(t, http.MethodPost, ts.APIURL("/list"), token,
		map[string]interface{}{"externalId": "9007199254740993", "status": "watching"}), &list)

	list = nil
	doJSON(t, testutil.AuthedRequest(t, http.MethodPost, ts.APIURL("/list"), token,
		map[string]interface{}{"externalId": json.Number("9007199254740993"), "status": "completed"}), &list)

	require.Len(t, list, 1)
	assert.Equal(t, "9007199254740993", list[0].ExternalID)
	assert.Equal(t, "completed", list[0].Status)
}

func TestListHandler_UpsertValidation(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	tests := []struct {
		name  string
		body  map[string]interface{}
		field string
	}{
		{name: "no id", body: map[string]interface{}{"status": "watching"}, field: "externalId"},
		{name: "no status", body: map[string]interface{}{"externalId": "1"}, field: "status"},
		{name: "on_hold is gone", body: map[string]interface{}{"externalId": "1", "status": "on_hold"}, field: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, testutil.AuthedRequest(t, http.MethodPost, ts.APIURL("/list"), token, tt.body), nil)
			body := testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "validation")
			assert.Contains(t, body.Fields, tt.field)
		})
	}
}

func TestListHandler_Remove(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	var list []listItem
	doJSON(t, testutil.AuthedRequest(t, http.MethodPost, ts.APIURL("/list"), token,
		map[string]string{"externalId": "21", "status": "watching"}), &list)
	require.Len(t, list, 1)

	list = nil
	doJSON(t, testutil.AuthedRequest(t, http.MethodDelete, ts.APIURL("/list/5114"), token, nil), &list)
	assert.Len(t, list, 1, "removing an absent id leaves the list unchanged")

	list = nil
	doJSON(t, testutil.AuthedRequest(t, http.MethodDelete, ts.APIURL("/list/21"), token, nil), &list)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListHandler_StatsRecentDynamics(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, token := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	for _, body := range []map[string]string{
		{"externalId": "1", "status": "watching"},
		{"externalId": "2", "status": "completed"},
		{"externalId": "3", "status": "completed"},
	} {
		doJSON(t, testutil.AuthedRequest(t, http.MethodPost, ts.APIURL("/list"), token, body), &[]listItem{})
	}

	var stats domain.ListStats
	doJSON(t, testutil.AuthedRequest(t, http.MethodGet, ts.APIURL("/users/"+user.ID.String()+"/stats"), "", nil), &stats)
	assert.Equal(t, domain.ListStats{Total: 3, Watching: 1, Completed: 2}, stats)

	var mine domain.ListStats
	doJSON(t, testutil.AuthedRequest(t, http.MethodGet, ts.APIURL("/users/me/stats"), token, nil), &mine)
	assert.Equal(t, stats, mine)

	var recent []listItem
	doJSON(t, testutil.AuthedRequest(t, http.MethodGet, ts.APIURL("/users/"+user.ID.String()+"/recent?limit=2"), "", nil), &recent)
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].ExternalID)

	var dynamics []domain.DailyActivity
	doJSON(t, testutil.AuthedRequest(t, http.MethodGet, ts.APIURL("/users/"+user.ID.String()+"/dynamics?days=7"), "", nil), &dynamics)
	require.Len(t, dynamics, 7)
	assert.Equal(t, 3, dynamics[6].Count)

	resp := doJSON(t, testutil.AuthedRequest(t, http.MethodGet, ts.APIURL("/users/me/stats"), "", nil), nil)
	testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "unauthenticated")

	resp = doJSON(t, testutil.AuthedRequest(t, http.MethodGet, ts.APIURL("/users/not-a-uuid/stats"), "", nil), nil)
	testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "not_found")
}
