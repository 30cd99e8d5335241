package handlers_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/dom/anivers/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogHandler_Search(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Get(ts.APIURL("/anime?q=one+piece&limit=5"))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Data  []map[string]interface{} `json:"data"`
		Query string                   `json:"query"`
	}
	testutil.AssertJSONResponse(t, resp, &body)
	require.Len(t, body.Data, 1)
	assert.Contains(t, body.Query, "limit=5")
	assert.Contains(t, body.Query, "q=one+piece")
}

func TestCatalogHandler_Details(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Get(ts.APIURL("/anime/21"))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"title":"One Piece"`)
	assert.NotContains(t, string(body), `"data"`)

	resp, err = http.Get(ts.APIURL("/anime/99999"))
	require.NoError(t, err)
	defer resp.Body.Close()
	testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "not_found")
}

func TestCatalogHandler_Player(t *testing.T) {
	ts := testutil.NewTestServer(t)

	for _, path := range []string{"/player/21", "/player?shikimori_id=21", "/player?mal_id=21"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(ts.APIURL(path))
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)
			var player struct {
				PlayerLink    string `json:"playerLink"`
				EpisodesTotal int    `json:"episodesTotal"`
				Title         string `json:"title"`
			}
			testutil.AssertJSONResponse(t, resp, &player)
			assert.Equal(t, "//kodik.test/serial/21", player.PlayerLink)
			assert.Equal(t, 1100, player.EpisodesTotal)
			assert.Equal(t, "One Piece", player.Title)
		})
	}

	resp, err := http.Get(ts.APIURL("/player/7"))
	require.NoError(t, err)
	defer resp.Body.Close()
	testutil.AssertErrorResponse(t, resp, http.StatusNotFound, "not_found")

	resp2, err := http.Get(ts.APIURL("/player"))
	require.NoError(t, err)
	defer resp2.Body.Close()
	testutil.AssertErrorResponse(t, resp2, http.StatusBadRequest, "validation")
}
