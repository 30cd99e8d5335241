package external_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/external"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

func TestJikan_SearchPassesQueryThrough(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/anime", r.URL.Path)
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"data":[{"mal_id":21}],"pagination":{}}`))
	}))
	defer srv.Close()

	c := external.NewJikanClient(external.JikanConfig{BaseURL: srv.URL, Timeout: time.Second})
	body, err := c.Search(context.Background(), url.Values{"q": {"one piece"}, "limit": {"5"}})
	require.NoError(t, err)

	assert.JSONEq(t, `{"data":[{"mal_id":21}],"pagination":{}}`, string(body))
	assert.Equal(t, "one piece", gotQuery.Get("q"))
	assert.Equal(t, "5", gotQuery.Get("limit"))
}

func TestJikan_DetailsUnwrapsData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/anime/21/full", r.URL.Path)
		w.Write([]byte(`{"data":{"mal_id":21,"title":"One Piece"}}`))
	}))
	defer srv.Close()

	c := external.NewJikanClient(external.JikanConfig{BaseURL: srv.URL, Timeout: time.Second})
	body, err := c.Details(context.Background(), "0021")
	require.NoError(t, err)
	assert.JSONEq(t, `{"mal_id":21,"title":"One Piece"}`, string(body))
}

func TestJikan_DetailsErrors(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		status int
		want   domain.Kind
	}{
		{name: "not numeric", id: "abc", status: http.StatusOK, want: domain.KindValidation},
		{name: "provider 404", id: "1", status: http.StatusNotFound, want: domain.KindNotFound},
		{name: "provider 500", id: "1", status: http.StatusInternalServerError, want: domain.KindExternalUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{}`))
			}))
			defer srv.Close()

			c := external.NewJikanClient(external.JikanConfig{BaseURL: srv.URL, Timeout: time.Second})
			_, err := c.Details(context.Background(), tt.id)
			require.Error(t, err)
			assert.Equal(t, tt.want, domain.KindOf(err))
		})
	}
}

func TestJikan_TimeoutIsExternalUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := external.NewJikanClient(external.JikanConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Search(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindExternalUnavailable, domain.KindOf(err))
}

func TestJikan_UsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"data":{"mal_id":5}}`))
	}))
	defer srv.Close()

	cache := &mapCache{data: map[string][]byte{}}
	c := external.NewJikanClient(external.JikanConfig{
		BaseURL:  srv.URL,
		Timeout:  time.Second,
		Cache:    cache,
		CacheTTL: time.Minute,
	})

	for i := 0; i < 3; i++ {
		_, err := c.Details(context.Background(), "5")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestJikan_ShikimoriID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/anime/21/full":
			w.Write([]byte(`{"data":{"external":[{"url":"https://example.com"},{"url":"https://shikimori.one/animes/z21-one-piece"}]}}`))
		default:
			w.Write([]byte(`{"data":{"external":[]}}`))
		}
	}))
	defer srv.Close()

	c := external.NewJikanClient(external.JikanConfig{BaseURL: srv.URL, Timeout: time.Second})

	id, err := c.ShikimoriID(context.Background(), "21")
	require.NoError(t, err)
	assert.Equal(t, "21", id)

	_, err = c.ShikimoriID(context.Background(), "22")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestKodik_FindPlayer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		assert.Equal(t, "true", r.URL.Query().Get("with_episodes"))

		switch r.URL.Query().Get("shikimori_id") {
		case "21":
			w.Write([]byte(`{"results":[{"link":"//kodik.info/serial/1","title":"Ван-Пис","episodes_count":12},{"link":"//other"}]}`))
		case "5":
			w.Write([]byte(`{"results":[{"link":"//kodik.info/video/5"}]}`))
		default:
			w.Write([]byte(`{"results":[]}`))
		}
	}))
	defer srv.Close()

	c := external.NewKodikClient(external.KodikConfig{BaseURL: srv.URL, Token: "secret", Timeout: time.Second})

	p, err := c.FindPlayer(context.Background(), "21")
	require.NoError(t, err)
	assert.Equal(t, "//kodik.info/serial/1", p.PlayerLink)
	assert.Equal(t, 12, p.EpisodesTotal)
	require.NotNil(t, p.Title)
	assert.Equal(t, "Ван-Пис", *p.Title)

	p, err = c.FindPlayer(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, 1, p.EpisodesTotal)
	assert.Nil(t, p.Title)

	_, err = c.FindPlayer(context.Background(), "999")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestKodik_NotConfigured(t *testing.T) {
	c := external.NewKodikClient(external.KodikConfig{BaseURL: "http://127.0.0.1:1"})
	assert.False(t, c.Configured())

	_, err := c.FindPlayer(context.Background(), "21")
	require.Error(t, err)
	assert.Equal(t, domain.KindExternalUnavailable, domain.KindOf(err))
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := external.NewKodikClient(external.KodikConfig{BaseURL: srv.URL, Token: "t", Timeout: time.Second})
	for i := 0; i < 8; i++ {
		_, err := c.FindPlayer(context.Background(), "1")
		assert.Equal(t, domain.KindExternalUnavailable, domain.KindOf(err))
	}
	assert.Equal(t, int32(5), calls.Load())
}

func TestBreakerIgnoresCanceledCallers(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		started <- struct{}{}
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := external.NewKodikClient(external.KodikConfig{BaseURL: srv.URL, Token: "t", Timeout: 5 * time.Second})
	for i := 0; i < 8; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()
		_, err := c.FindPlayer(ctx, "1")
		assert.Equal(t, domain.KindExternalUnavailable, domain.KindOf(err))
		cancel()
	}

	assert.Equal(t, int32(8), calls.Load(), "canceled calls do not open the breaker")
}
