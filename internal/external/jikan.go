package external

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dom/anivers/internal/domain"
	"github.com/goccy/go-json"
)

const jikanProvider = "jikan"

// JikanClient proxies catalog reads to the Jikan v4 API.
type JikanClient struct {
	baseURL string
	fetch   *fetcher
	cache   Cache
	ttl     time.Duration
}

type JikanConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Cache    Cache
	CacheTTL time.Duration
}

func NewJikanClient(cfg JikanConfig, opts ...Option) *JikanClient {
	o := applyOptions(opts)
	cache := cfg.Cache
	if cache == nil {
		cache = NoCache()
	}
	return &JikanClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		fetch:   newFetcher(jikanProvider, cfg.Timeout, o.httpClient),
		cache:   cache,
		ttl:     cfg.CacheTTL,
	}
}

// Search passes query through to /anime and returns Jikan's body untouched.
func (c *JikanClient) Search(ctx context.Context, query url.Values) (json.RawMessage, error) {
	u := c.baseURL + "/anime"
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	body, err := c.cachedGet(ctx, "search:"+query.Encode(), u)
	if err != nil {
		return nil, translate(jikanProvider, err, "anime not found")
	}
	return body, nil
}

// Details returns the "data" member of /anime/{id}/full.
func (c *JikanClient) Details(ctx context.Context, id string) (json.RawMessage, error) {
	id = domain.NormalizeExternalID(id)
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return nil, domain.Validation("invalid anime id", map[string]string{"id": "must be a positive number"})
	}

	body, err := c.cachedGet(ctx, "details:"+id, c.baseURL+"/anime/"+id+"/full")
	if err != nil {
		return nil, translate(jikanProvider, err, "anime not found")
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domain.ExternalUnavailable("jikan returned a malformed response", err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, domain.NotFound("anime not found")
	}
	return envelope.Data, nil
}

var (
	shikimoriAnimeURL = regexp.MustCompile(`(?i)shikimori\.[^/]+/(?:animes|anime)/[a-z]*(\d+)`)
	shikimoriAnyURL   = regexp.MustCompile(`(?i)shikimori\.[^/]+/.*?(\d{3,})`)
)

// ShikimoriID looks up the Shikimori id of a MyAnimeList id through the
// external links Jikan lists for the title.
func (c *JikanClient) ShikimoriID(ctx context.Context, malID string) (string, error) {
	details, err := c.Details(ctx, malID)
	if err != nil {
		return "", err
	}

	var anime struct {
		External []struct {
			URL string `json:"url"`
		} `json:"external"`
	}
	if err := json.Unmarshal(details, &anime); err != nil {
		return "", domain.ExternalUnavailable("jikan returned a malformed response", err)
	}

	for _, ext := range anime.External {
		if m := shikimoriAnimeURL.FindStringSubmatch(ext.URL); m != nil {
			return m[1], nil
		}
		if m := shikimoriAnyURL.FindStringSubmatch(ext.URL); m != nil {
			return m[1], nil
		}
	}
	return "", domain.NotFound("no shikimori id known for this anime")
}

func (c *JikanClient) cachedGet(ctx context.Context, key, rawURL string) ([]byte, error) {
	if body, ok := c.cache.Get(ctx, key); ok {
		return body, nil
	}
	body, err := c.fetch.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if c.ttl > 0 {
		c.cache.Set(ctx, key, body, c.ttl)
	}
	return body, nil
}
