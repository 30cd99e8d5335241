package external

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/dom/anivers/internal/domain"
	"github.com/goccy/go-json"
)

const kodikProvider = "kodik"

// Player is the playable source Kodik knows for a title.
type Player struct {
	PlayerLink    string          `json:"playerLink"`
	EpisodesTotal int             `json:"episodesTotal"`
	Title         *string         `json:"title"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

type KodikConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type KodikClient struct {
	baseURL string
	token   string
	fetch   *fetcher
}

func NewKodikClient(cfg KodikConfig, opts ...Option) *KodikClient {
	o := applyOptions(opts)
	return &KodikClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		fetch:   newFetcher(kodikProvider, cfg.Timeout, o.httpClient),
	}
}

// Configured reports whether an API token is set.
func (c *KodikClient) Configured() bool {
	return c.token != ""
}

type kodikResult struct {
	Link          string  `json:"link"`
	Title         *string `json:"title"`
	EpisodesTotal int     `json:"episodes_total"`
	EpisodesCount int     `json:"episodes_count"`
}

// FindPlayer returns the first Kodik result for shikimoriID.
func (c *KodikClient) FindPlayer(ctx context.Context, shikimoriID string) (*Player, error) {
	if !c.Configured() {
		return nil, domain.ExternalUnavailable("player lookup not configured", nil)
	}
	shikimoriID = strings.TrimSpace(shikimoriID)
	if shikimoriID == "" {
		return nil, domain.Validation("shikimori_id is required", map[string]string{"shikimori_id": "is required"})
	}

	q := url.Values{}
	q.Set("token", c.token)
	q.Set("shikimori_id", shikimoriID)
	q.Set("with_episodes", "true")

	body, err := c.fetch.get(ctx, c.baseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, translate(kodikProvider, err, "no player found for this anime")
	}

	var resp struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.ExternalUnavailable("kodik returned a malformed response", err)
	}
	if len(resp.Results) == 0 {
		return nil, domain.NotFound("no player found for this anime")
	}

	var first kodikResult
	if err := json.Unmarshal(resp.Results[0], &first); err != nil {
		return nil, domain.ExternalUnavailable("kodik returned a malformed response", err)
	}

	episodes := first.EpisodesTotal
	if episodes == 0 {
		episodes = first.EpisodesCount
	}
	if episodes == 0 {
		episodes = 1
	}

	return &Player{
		PlayerLink:    first.Link,
		EpisodesTotal: episodes,
		Title:         first.Title,
		Raw:           resp.Results[0],
	}, nil
}
