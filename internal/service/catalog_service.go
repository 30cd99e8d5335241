package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/external"
	"github.com/goccy/go-json"
)

// AnimeCatalog is the read side of the anime catalog provider.
type AnimeCatalog interface {
	Search(ctx context.Context, query url.Values) (json.RawMessage, error)
	Details(ctx context.Context, id string) (json.RawMessage, error)
	ShikimoriID(ctx context.Context, malID string) (string, error)
}

// PlayerFinder finds an embeddable player for a Shikimori id.
type PlayerFinder interface {
	FindPlayer(ctx context.Context, shikimoriID string) (*external.Player, error)
}

type CatalogService struct {
	catalog AnimeCatalog
	players PlayerFinder
}

func NewCatalogService(catalog AnimeCatalog, players PlayerFinder) *CatalogService {
	return &CatalogService{catalog: catalog, players: players}
}

func (s *CatalogService) Search(ctx context.Context, query url.Values) (json.RawMessage, error) {
	return s.catalog.Search(ctx, query)
}

func (s *CatalogService) Details(ctx context.Context, id string) (json.RawMessage, error) {
	return s.catalog.Details(ctx, id)
}

// PlayerQuery names a title either by Shikimori id or, failing that, by its
// MyAnimeList id.
type PlayerQuery struct {
	ShikimoriID string
	MALID       string
}

func (s *CatalogService) Player(ctx context.Context, q PlayerQuery) (*external.Player, error) {
	shikimoriID := strings.TrimSpace(q.ShikimoriID)
	if shikimoriID == "" && strings.TrimSpace(q.MALID) != "" {
		id, err := s.catalog.ShikimoriID(ctx, q.MALID)
		if err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				return nil, domain.Validation("a shikimori_id is required to find a player",
					map[string]string{"shikimori_id": "could not be derived from mal_id"})
			}
			return nil, err
		}
		shikimoriID = id
	}
	if shikimoriID == "" {
		return nil, domain.Validation("a shikimori_id is required to find a player",
			map[string]string{"shikimori_id": "is required"})
	}
	return s.players.FindPlayer(ctx, shikimoriID)
}
