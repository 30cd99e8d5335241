package service

import (
	"github.com/dom/anivers/internal/repository"
	"github.com/dom/anivers/internal/token"
)

type Services struct {
	Auth    *AuthService
	List    *ListService
	Profile *ProfileService
	Catalog *CatalogService
}

// Deps carries what the services need beyond the repositories.
type Deps struct {
	Tokens     *token.Service
	Catalog    AnimeCatalog
	Players    PlayerFinder
	BcryptCost int
}

func NewServices(repos *repository.Repositories, deps Deps) *Services {
	refresh := token.NewRefreshStore(repos.RefreshToken)
	return &Services{
		Auth:    NewAuthService(repos.User, deps.Tokens, refresh, deps.BcryptCost),
		List:    NewListService(repos.User, repos.TrackedItem),
		Profile: NewProfileService(repos.User, repos.Friend),
		Catalog: NewCatalogService(deps.Catalog, deps.Players),
	}
}
