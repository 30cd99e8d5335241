package handlers

import (
	"net/http"

	"github.com/dom/anivers/internal/api/render"
	"github.com/dom/anivers/internal/service"
	"github.com/go-chi/chi/v5"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
}

func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// Search forwards the query string to the catalog provider unchanged.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	body, err := h.catalogService.Search(r.Context(), r.URL.Query())
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.Raw(w, http.StatusOK, body)
}

func (h *CatalogHandler) Details(w http.ResponseWriter, r *http.Request) {
	body, err := h.catalogService.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.Raw(w, http.StatusOK, body)
}

// Player serves /player/{shikimoriId} as well as /player?shikimori_id= and
// /player?mal_id=.
func (h *CatalogHandler) Player(w http.ResponseWriter, r *http.Request) {
	q := service.PlayerQuery{
		ShikimoriID: chi.URLParam(r, "shikimoriId"),
		MALID:       r.URL.Query().Get("mal_id"),
	}
	if q.ShikimoriID == "" {
		q.ShikimoriID = r.URL.Query().Get("shikimori_id")
	}

	player, err := h.catalogService.Player(r.Context(), q)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, player)
}
