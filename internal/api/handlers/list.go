package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dom/anivers/internal/api/middleware"
	"github.com/dom/anivers/internal/api/render"
	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ListHandler struct {
	listService *service.ListService
}

func NewListHandler(listService *service.ListService) *ListHandler {
	return &ListHandler{listService: listService}
}

// AnimeData is the older nested shape some clients still send.
type AnimeData struct {
	MalID         interface{} `json:"mal_id"`
	ShikimoriID   interface{} `json:"shikimori_id"`
	Title         *string     `json:"title"`
	PosterURL     *string     `json:"poster_url"`
	EpisodesTotal *int        `json:"episodes_total"`
}

// UpsertRequest accepts the catalog id under any of the names clients use.
type UpsertRequest struct {
	ExternalID    interface{} `json:"externalId"`
	ShikimoriID   interface{} `json:"shikimori_id"`
	MalID         interface{} `json:"mal_id"`
	Status        string      `json:"status"`
	Title         *string     `json:"title"`
	PosterURL     *string     `json:"posterUrl"`
	EpisodesTotal *int        `json:"episodesTotal"`
	AnimeData     *AnimeData  `json:"animeData"`
}

func (req UpsertRequest) toInput() service.UpsertInput {
	in := service.UpsertInput{
		ExternalID:    firstID(req.ExternalID, req.ShikimoriID, req.MalID),
		Status:        req.Status,
		Title:         req.Title,
		PosterURL:     req.PosterURL,
		EpisodesTotal: req.EpisodesTotal,
	}
	if d := req.AnimeData; d != nil {
		if in.ExternalID == nil {
			in.ExternalID = firstID(d.MalID, d.ShikimoriID)
		}
		if in.Title == nil {
			in.Title = d.Title
		}
		if in.PosterURL == nil {
			in.PosterURL = d.PosterURL
		}
		if in.EpisodesTotal == nil {
			in.EpisodesTotal = d.EpisodesTotal
		}
	}
	return in
}

func firstID(candidates ...interface{}) interface{} {
	for _, c := range candidates {
		if domain.NormalizeExternalID(c) != "" {
			return c
		}
	}
	return nil
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		render.Error(w, r, domain.Unauthenticated())
		return
	}

	items, err := h.listService.List(r.Context(), userID)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, items)
}

func (h *ListHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		render.Error(w, r, domain.Unauthenticated())
		return
	}

	var req UpsertRequest
	if err := render.DecodeJSON(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	items, err := h.listService.Upsert(r.Context(), userID, req.toInput())
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, items)
}

func (h *ListHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		render.Error(w, r, domain.Unauthenticated())
		return
	}

	items, err := h.listService.Remove(r.Context(), userID, chi.URLParam(r, "externalId"))
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, items)
}

// Stats is public: anyone may look at another user's counters.
func (h *ListHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	stats, err := h.listService.Stats(r.Context(), userID)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, stats)
}

func (h *ListHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.listService.Recent(r.Context(), userID, limit)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, items)
}

func (h *ListHandler) Dynamics(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	points, err := h.listService.Dynamics(r.Context(), userID, days, time.Now())
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, points)
}

func userIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	if raw == "me" {
		if id, ok := middleware.GetUserID(r.Context()); ok {
			return id, nil
		}
		return uuid.Nil, domain.Unauthenticated()
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NotFound("user not found")
	}
	return id, nil
}
