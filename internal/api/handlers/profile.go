package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/dom/anivers/internal/api/middleware"
	"github.com/dom/anivers/internal/api/render"
	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/logging"
	"github.com/dom/anivers/internal/service"
	"github.com/dom/anivers/internal/storage"
	"github.com/google/uuid"
)

// ImageStore persists uploaded images and hands back their public path.
type ImageStore interface {
	SaveImage(kind string, r io.Reader) (string, error)
	Remove(publicPath string) error
}

type ProfileHandler struct {
	profileService *service.ProfileService
	images         ImageStore
	maxUploadSize  int64
}

func NewProfileHandler(profileService *service.ProfileService, images ImageStore, maxUploadSize int64) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		images:         images,
		maxUploadSize:  maxUploadSize,
	}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	viewerID, _ := middleware.GetUserID(r.Context())
	profile, err := h.profileService.ViewProfile(r.Context(), userID, viewerID)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		render.Error(w, r, domain.Unauthenticated())
		return
	}

	var req service.ProfileUpdate
	if err := render.DecodeJSON(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	user, err := h.profileService.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, user.Public())
}

func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, "avatar", "avatars", h.profileService.SetAvatar, func(u domain.PublicUser) string { return u.AvatarPath })
}

func (h *ProfileHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, "cover", "covers", h.profileService.SetCover, func(u domain.PublicUser) string { return u.CoverPath })
}

type setImageFunc func(ctx context.Context, userID uuid.UUID, path string) (*domain.User, error)

func (h *ProfileHandler) upload(w http.ResponseWriter, r *http.Request, field, kind string, set setImageFunc, imageOf func(domain.PublicUser) string) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		render.Error(w, r, domain.Unauthenticated())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			render.Error(w, r, domain.Validation("upload too large", map[string]string{field: "file is too large"}))
			return
		}
		render.Error(w, r, domain.Validation("invalid multipart upload", map[string]string{field: "is required"}))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile(field)
	if err != nil {
		render.Error(w, r, domain.Validation("no file provided", map[string]string{field: "is required"}))
		return
	}
	defer file.Close()

	before, err := h.profileService.GetProfile(r.Context(), userID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	path, err := h.images.SaveImage(kind, file)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	user, err := set(r.Context(), userID, path)
	if err != nil {
		_ = h.images.Remove(path)
		render.Error(w, r, err)
		return
	}

	// The replaced image is unreachable from now on.
	if previous := imageOf(before.User); previous != "" && previous != path {
		if err := h.images.Remove(previous); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("path", previous).Msg("failed to remove replaced image")
		}
	}

	render.JSON(w, http.StatusOK, user.Public())
}

func (h *ProfileHandler) RequestFriend(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, h.profileService.RequestFriend)
}

func (h *ProfileHandler) AcceptFriend(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, h.profileService.AcceptFriend)
}

func (h *ProfileHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	h.friendAction(w, r, h.profileService.RemoveFriend)
}

func (h *ProfileHandler) friendAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, userID, otherID uuid.UUID) error) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		render.Error(w, r, domain.Unauthenticated())
		return
	}
	otherID, err := userIDParam(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if err := action(r.Context(), userID, otherID); err != nil {
		render.Error(w, r, err)
		return
	}

	profile, err := h.profileService.GetProfile(r.Context(), userID)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) FriendRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		render.Error(w, r, domain.Unauthenticated())
		return
	}

	requests, err := h.profileService.IncomingRequests(r.Context(), userID)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	render.JSON(w, http.StatusOK, requests)
}

var _ ImageStore = (*storage.LocalStore)(nil)
