package handlers

import (
	"net/http"
	"time"

	"github.com/dom/anivers/internal/api/middleware"
	"github.com/dom/anivers/internal/api/render"
	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/service"
)

// RefreshCookieName carries the refresh token between browser and API.
const RefreshCookieName = "refreshToken"

// CookieConfig controls the refresh cookie attributes.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
	Path   string
}

type AuthHandler struct {
	authService *service.AuthService
	cookie      CookieConfig
}

func NewAuthHandler(authService *service.AuthService, cookie CookieConfig) *AuthHandler {
	if cookie.Path == "" {
		cookie.Path = "/api"
	}
	return &AuthHandler{authService: authService, cookie: cookie}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	User         domain.PublicUser `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := render.DecodeJSON(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	h.respondSession(w, http.StatusCreated, result)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	h.respondSession(w, http.StatusOK, result)
}

// Logout revokes the session named by the refresh cookie and clears it.
// It succeeds even without a cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.Logout(r.Context(), refreshCookie(r))
	h.clearCookie(w)
	render.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := h.authService.Refresh(r.Context(), refreshCookie(r))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	h.respondSession(w, http.StatusOK, result)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		render.Error(w, r, domain.Unauthenticated())
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, user.Public())
}

func (h *AuthHandler) respondSession(w http.ResponseWriter, status int, result *service.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    result.RefreshToken,
		Path:     h.cookie.Path,
		MaxAge:   int(h.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	render.JSON(w, status, AuthResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         result.User.Public(),
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     h.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func refreshCookie(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
