package api

import (
	"net/http"
	"time"

	"github.com/dom/anivers/internal/api/handlers"
	"github.com/dom/anivers/internal/api/middleware"
	"github.com/dom/anivers/internal/api/render"
	"github.com/dom/anivers/internal/config"
	"github.com/dom/anivers/internal/logging"
	"github.com/dom/anivers/internal/metrics"
	"github.com/dom/anivers/internal/service"
	"github.com/dom/anivers/internal/storage"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(services *service.Services, verifier middleware.AccessVerifier, images handlers.ImageStore, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	if cfg.UploadDir != "" {
		fs := http.StripPrefix(storage.PublicPrefix+"/", http.FileServer(http.Dir(cfg.UploadDir)))
		r.Handle(storage.PublicPrefix+"/*", fs)
	}

	authHandler := handlers.NewAuthHandler(services.Auth, handlers.CookieConfig{
		Secure: cfg.IsProduction(),
		MaxAge: cfg.JWTRefreshTTL,
		Path:   "/api",
	})
	listHandler := handlers.NewListHandler(services.List)
	profileHandler := handlers.NewProfileHandler(services.Profile, images, cfg.MaxUploadSize)
	catalogHandler := handlers.NewCatalogHandler(services.Catalog)

	requireAuth := middleware.Auth(verifier)

	r.Route("/api", func(r chi.Router) {
		// Session routes, rate limited per client IP
		r.Group(func(r chi.Router) {
			if cfg.RateLimitAuthPerMinute > 0 {
				r.Use(httprate.LimitByIP(cfg.RateLimitAuthPerMinute, time.Minute))
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/refresh", authHandler.Refresh)
		})

		// Catalog and player lookup
		r.Get("/anime", catalogHandler.Search)
		r.Get("/anime/{id}", catalogHandler.Details)
		r.Get("/player", catalogHandler.Player)
		r.Get("/player/{shikimoriId}", catalogHandler.Player)

		// Tracked list of the current user
		r.Route("/list", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", listHandler.Get)
			r.Post("/", listHandler.Upsert)
			r.Delete("/{externalId}", listHandler.Remove)
		})

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.Me)
				r.Put("/me", profileHandler.Update)
				r.Post("/me/avatar", profileHandler.UploadAvatar)
				r.Post("/me/cover", profileHandler.UploadCover)
				r.Get("/me/friend-requests", profileHandler.FriendRequests)
				r.Post("/{id}/request-friend", profileHandler.RequestFriend)
				r.Post("/{id}/accept-friend", profileHandler.AcceptFriend)
				r.Delete("/{id}/friend", profileHandler.RemoveFriend)
			})

			// Public profile reads; "me" resolves when a bearer token is sent
			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuth(verifier))
				r.Get("/{id}", profileHandler.Get)
				r.Get("/{id}/stats", listHandler.Stats)
				r.Get("/{id}/recent", listHandler.Recent)
				r.Get("/{id}/dynamics", listHandler.Dynamics)
			})
		})
	})

	return r
}
