package api

import (
	"log/slog"
	"net/http"
	"time"

	"facet.views/config"
	"facet.views/internal/access"
	"facet.views/internal/crypto"
	"facet.views/internal/session"
	"facet.views/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	sloghttp "github.com/samber/slog-http"
)

func SetupRouter(s store.Store, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}

	codec := crypto.NewCodec(cfg.Auth.Secret)
	sessions := session.NewIssuer(codec.SessionKey())
	resolver := access.NewResolver(s, codec, sessions)
	h := NewHandler(s, cfg, codec, sessions, resolver)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(sloghttp.New(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.New(cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", ShareTokenHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler)

	// Rate limit tiers: moderate guards the endpoints an attacker would
	// use to enumerate tokens or guess passwords.
	passthrough := func(next http.Handler) http.Handler { return next }
	normal, moderate := passthrough, passthrough
	if cfg.RateLimit.Enabled {
		normal = NewRateLimiter(cfg.RateLimit.NormalPerMin, cfg.RateLimit.CacheSize).Middleware
		moderate = NewRateLimiter(cfg.RateLimit.ModeratePerMin, cfg.RateLimit.CacheSize).Middleware
	}

	// Health
	r.Get("/health", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/views", func(r chi.Router) {
			r.Post("/", h.CreateView)
			r.Patch("/{id}", h.UpdateView)
		})

		r.Route("/view/{slug}", func(r chi.Router) {
			r.With(normal).Get("/access", h.ViewAccess)
			r.With(normal).Get("/data", h.ViewData)
		})

		r.Route("/share", func(r chi.Router) {
			r.Post("/generate", h.ShareGenerate)
			r.Post("/revoke/{id}", h.ShareRevoke)
			r.Get("/list/{viewID}", h.ShareList)
			r.With(moderate).Post("/validate", h.ShareValidate)
		})

		r.Route("/password", func(r chi.Router) {
			r.With(moderate).Post("/check", h.PasswordCheck)
			r.Post("/set", h.PasswordSet)
		})
	})

	// Pages
	r.Get("/", h.Index)
	r.Get("/s/{token}", h.ShareEntry)
	r.Get("/v/{slug}", h.LegacyView)
	r.With(normal).Get("/{slug}", h.ViewPage)

	return r
}
