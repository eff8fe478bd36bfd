package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/promptvault/promptvault/internal/api/handlers"
	"github.com/promptvault/promptvault/internal/api/middleware"
	"github.com/promptvault/promptvault/internal/config"
	"github.com/promptvault/promptvault/internal/llm"
	"github.com/promptvault/promptvault/internal/store"
)

type Router struct {
	mux     *chi.Mux
	backend store.Backend
	redis   *redis.Client
	cfg     *config.Config
	gateway *llm.Gateway
}

func NewRouter(backend store.Backend, rdb *redis.Client, gw *llm.Gateway, cfg *config.Config) *Router {
	return &Router{
		mux:     chi.NewRouter(),
		backend: backend,
		redis:   rdb,
		cfg:     cfg,
		gateway: gw,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(rt.redis, rt.cfg.Redis.RateLimit)
	r.Use(rl.Limit)

	// Health endpoints
	health := handlers.NewHealthHandler(rt.backend, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		promptH := handlers.NewPromptHandler(rt.backend)
		r.Route("/prompts", func(r chi.Router) {
			r.Post("/", promptH.Create)
			r.Get("/", promptH.List)
			r.Get("/slug/{slug}", promptH.GetBySlug)
			r.Get("/{id}", promptH.Get)
			r.Patch("/{id}", promptH.Update)
			r.Delete("/{id}", promptH.Delete)
			r.Get("/{id}/versions", promptH.ListVersions)
			r.Get("/{id}/versions/{version}", promptH.GetVersion)
		})

		execH := handlers.NewExecutionHandler(rt.backend)
		r.Route("/executions", func(r chi.Router) {
			r.Get("/", execH.List)
			r.Get("/{id}", execH.Get)
		})
		r.Get("/usage", execH.Usage)

		if rt.gateway != nil {
			genH := handlers.NewGenerateHandler(rt.gateway)
			r.Post("/generate", genH.Generate)
			r.Get("/providers", genH.Providers)
		}
	})

	return r
}
