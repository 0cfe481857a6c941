package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Techmee-Digital/arkane/internal/api/handler"
	"github.com/Techmee-Digital/arkane/internal/api/middleware"
	"github.com/Techmee-Digital/arkane/internal/auth"
	"github.com/Techmee-Digital/arkane/internal/lead"
	"github.com/Techmee-Digital/arkane/internal/team"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger       handler.Pinger
	CachePinger    handler.Pinger
	Version        string
	AuthService    *auth.Service
	UserRepo       auth.UserRepository
	TeamRepo       team.Repository
	LeadRepo       lead.Repository
	DedupeService  handler.DedupeService
	MaxUploadBytes int64
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.CachePinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.AuthService))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSuperuser())

			teamHandler := handler.NewTeamHandler(deps.TeamRepo)
			r.Route("/teams", func(r chi.Router) {
				r.Post("/", teamHandler.Create)
				r.Get("/", teamHandler.List)
				r.Delete("/{id}", teamHandler.Delete)
			})

			userHandler := handler.NewUserHandler(deps.AuthService, deps.UserRepo, deps.TeamRepo)
			r.Route("/users", func(r chi.Router) {
				r.Post("/", userHandler.Create)
				r.Get("/", userHandler.List)
				r.Delete("/{id}", userHandler.Delete)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTeam())

			dedupeHandler := handler.NewDedupeHandler(deps.DedupeService, deps.MaxUploadBytes)
			r.Route("/dedupe", func(r chi.Router) {
				r.Post("/", dedupeHandler.Upload)
				r.Get("/{token}", dedupeHandler.Refresh)
				r.Post("/{token}/commit", dedupeHandler.Commit)
			})
			r.Post("/merge", dedupeHandler.Merge)

			leadHandler := handler.NewLeadHandler(deps.LeadRepo)
			r.Route("/leads", func(r chi.Router) {
				r.Get("/", leadHandler.List)
				r.Get("/search", leadHandler.Search)
				r.Get("/export", leadHandler.Export)
				r.Delete("/", leadHandler.Delete)
				r.Patch("/{id}", leadHandler.Update)
			})
		})
	})

	return r
}
