package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"familycart/internal/metrics"
	"familycart/internal/security"
	"familycart/internal/service"
)

// RouterConfig carries everything the HTTP surface depends on
type RouterConfig struct {
	AuthService       *service.AuthService
	FamilyService     *service.FamilyService
	InvitationService *service.InvitationService
	ListService       *service.ListService
	AuthLimiter       *security.RateLimiter
	Metrics           *metrics.Metrics
	Logger            logrus.FieldLogger
	ClientOrigin      string
	MetricsEnabled    bool
}

// NewRouter builds the API routes
func NewRouter(cfg RouterConfig) http.Handler {
	middleware := NewMiddleware(cfg.AuthService, cfg.Metrics, cfg.Logger)
	authHandler := NewAuthHandler(cfg.AuthService)
	familyHandler := NewFamilyHandler(cfg.FamilyService)
	inviteHandler := NewInviteHandler(cfg.InvitationService)
	listHandler := NewListHandler(cfg.ListService)
	itemHandler := NewItemHandler(cfg.ListService)

	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logging)
	router.Use(middleware.Metrics)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.ClientOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	})
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if cfg.MetricsEnabled {
		router.Handle("/metrics", cfg.Metrics.Handler())
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, r, http.StatusNotFound, ErrNotFound, "", nil)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", "", nil)
	})

	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.AuthLimiter))

			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/auth/me", authHandler.Me)

			r.Get("/families/me", familyHandler.GetMine)
			r.Post("/families", familyHandler.Create)
			r.Post("/families/leave", familyHandler.Leave)
			r.Delete("/families", familyHandler.Delete)

			r.Post("/invites", inviteHandler.Issue)
			r.Get("/invites/my", inviteHandler.ListMine)
			r.Get("/invites/sent", inviteHandler.ListSent)
			r.Post("/invites/accept", inviteHandler.Accept)

			r.Get("/lists/active", listHandler.Active)
			r.Post("/lists/weekly-reset", listHandler.WeeklyReset)
			r.Get("/lists/archives", listHandler.Archives)

			r.Post("/items", itemHandler.Add)
			r.Patch("/items/{id}", itemHandler.Update)
			r.Patch("/items/{id}/toggle", itemHandler.Toggle)
			r.Delete("/items/{id}", itemHandler.Delete)
		})
	})

	return router
}
