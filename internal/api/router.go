package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nirmalyamohanty/redfitchat/internal/api/middleware"
	"github.com/nirmalyamohanty/redfitchat/internal/auth"
	"github.com/nirmalyamohanty/redfitchat/internal/chat"
	"github.com/nirmalyamohanty/redfitchat/internal/handlers"
	"github.com/nirmalyamohanty/redfitchat/internal/socket"
	"github.com/nirmalyamohanty/redfitchat/internal/store"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, svc *chat.Service, st store.DataStore, hub *socket.Hub, verifier *auth.Verifier) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024))
	r.Use(middleware.RequireJSON)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// CORS - browser clients connect from anywhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(svc, st, hub, verifier)
	authmw := middleware.NewAuthMiddleware(verifier)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Post("/auth/guest", h.CreateGuestSession)
	r.Get("/users/{id}", h.GetUser)

	// Realtime channel: credential verified during the upgrade handshake
	r.Get("/ws", hub.ServeWS)

	// Authenticated routes (require a session credential)
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth)

		r.Get("/presence", h.GetPresence)

		r.Get("/messages/global", h.GetGlobalHistory)
		r.Post("/messages/global", h.PostGlobalMessage)
		r.Get("/messages/personal/{chatID}", h.GetPersonalHistory)
		r.Post("/messages/personal/{chatID}", h.PostPersonalMessage)
		r.Post("/messages/{id}/report", h.ReportMessage)

		r.Get("/chats", h.ListChats)
		r.Post("/chats/with/{userID}", h.StartChat)

		r.Post("/users/{id}/block", h.BlockUser)
		r.Delete("/users/{id}/block", h.UnblockUser)
	})

	return r
}
