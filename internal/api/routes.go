package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Routes builds the chi router. allowedOrigins feeds the CORS policy.
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(h.RequestContext)
	r.Use(h.AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(h.metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Post("/add_user", h.handleAddUser)
	r.Post("/verify_user", h.handleVerifyUser)
	r.Get("/users", h.handleListUsers)

	r.Route("/{username}", func(r chi.Router) {
		r.Get("/messages", h.handleInbox)
		r.Post("/messages", h.handleSendMessage)
		r.Get("/messages/{id}", h.handleGetMessage)

		r.Get("/archive", h.handleArchivedMessages)
		r.Post("/archive", h.handleArchiveMessage)

		r.Get("/conversation/{other}", h.handleConversation)
	})

	return r
}
