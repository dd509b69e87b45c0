package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "zchat/docs"
	"zchat/internal/config"
	"zchat/internal/logging"
	"zchat/internal/service"
	"zchat/internal/ws"
)

// Services bundles what the router exposes over HTTP.
type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Chats    *service.ChatService
	Messages *service.MessageService
}

// NewRouter constructs the main HTTP router and wires routes and middleware.
func NewRouter(cfg *config.Config, svc Services, hub *ws.Hub, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  logging.StdLogger(logger),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Device-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": cfg.AppName, "docs": "/docs/index.html"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "healthy",
			"connections": hub.Registry().Len(),
		})
	})

	// Swagger documentation
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(svc.Auth, logger))
			r.Post("/login", handleLogin(svc.Auth, logger))
			r.Post("/token/refresh", handleRefresh(svc.Auth, logger))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(svc.Auth, logger))

			r.Get("/auth/me", handleMe())

			r.Route("/users", func(r chi.Router) {
				r.Get("/", handleListUsers(svc.Users, logger))
				r.Get("/{userID}", handleGetUser(svc.Users, logger))
			})

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", handleListChats(svc.Chats, logger))
				r.Post("/private/{userID}", handleCreatePrivateChat(svc.Chats, logger))
				r.Post("/groups", handleCreateGroupChat(svc.Chats, logger))
				r.Get("/{chatID}", handleGetChat(svc.Chats, logger))
				r.Get("/{chatID}/members", handleListMembers(svc.Chats, logger))
				r.Post("/{chatID}/members", handleAddMembers(svc.Chats, logger))
				r.Get("/{chatID}/history", handleChatHistory(svc.Messages, logger))
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", handleCreateMessage(svc.Messages, logger))
				r.Get("/{messageID}", handleGetMessage(svc.Messages, logger))
			})
		})
	})

	// Live channel; sessions have no request timeout.
	r.Get("/ws/chats/{chatID}", ws.MakeHandler(hub, svc.Auth, svc.Chats, cfg.CORSOrigins, cfg.WriteTimeout, logger))

	return r
}
