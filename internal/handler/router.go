package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authHandler "github.com/lumichat/backend/internal/handler/auth"
	messageHandler "github.com/lumichat/backend/internal/handler/message"
	sessionHandler "github.com/lumichat/backend/internal/handler/session"
	wsHandler "github.com/lumichat/backend/internal/handler/ws"
	"github.com/lumichat/backend/internal/hub"
	middlewarePkg "github.com/lumichat/backend/internal/middleware"
	authService "github.com/lumichat/backend/internal/service/auth"
	chatService "github.com/lumichat/backend/internal/service/chat"
)

// NewRouter wires HTTP and websocket routes to core services.
func NewRouter(chatSvc *chatService.Service, authSvc *authService.Service, h *hub.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	requireAdmin := middlewarePkg.RequireAdmin(authSvc)

	sessions := sessionHandler.New(chatSvc)
	messages := messageHandler.New(chatSvc, authSvc, h)
	accounts := authHandler.New(authSvc)
	sockets := wsHandler.New(h, authSvc)

	r.Route("/api", func(api chi.Router) {
		accounts.RegisterRoutes(api)
		sessions.RegisterRoutes(api, requireAdmin)
		messages.RegisterRoutes(api)
	})

	sockets.RegisterRoutes(r)

	return r
}
