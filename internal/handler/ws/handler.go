package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lumichat/backend/internal/hub"
	authservice "github.com/lumichat/backend/internal/service/auth"
)

// Handler upgrades client connections and pumps their events into the
// hub.
type Handler struct {
	hub      *hub.Hub
	authSvc  *authservice.Service
	upgrader websocket.Upgrader
}

// New creates the websocket handler.
func New(h *hub.Hub, authSvc *authservice.Service) *Handler {
	return &Handler{
		hub:     h,
		authSvc: authSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Dashboards pass their bearer token at connect time so admin
	// events on this connection are authorized up front.
	admin := false
	if token := r.URL.Query().Get("token"); token != "" {
		if _, err := h.authSvc.VerifyToken(token); err == nil {
			admin = true
		}
	}

	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}

	conn := newWSConn(uuid.NewString(), sock)
	go conn.writePump()

	h.hub.Register(conn, admin)
	log.Printf("[websocket] connection %s opened (admin=%v)", conn.ID(), admin)

	defer func() {
		h.hub.Unregister(conn.ID())
		conn.close()
		log.Printf("[websocket] connection %s closed", conn.ID())
	}()

	sock.SetReadDeadline(time.Now().Add(pongWait))
	sock.SetPongHandler(func(string) error {
		sock.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev hub.InboundEvent
		if err := sock.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error on %s: %v", conn.ID(), err)
			}
			return
		}

		sock.SetReadDeadline(time.Now().Add(pongWait))

		if err := h.hub.HandleEvent(r.Context(), conn.ID(), ev); err != nil {
			// Already reported to the origin connection; keep serving.
			log.Printf("[websocket] event %s from %s rejected: %v", ev.Type, conn.ID(), err)
		}
	}
}
