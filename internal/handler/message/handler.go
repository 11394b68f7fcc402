package message

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lumichat/backend/internal/hub"
	"github.com/lumichat/backend/internal/model/chat"
	authservice "github.com/lumichat/backend/internal/service/auth"
	chatservice "github.com/lumichat/backend/internal/service/chat"
	"github.com/lumichat/backend/pkg/utils"
)

// Handler serves the message log REST surface. Messages created here
// are also fanned out through the hub so live websocket members see
// them without re-fetching.
type Handler struct {
	chatSvc *chatservice.Service
	authSvc *authservice.Service
	hub     *hub.Hub
}

// New creates the message handler.
func New(chatSvc *chatservice.Service, authSvc *authservice.Service, h *hub.Hub) *Handler {
	return &Handler{chatSvc: chatSvc, authSvc: authSvc, hub: h}
}

// RegisterRoutes mounts message routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/messages/{sessionID}", h.handleList)
	r.Post("/messages", h.handleCreate)
	r.Patch("/messages/{id}/read", h.handleMarkRead)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.ListMessages(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID  string `json:"sessionId"`
		SenderType string `json:"senderType"`
		SenderID   string `json:"senderId"`
		Content    string `json:"content"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Admin-attributed messages need a verified token; visitor messages
	// come from the anonymous widget.
	if payload.SenderType == chat.SenderAdmin {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			utils.RespondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if _, err := h.authSvc.VerifyToken(token); err != nil {
			utils.RespondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
	}

	// The hub appends and broadcasts under the session's send lock so
	// socket members see REST-created messages in log order.
	message, err := h.hub.AppendMessage(r.Context(), payload.SessionID, payload.SenderType, payload.SenderID, payload.Content)
	if err != nil {
		switch {
		case errors.Is(err, chatservice.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, chatservice.ErrEmptyContent), errors.Is(err, chatservice.ErrInvalidSender):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondError(w, http.StatusInternalServerError, "failed to store message")
		}
		return
	}

	utils.RespondJSON(w, http.StatusCreated, message)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "id")

	message, err := h.chatSvc.MarkRead(r.Context(), messageID)
	if err != nil {
		if errors.Is(err, chatservice.ErrMessageNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to mark message read")
		return
	}

	utils.RespondJSON(w, http.StatusOK, message)
}
