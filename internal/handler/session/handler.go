package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatservice "github.com/lumichat/backend/internal/service/chat"
	"github.com/lumichat/backend/pkg/utils"
)

// Handler serves the session registry REST surface.
type Handler struct {
	chatSvc *chatservice.Service
}

// New creates the session handler.
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts session routes. Status changes are an admin
// action and sit behind the bearer-token middleware.
func (h *Handler) RegisterRoutes(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Post("/sessions", h.handleCreate)
	r.Get("/sessions", h.handleList)
	r.With(requireAdmin).Patch("/sessions/{id}/status", h.handleSetStatus)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ParticipantID string `json:"participantId"`
		Name          string `json:"name"`
		Email         string `json:"email"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.ParticipantID, payload.Name, payload.Email)
	if err != nil {
		if errors.Is(err, chatservice.ErrParticipantRequired) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.chatSvc.ListSessions(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	utils.RespondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.SetStatus(r.Context(), sessionID, payload.Status)
	if err != nil {
		switch {
		case errors.Is(err, chatservice.ErrInvalidStatus):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, chatservice.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, err.Error())
		default:
			utils.RespondError(w, http.StatusInternalServerError, "failed to update session")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, session)
}
