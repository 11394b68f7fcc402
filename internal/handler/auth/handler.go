package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	authservice "github.com/lumichat/backend/internal/service/auth"
	"github.com/lumichat/backend/pkg/utils"
)

// Handler serves the dashboard login and signup endpoints.
type Handler struct {
	authSvc *authservice.Service
}

// New creates the auth handler.
func New(authSvc *authservice.Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// RegisterRoutes mounts auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"fullName"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, token, err := h.authSvc.Register(r.Context(), payload.Email, payload.Password, payload.FullName)
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrMissingPassword):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, authservice.ErrEmailTaken):
			utils.RespondError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"admin": account,
		"token": token,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, token, err := h.authSvc.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, authservice.ErrBadCredentials) {
			utils.RespondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"admin": account,
		"token": token,
	})
}
