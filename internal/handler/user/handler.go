package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/explainer-ai/backend/internal/model/user"
	userService "github.com/explainer-ai/backend/internal/service/user"
	"github.com/explainer-ai/backend/pkg/utils"
)

// Handler 用户注册与登录的HTTP处理器
type Handler struct {
	users *userService.Service
}

// New 创建用户处理器
func New(users *userService.Service) *Handler {
	return &Handler{users: users}
}

// RegisterRoutes 注册用户相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Get("/user", h.handleGetUser)
}

type identityResponse struct {
	Success bool           `json:"success"`
	User    *user.Identity `json:"user,omitempty"`
	Message string         `json:"message,omitempty"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, err := h.users.Register(r.Context(), payload.Username, payload.Email, payload.Password)
	switch {
	case errors.Is(err, userService.ErrDuplicateEmail), errors.Is(err, userService.ErrInvalidInput):
		respondFailure(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		respondFailure(w, http.StatusInternalServerError, "registration failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, identityResponse{Success: true, User: identity})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, err := h.users.Authenticate(r.Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, userService.ErrInvalidCredentials):
		respondFailure(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		respondFailure(w, http.StatusInternalServerError, "login failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, identityResponse{Success: true, User: identity})
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("user_id")), 10, 64)
	if err != nil || id <= 0 {
		respondFailure(w, http.StatusBadRequest, "user_id is required")
		return
	}

	identity, err := h.users.Get(r.Context(), user.ID(id))
	switch {
	case errors.Is(err, userService.ErrUserNotFound):
		respondFailure(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		respondFailure(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, identityResponse{Success: true, User: identity})
}

func respondFailure(w http.ResponseWriter, status int, message string) {
	utils.RespondJSON(w, status, identityResponse{Success: false, Message: message})
}
