package chat

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/explainer-ai/backend/internal/model/chat"
	"github.com/explainer-ai/backend/internal/model/user"
	aiService "github.com/explainer-ai/backend/internal/service/ai"
	chatService "github.com/explainer-ai/backend/internal/service/chat"
	"github.com/explainer-ai/backend/pkg/utils"
)

var errInvalidUserID = errors.New("invalid user_id")

// Handler 聊天与会话历史的HTTP处理器
type Handler struct {
	chatSvc   *chatService.Service
	responder aiService.Responder
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, responder aiService.Responder) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		responder: responder,
	}
}

// RegisterRoutes 注册 /api 下的对话路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/chat/stream", h.handleChatStream)
}

// RegisterSessionRoutes registers the /chats history routes.
func (h *Handler) RegisterSessionRoutes(r chi.Router) {
	r.Get("/", h.handleListSessions)
	r.Get("/{chatID}", h.handleGetSession)
	r.Delete("/{chatID}", h.handleDeleteSession)
	r.Post("/{chatID}/title", h.handleRenameSession)
}

type chatRequest struct {
	Message      string `json:"message"`
	Multilingual *bool  `json:"multilingual"`
	FactCheck    *bool  `json:"factCheck"`
	UserID       *int64 `json:"user_id"`
	ChatID       string `json:"chat_id"`
}

type chatResponse struct {
	Answer string `json:"answer"`
	ChatID string `json:"chat_id"`
	Title  string `json:"title"`
}

// handleChat 生成回答并保存本轮对话
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(payload.Message)
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	var userID int64
	if payload.UserID != nil {
		userID = *payload.UserID
	}
	scope, err := scopeFor(userID)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	chatID := strings.TrimSpace(payload.ChatID)
	history, err := h.priorMessages(r, scope, chatID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	opts := aiService.Options{
		Multilingual: optionalFlag(payload.Multilingual),
		FactCheck:    optionalFlag(payload.FactCheck),
	}
	answer, err := h.responder.Answer(ctx, history, payload.Message, opts)
	if err != nil {
		log.Printf("[chat] answer failed scope=%s: %v", scope, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate answer")
		return
	}

	turn, err := h.chatSvc.SaveTurn(ctx, scope, chatID, payload.Message, answer)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{
		Answer: answer,
		ChatID: turn.SessionID,
		Title:  turn.Title,
	})
}

// priorMessages loads the history of an existing session. An unknown id starts a new one.
func (h *Handler) priorMessages(r *http.Request, scope chatService.Scope, chatID string) ([]chatmodel.Message, error) {
	if chatID == "" {
		return nil, nil
	}
	session, err := h.chatSvc.GetSession(r.Context(), scope, chatID)
	if errors.Is(err, chatService.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromQuery(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chats, err := h.chatSvc.ListSessions(r.Context(), scope)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromQuery(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), scope, chi.URLParam(r, "chatID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromQuery(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chatID := chi.URLParam(r, "chatID")
	if err := h.chatSvc.DeleteSession(r.Context(), scope, chatID); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "chat deleted", "chat_id": chatID})
}

func (h *Handler) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromQuery(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	title := r.URL.Query().Get("title")
	if title == "" && r.Body != nil && r.ContentLength != 0 {
		var payload struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		title = payload.Title
	}

	chatID := chi.URLParam(r, "chatID")
	if err := h.chatSvc.RenameSession(r.Context(), scope, chatID, title); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "title updated", "title": strings.TrimSpace(title)})
}

// scopeFromQuery reads the optional user_id query parameter.
// Absent, empty and zero all select anonymous mode.
func scopeFromQuery(r *http.Request) (chatService.Scope, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if raw == "" {
		return chatService.Anonymous(), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return chatService.Scope{}, errInvalidUserID
	}
	return scopeFor(id)
}

func scopeFor(id int64) (chatService.Scope, error) {
	switch {
	case id < 0:
		return chatService.Scope{}, errInvalidUserID
	case id == 0:
		return chatService.Anonymous(), nil
	default:
		return chatService.Registered(user.ID(id)), nil
	}
}

// optionalFlag treats an absent boolean as enabled.
func optionalFlag(v *bool) bool {
	return v == nil || *v
}

func respondServiceError(w http.ResponseWriter, err error) {
	utils.RespondError(w, statusFor(err), errorMessage(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrEmptyMessage), errors.Is(err, chatService.ErrTitleRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
