package system

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatService "github.com/explainer-ai/backend/internal/service/chat"
	"github.com/explainer-ai/backend/pkg/utils"
)

const (
	serviceName = "ExplAiner AI"
	version     = "1.0.0"
)

// StatsSource reports aggregate counts over the anonymous history.
type StatsSource interface {
	AnonymousStats(ctx context.Context) chatService.Stats
}

// Handler serves health and statistics endpoints.
type Handler struct {
	stats        StatsSource
	llmAvailable bool
}

// New 创建系统状态处理器
func New(stats StatsSource, llmAvailable bool) *Handler {
	return &Handler{stats: stats, llmAvailable: llmAvailable}
}

// RegisterRoutes 注册健康检查与统计路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/stats", h.handleStats)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"llm_available": h.llmAvailable,
		"service":       serviceName,
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.stats.AnonymousStats(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"service":        serviceName,
		"version":        version,
		"llm_configured": h.llmAvailable,
		"total_chats":    stats.TotalChats,
		"total_messages": stats.TotalMessages,
	})
}
