package chat

import (
	"context"
	"log"
	"net/http"
	"strings"

	aiService "github.com/explainer-ai/backend/internal/service/ai"
	chatService "github.com/explainer-ai/backend/internal/service/chat"
	"github.com/explainer-ai/backend/pkg/utils"
)

// SSE 事件名，按发送顺序排列。
const (
	eventStart   = "start"
	eventDelta   = "delta"
	eventMessage = "message"
	eventEnd     = "end"
	eventError   = "error"
)

// handleChatStream 通过 SSE 推送回答，结束后保存本轮对话
func (h *Handler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userMessage := query.Get("message")
	if strings.TrimSpace(userMessage) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	scope, err := scopeFromQuery(r)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	chatID := strings.TrimSpace(query.Get("chat_id"))
	history, err := h.priorMessages(r, scope, chatID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if chatID == "" {
		chatID = chatService.NewSessionID()
	}

	ctx := r.Context()
	utils.SetupSSEHeaders(w)
	_ = utils.SendSSEEvent(w, flusher, eventStart, map[string]string{"chat_id": chatID})

	opts := aiService.Options{
		Multilingual: query.Get("multilingual") != "false",
		FactCheck:    query.Get("factCheck") != "false",
	}
	answer, err := h.responder.Stream(ctx, history, userMessage, opts, func(delta string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return utils.SendSSEEvent(w, flusher, eventDelta, map[string]string{"content": delta})
	})
	if err != nil {
		log.Printf("[stream] answer failed scope=%s chat=%s: %v", scope, chatID, err)
		_ = utils.SendSSEEvent(w, flusher, eventError, map[string]string{"error": "failed to generate answer"})
		return
	}

	_ = utils.SendSSEEvent(w, flusher, eventMessage, map[string]string{"content": answer})

	// 回答已完整生成，客户端断开也要保存本轮对话
	turn, err := h.chatSvc.SaveTurn(context.WithoutCancel(ctx), scope, chatID, userMessage, answer)
	if err != nil {
		_ = utils.SendSSEEvent(w, flusher, eventError, map[string]string{"error": errorMessage(err)})
		return
	}

	_ = utils.SendSSEEvent(w, flusher, eventEnd, map[string]string{"chat_id": turn.SessionID, "title": turn.Title})
	log.Printf("[stream] completed response for scope=%s chat=%s", scope, turn.SessionID)
}
