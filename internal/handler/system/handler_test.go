package system

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	chatService "github.com/explainer-ai/backend/internal/service/chat"
)

type staticStats chatService.Stats

func (s staticStats) AnonymousStats(context.Context) chatService.Stats {
	return chatService.Stats(s)
}

func TestHealth(t *testing.T) {
	r := chi.NewRouter()
	New(staticStats{}, false).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "healthy" || body["llm_available"] != false {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestStats(t *testing.T) {
	r := chi.NewRouter()
	New(staticStats{TotalChats: 3, TotalMessages: 8}, true).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stats", nil))

	var body struct {
		TotalChats    int  `json:"total_chats"`
		TotalMessages int  `json:"total_messages"`
		LLMConfigured bool `json:"llm_configured"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TotalChats != 3 || body.TotalMessages != 8 || !body.LLMConfigured {
		t.Fatalf("unexpected stats %+v", body)
	}
}
