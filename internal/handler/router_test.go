package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	aiService "github.com/explainer-ai/backend/internal/service/ai"
	chatService "github.com/explainer-ai/backend/internal/service/chat"
	userService "github.com/explainer-ai/backend/internal/service/user"
	"github.com/explainer-ai/backend/internal/store/anonymous"
	"github.com/explainer-ai/backend/internal/store/sqlite"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()

	db, err := sqlite.Open(context.Background(), filepath.Join(dir, "users.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	chatSvc := chatService.NewService(db, anonymous.New(anonymous.NewFileBlob(filepath.Join(dir, "chat_history.json"))))
	userSvc := userService.NewService(db).WithHashCost(bcrypt.MinCost)
	return NewRouter(chatSvc, userSvc, aiService.Fallback{}, Options{MetricsEnabled: true})
}

func TestRouterEndToEnd(t *testing.T) {
	r := newTestRouter(t)

	register := httptest.NewRecorder()
	r.ServeHTTP(register, httptest.NewRequest(http.MethodPost, "/api/register",
		strings.NewReader(`{"username":"ann","email":"ann@example.com","password":"pw"}`)))
	if register.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", register.Code)
	}

	chat := httptest.NewRecorder()
	payload, _ := json.Marshal(map[string]any{"message": "What is a tort?", "user_id": 1})
	r.ServeHTTP(chat, httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(payload)))
	if chat.Code != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d: %s", chat.Code, chat.Body.String())
	}
	if !strings.Contains(chat.Body.String(), "demo mode") {
		t.Fatalf("expected offline answer, got %s", chat.Body.String())
	}

	list := httptest.NewRecorder()
	r.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/chats?user_id=1", nil))
	if !strings.Contains(list.Body.String(), "What is a tort?") {
		t.Fatalf("expected session in listing, got %s", list.Body.String())
	}

	anon := httptest.NewRecorder()
	r.ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/chats", nil))
	if strings.Contains(anon.Body.String(), "What is a tort?") {
		t.Fatal("registered session leaked into anonymous listing")
	}
}

func TestRouterSystemEndpoints(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/health", "/stats", "/metrics"} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.Code)
		}
	}

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(resp.Body.String(), "explainer_http_requests_total") {
		t.Fatal("expected http request counter in exposition")
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	r := newTestRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodOptions, "/api/chat", nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}
