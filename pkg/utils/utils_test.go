package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondJSONKeepsMarkdown(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondJSON(resp, http.StatusCreated, map[string]string{"answer": "**a** <b> & c"})

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	if got := strings.TrimSpace(resp.Body.String()); got != `{"answer":"**a** <b> & c"}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestSendSSEEventFraming(t *testing.T) {
	resp := httptest.NewRecorder()
	SetupSSEHeaders(resp)

	if err := SendSSEEvent(resp, resp, "delta", map[string]string{"content": "привет"}); err != nil {
		t.Fatalf("SendSSEEvent err: %v", err)
	}

	want := "event: delta\ndata: {\"content\":\"привет\"}\n\n"
	if resp.Body.String() != want {
		t.Fatalf("unexpected frame %q", resp.Body.String())
	}
	if !resp.Flushed {
		t.Fatal("expected flush after event")
	}
	if resp.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatal("missing event-stream content type")
	}
}
