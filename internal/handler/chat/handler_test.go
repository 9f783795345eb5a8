package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/nightcoffee/elysia-chat/internal/model/chat"
	chatservice "github.com/nightcoffee/elysia-chat/internal/service/chat"
	"github.com/nightcoffee/elysia-chat/internal/service/history"
)

type stubCompleter struct {
	reply string
}

func (s *stubCompleter) Generate(context.Context, string, []chatmodel.Message, string) (string, error) {
	return s.reply, nil
}

func setupRouter(t *testing.T) (*chi.Mux, *history.Store) {
	t.Helper()

	now := func() time.Time { return time.Unix(1754100000, 0) }
	store := history.NewStore(t.TempDir(), now)
	chatSvc := chatservice.NewService(store, &stubCompleter{reply: "你好呀"}, nil, false, now)
	handler := New(chatSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, store
}

func postJSON(t *testing.T, r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestChatEndpoint(t *testing.T) {
	r, store := setupRouter(t)

	resp := postJSON(t, r, "/chat", map[string]string{"message": "你好"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var result chatservice.TurnResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success || result.TextResponse != "你好呀" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if store.Len() != 2 {
		t.Fatalf("应入库两条消息, got %d", store.Len())
	}
}

func TestChatEndpointEmptyMessage(t *testing.T) {
	r, _ := setupRouter(t)

	resp := postJSON(t, r, "/chat", map[string]string{"message": ""})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatEndpointInvalidBody(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("{oops")))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatEndpointIdleMessage(t *testing.T) {
	r, store := setupRouter(t)

	resp := postJSON(t, r, "/chat", map[string]interface{}{
		"message":         "窗外的风又起了",
		"is_idle_message": true,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	messages := store.Snapshot()
	if len(messages) != 1 || !messages[0].IsIdleMessage {
		t.Fatalf("应只保存一条待机消息: %+v", messages)
	}
}

func TestClearHistoryEndpoint(t *testing.T) {
	r, store := setupRouter(t)
	postJSON(t, r, "/chat", map[string]string{"message": "你好"})

	resp := postJSON(t, r, "/clear-history", map[string]string{})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if store.Len() != 0 {
		t.Fatalf("历史应被清空, got %d", store.Len())
	}
}

func TestStatusEndpoint(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var status chatservice.Status
	if err := json.Unmarshal(resp.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.LLMConfigured {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestSetPromptAndContext(t *testing.T) {
	r, store := setupRouter(t)

	if resp := postJSON(t, r, "/prompt", map[string]string{"prompt": "说书人"}); resp.Code != http.StatusOK {
		t.Fatalf("prompt: expected 200, got %d", resp.Code)
	}
	if resp := postJSON(t, r, "/context", map[string]string{"context": "深夜"}); resp.Code != http.StatusOK {
		t.Fatalf("context: expected 200, got %d", resp.Code)
	}

	prompt, contextText := store.Settings()
	if prompt != "说书人" || contextText != "深夜" {
		t.Fatalf("settings: got %q %q", prompt, contextText)
	}
}
