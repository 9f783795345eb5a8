package history

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/nightcoffee/elysia-chat/internal/model/chat"
	historyservice "github.com/nightcoffee/elysia-chat/internal/service/history"
)

func setupRouter(t *testing.T) (*chi.Mux, *historyservice.Store, string) {
	t.Helper()

	now := func() time.Time { return time.Unix(1754100000, 0) }
	store := historyservice.NewStore(t.TempDir(), now)
	audioDir := t.TempDir()
	handler := New(store, audioDir)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, store, audioDir
}

func do(t *testing.T, r http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func seedTurn(store *historyservice.Store) {
	store.AppendTurn(
		chatmodel.Message{Role: chatmodel.RoleUser, Content: "A"},
		chatmodel.Message{Role: chatmodel.RoleAssistant, Content: "B", Timestamp: 1000, AudioFile: "response_1000.wav"},
	)
}

func TestHistoryList(t *testing.T) {
	r, store, _ := setupRouter(t)
	seedTurn(store)

	resp := do(t, r, http.MethodGet, "/history")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload struct {
		Success      bool                    `json:"success"`
		HistoryFiles []chatmodel.DayFileInfo `json:"history_files"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.Success || len(payload.HistoryFiles) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.HistoryFiles[0].MessageCount != 2 {
		t.Fatalf("message_count: got %d", payload.HistoryFiles[0].MessageCount)
	}
}

func TestHistoryByDate(t *testing.T) {
	r, store, _ := setupRouter(t)
	seedTurn(store)

	date := time.Unix(1754100000, 0).Format("2006-01-02")
	resp := do(t, r, http.MethodGet, "/history/"+date)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload struct {
		Success  bool                `json:"success"`
		Messages []chatmodel.Message `json:"messages"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Messages) != 2 {
		t.Fatalf("应有两条消息, got %d", len(payload.Messages))
	}
}

func TestDeleteHistoryByDate(t *testing.T) {
	r, store, _ := setupRouter(t)
	seedTurn(store)

	date := time.Unix(1754100000, 0).Format("2006-01-02")
	resp := do(t, r, http.MethodDelete, "/history/"+date)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload struct {
		Success bool `json:"success"`
	}
	json.Unmarshal(resp.Body.Bytes(), &payload)
	if !payload.Success {
		t.Fatalf("删除应成功: %s", resp.Body.String())
	}

	// 不存在的日期报失败，不是异常。
	resp = do(t, r, http.MethodDelete, "/history/2030-01-01")
	json.Unmarshal(resp.Body.Bytes(), &payload)
	if payload.Success {
		t.Fatal("删除不存在的日期应报失败")
	}
}

func TestMessageInfo(t *testing.T) {
	r, store, audioDir := setupRouter(t)
	seedTurn(store)

	if err := os.WriteFile(filepath.Join(audioDir, "response_1000.wav"), []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("写入音频文件失败: %v", err)
	}

	resp := do(t, r, http.MethodGet, "/message/1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload struct {
		Success     bool              `json:"success"`
		Message     chatmodel.Message `json:"message"`
		AudioExists bool              `json:"audio_exists"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.AudioExists || payload.Message.Content != "B" {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	if resp := do(t, r, http.MethodGet, "/message/9"); resp.Code != http.StatusNotFound {
		t.Fatalf("越界下标应返回 404, got %d", resp.Code)
	}
}

func TestDeleteMessageByIndex(t *testing.T) {
	r, store, _ := setupRouter(t)
	seedTurn(store)

	resp := do(t, r, http.MethodDelete, "/message/index/1")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload struct {
		Success        bool              `json:"success"`
		RemovedMessage chatmodel.Message `json:"removed_message"`
		RemainingCount int               `json:"remaining_count"`
		Note           string            `json:"note"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.RemovedMessage.Content != "B" || payload.RemainingCount != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Note == "" {
		t.Fatal("带音频的消息删除后应提示音频未删除")
	}

	if resp := do(t, r, http.MethodDelete, "/message/index/5"); resp.Code != http.StatusBadRequest {
		t.Fatalf("越界删除应返回 400, got %d", resp.Code)
	}
	if store.Len() != 1 {
		t.Fatalf("越界删除不应改动历史, got %d", store.Len())
	}
}

func TestDeleteMessageByTimestamp(t *testing.T) {
	r, store, _ := setupRouter(t)
	seedTurn(store)

	if resp := do(t, r, http.MethodDelete, "/message/timestamp/9999"); resp.Code != http.StatusNotFound {
		t.Fatalf("未知时间戳应返回 404, got %d", resp.Code)
	}

	resp := do(t, r, http.MethodDelete, "/message/timestamp/1000")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if store.Len() != 1 {
		t.Fatalf("应只剩一条消息, got %d", store.Len())
	}
}

func TestGetAudio(t *testing.T) {
	r, _, audioDir := setupRouter(t)

	if resp := do(t, r, http.MethodGet, "/audio/missing.wav"); resp.Code != http.StatusNotFound {
		t.Fatalf("缺失音频应返回 404, got %d", resp.Code)
	}

	if err := os.WriteFile(filepath.Join(audioDir, "response_1.wav"), []byte("RIFFdata"), 0o644); err != nil {
		t.Fatalf("写入音频文件失败: %v", err)
	}

	resp := do(t, r, http.MethodGet, "/audio/response_1.wav")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); got != "audio/wav" {
		t.Fatalf("content type: got %q", got)
	}
}
