package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/nightcoffee/elysia-chat/internal/model/chat"
	chatservice "github.com/nightcoffee/elysia-chat/internal/service/chat"
	"github.com/nightcoffee/elysia-chat/internal/service/history"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte) (string, error) {
	return f.text, f.err
}

type stubCompleter struct{}

func (stubCompleter) Generate(context.Context, string, []chatmodel.Message, string) (string, error) {
	return "听到你啦", nil
}

func setupRouter(t *testing.T, transcriber Transcriber) (*chi.Mux, *history.Store) {
	t.Helper()

	now := func() time.Time { return time.Unix(1754100000, 0) }
	store := history.NewStore(t.TempDir(), now)
	chatSvc := chatservice.NewService(store, stubCompleter{}, nil, true, now)
	handler := New(transcriber, chatSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, store
}

func postAudio(t *testing.T, r http.Handler, field string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "voice.webm")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(content)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/voice-chat", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestVoiceChat(t *testing.T) {
	r, store := setupRouter(t, &fakeTranscriber{text: "你好"})

	resp := postAudio(t, r, "audio", []byte("fake-webm"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var payload struct {
		Success        bool   `json:"success"`
		TextResponse   string `json:"text_response"`
		RecognizedText string `json:"recognized_text"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.Success || payload.RecognizedText != "你好" || payload.TextResponse != "听到你啦" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if store.Len() != 2 {
		t.Fatalf("识别出的消息应走完整流水线, got %d 条", store.Len())
	}
}

func TestVoiceChatRecognitionFailure(t *testing.T) {
	r, store := setupRouter(t, &fakeTranscriber{err: errors.New("asr down")})

	resp := postAudio(t, r, "audio", []byte("fake-webm"))
	if resp.Code != http.StatusOK {
		t.Fatalf("识别失败应返回结构化结果而非传输错误, got %d", resp.Code)
	}

	var payload struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Success || payload.Error == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if store.Len() != 0 {
		t.Fatalf("识别失败不应入库, got %d", store.Len())
	}
}

func TestVoiceChatMissingFile(t *testing.T) {
	r, _ := setupRouter(t, &fakeTranscriber{text: "你好"})

	resp := postAudio(t, r, "wrong-field", []byte("fake-webm"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
