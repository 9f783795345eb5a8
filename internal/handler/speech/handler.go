package speech

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatservice "github.com/nightcoffee/elysia-chat/internal/service/chat"
)

// Transcriber 抽象语音识别业务，便于测试与替换实现。
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Handler 语音输入的HTTP处理器
type Handler struct {
	speechSvc Transcriber
	chatSvc   *chatservice.Service
}

// New 创建语音处理器
func New(speechSvc Transcriber, chatSvc *chatservice.Service) *Handler {
	return &Handler{speechSvc: speechSvc, chatSvc: chatSvc}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/voice-chat", h.handleVoiceChat)
}

// handleVoiceChat 接收浏览器录音，识别成文字后走同一条对话流水线。
func (h *Handler) handleVoiceChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	text, err := h.speechSvc.Transcribe(r.Context(), audio)
	if err != nil {
		log.Printf("[speech] 语音识别失败: %v", err)
		respondJSON(w, http.StatusOK, chatservice.TurnResult{
			Success: false,
			Error:   "语音识别失败，请重试",
		})
		return
	}

	result := h.chatSvc.ProcessMessage(r.Context(), text, "", "")
	respondJSON(w, http.StatusOK, struct {
		chatservice.TurnResult
		RecognizedText string `json:"recognized_text"`
	}{TurnResult: result, RecognizedText: text})
}

// respondJSON 发送JSON响应
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError 发送错误响应
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"success": false, "error": message})
}
