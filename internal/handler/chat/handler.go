package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatservice "github.com/nightcoffee/elysia-chat/internal/service/chat"
)

// Handler 聊天与设置相关的HTTP处理器
type Handler struct {
	chatSvc *chatservice.Service
}

// New 创建聊天处理器
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/clear-history", h.handleClearHistory)
	r.Get("/status", h.handleStatus)
	r.Post("/prompt", h.handleSetPrompt)
	r.Post("/context", h.handleSetContext)
}

type chatRequest struct {
	Message       string `json:"message"`
	IsIdleMessage bool   `json:"is_idle_message"`
	CustomPrompt  string `json:"custom_prompt"`
	Context       string `json:"context"`
}

// handleChat 处理聊天请求。is_idle_message 为真时只入库，不经过大模型。
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.Message == "" {
		respondError(w, http.StatusBadRequest, "消息不能为空")
		return
	}

	if payload.IsIdleMessage {
		respondJSON(w, http.StatusOK, h.chatSvc.AddIdleMessage(payload.Message))
		return
	}

	result := h.chatSvc.ProcessMessage(r.Context(), payload.Message, payload.CustomPrompt, payload.Context)
	respondJSON(w, http.StatusOK, result)
}

// handleClearHistory 清空对话历史
func (h *Handler) handleClearHistory(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.chatSvc.ClearHistory())
}

// handleStatus 获取系统状态
func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.chatSvc.Status())
}

func (h *Handler) handleSetPrompt(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	respondJSON(w, http.StatusOK, h.chatSvc.SetCustomPrompt(payload.Prompt))
}

func (h *Handler) handleSetContext(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Context string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	respondJSON(w, http.StatusOK, h.chatSvc.SetContext(payload.Context))
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
