package history

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/nightcoffee/elysia-chat/internal/model/chat"
	historyservice "github.com/nightcoffee/elysia-chat/internal/service/history"
)

// Handler 历史记录与音频文件的HTTP处理器
type Handler struct {
	store    *historyservice.Store
	audioDir string
}

// New 创建历史记录处理器
func New(store *historyservice.Store, audioDir string) *Handler {
	return &Handler{store: store, audioDir: audioDir}
}

// RegisterRoutes 注册历史记录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/history", h.handleList)
	r.Get("/history/{date}", h.handleGetByDate)
	r.Delete("/history/{date}", h.handleDeleteByDate)
	r.Get("/message/{index}", h.handleMessageInfo)
	r.Delete("/message/index/{index}", h.handleDeleteByIndex)
	r.Delete("/message/timestamp/{timestamp}", h.handleDeleteByTimestamp)
	r.Get("/audio/{filename}", h.handleGetAudio)
}

// handleList 获取历史记录文件列表
func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"history_files": h.store.ListDayFiles(),
	})
}

// handleGetByDate 获取指定日期的历史记录
func (h *Handler) handleGetByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"date":     date,
		"messages": h.store.LoadByDate(date),
	})
}

// handleDeleteByDate 整体删除指定日期的历史记录文件
func (h *Handler) handleDeleteByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	if err := h.store.DeleteByDate(date); err != nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"message": "历史记录删除失败: " + err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "历史记录删除成功",
	})
}

// handleMessageInfo 获取单条消息信息，附带其音频文件是否仍然存在。
func (h *Handler) handleMessageInfo(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid message index")
		return
	}

	msg, err := h.store.MessageAt(index)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	audioExists := false
	if msg.AudioFile != "" {
		_, statErr := os.Stat(filepath.Join(h.audioDir, filepath.Base(msg.AudioFile)))
		audioExists = statErr == nil
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"index":        index,
		"message":      msg,
		"audio_exists": audioExists,
	})
}

// handleDeleteByIndex 按下标删除消息。消息的音频文件不随之删除。
func (h *Handler) handleDeleteByIndex(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid message index")
		return
	}

	removed, remaining, err := h.store.DeleteByIndex(index)
	if err != nil {
		respondDeleteError(w, err)
		return
	}

	respondDeleted(w, removed, remaining)
}

// handleDeleteByTimestamp 按时间戳删除第一条匹配的消息
func (h *Handler) handleDeleteByTimestamp(w http.ResponseWriter, r *http.Request) {
	timestamp, err := strconv.ParseInt(chi.URLParam(r, "timestamp"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid timestamp")
		return
	}

	removed, remaining, err := h.store.DeleteByTimestamp(timestamp)
	if err != nil {
		respondDeleteError(w, err)
		return
	}

	respondDeleted(w, removed, remaining)
}

func respondDeleted(w http.ResponseWriter, removed chatmodel.Message, remaining int) {
	payload := map[string]interface{}{
		"success":         true,
		"removed_message": removed,
		"remaining_count": remaining,
	}
	if removed.AudioFile != "" {
		payload["note"] = "音频文件未删除: " + removed.AudioFile
	}
	respondJSON(w, http.StatusOK, payload)
}

func respondDeleteError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, historyservice.ErrTimestampNotFound) {
		status = http.StatusNotFound
	}
	respondError(w, status, err.Error())
}

// handleGetAudio 按文件名返回音频文件。只接受裸文件名，防止路径穿越。
func (h *Handler) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(chi.URLParam(r, "filename"))
	path := filepath.Join(h.audioDir, filename)

	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "音频文件不存在")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, path)
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
