package chat

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatservice "github.com/nightcoffee/elysia-chat/internal/service/chat"
)

// WebSocketHandler /ws 端点，逐条镜像 POST /chat 的语义。
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type wsInbound struct {
	Message string `json:"message"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] 升级连接失败: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] 连接异常断开: %v", err)
			}
			return
		}

		var inbound wsInbound
		if err := json.Unmarshal(raw, &inbound); err != nil {
			if writeErr := conn.WriteJSON(chatservice.TurnResult{Success: false, Error: "invalid message"}); writeErr != nil {
				return
			}
			continue
		}

		result := h.chatSvc.ProcessMessage(r.Context(), inbound.Message, "", "")
		if err := conn.WriteJSON(result); err != nil {
			log.Printf("[ws] 发送回复失败: %v", err)
			return
		}
	}
}
