package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chathandler "github.com/nightcoffee/elysia-chat/internal/handler/chat"
	historyhandler "github.com/nightcoffee/elysia-chat/internal/handler/history"
	speechhandler "github.com/nightcoffee/elysia-chat/internal/handler/speech"
	middlewarePkg "github.com/nightcoffee/elysia-chat/internal/middleware"
	chatservice "github.com/nightcoffee/elysia-chat/internal/service/chat"
	historyservice "github.com/nightcoffee/elysia-chat/internal/service/history"
)

// NewRouter wires HTTP routes to core services.
// speechSvc 为空时不注册语音路由，服务按降级模式运行。
func NewRouter(chatSvc *chatservice.Service, store *historyservice.Store, speechSvc speechhandler.Transcriber, audioDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chathandler.New(chatSvc)
	chatHandler.RegisterRoutes(r)

	wsHandler := chathandler.NewWebSocketHandler(chatSvc)
	wsHandler.RegisterRoutes(r)

	historyHandler := historyhandler.New(store, audioDir)
	historyHandler.RegisterRoutes(r)

	if speechSvc != nil {
		speechHandler := speechhandler.New(speechSvc, chatSvc)
		speechHandler.RegisterRoutes(r)
	}

	return r
}
