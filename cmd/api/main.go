package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nightcoffee/elysia-chat/internal/cli"
	"github.com/nightcoffee/elysia-chat/internal/config"
	"github.com/nightcoffee/elysia-chat/internal/handler"
	speechhandler "github.com/nightcoffee/elysia-chat/internal/handler/speech"
	"github.com/nightcoffee/elysia-chat/internal/service/ai"
	chatservice "github.com/nightcoffee/elysia-chat/internal/service/chat"
	"github.com/nightcoffee/elysia-chat/internal/service/history"
	"github.com/nightcoffee/elysia-chat/internal/service/speech"
)

func main() {
	cliMode := flag.Bool("cli", false, "以命令行模式运行")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store := history.NewStore(cfg.History.Dir, time.Now)

	// Initialize AI service
	var completer chatservice.Completer
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality - 请检查 Ark 模型相关环境变量")
		} else {
			completer = aiService
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置，跳过 AI 功能初始化，回复将使用固定致歉文案")
	}

	// Initialize TTS client
	var synthesizer chatservice.Synthesizer
	if cfg.Speech.TTSEnabled() {
		synthesizer = speech.NewTTSClient(cfg.Speech, cfg.History.AudioDir)
		log.Println("TTS client initialized successfully")
	} else {
		log.Println("语音合成服务未配置，回复不生成音频")
	}

	// Initialize speech recognition service
	var transcriber speechhandler.Transcriber
	if cfg.Speech.ASREnabled() {
		transcriber = speech.NewService(cfg.Speech)
		log.Println("Speech recognition service initialized successfully")
	} else {
		log.Println("语音识别凭证未配置，跳过语音输入功能初始化")
	}

	chatSvc := chatservice.NewService(store, completer, synthesizer, transcriber != nil, time.Now)

	if *cliMode {
		if err := cli.New(chatSvc, os.Stdin, os.Stdout).Run(ctx); err != nil {
			log.Fatalf("cli error: %v", err)
		}
		return
	}

	router := handler.NewRouter(chatSvc, store, transcriber, cfg.History.AudioDir)
	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Elysia chat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
