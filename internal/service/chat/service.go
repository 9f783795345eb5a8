package chat

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nightcoffee/elysia-chat/internal/model/chat"
	"github.com/nightcoffee/elysia-chat/internal/service/ai"
	"github.com/nightcoffee/elysia-chat/internal/service/history"
)

// FallbackReply 大模型不可用时写入历史并返回给用户的固定回复。
const FallbackReply = "抱歉，我现在无法回答，请稍后再试。"

// Completer 大模型协作方契约：历史截断由实现方负责。
type Completer interface {
	Generate(ctx context.Context, userMessage string, historyMessages []chat.Message, systemPrompt string) (string, error)
}

// Synthesizer 语音合成协作方契约：把文本合成到音频目录下的指定文件。
type Synthesizer interface {
	Synthesize(ctx context.Context, text, filename string) error
}

// TurnResult 一轮对话的处理结果，直接序列化给前端。
type TurnResult struct {
	Success      bool   `json:"success"`
	TextResponse string `json:"text_response,omitempty"`
	AudioPath    string `json:"audio_path,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Status 系统状态快照。
type Status struct {
	LLMConfigured   bool `json:"llm_configured"`
	TTSConfigured   bool `json:"tts_configured"`
	ASRConfigured   bool `json:"asr_configured"`
	HistoryLength   int  `json:"history_length"`
	CustomPromptSet bool `json:"custom_prompt_set"`
	ContextSet      bool `json:"context_set"`
}

// Service 编排一轮对话：大模型 → 文本清洗 → 语音合成 → 追加记录并落盘。
// llm 和 tts 允许为空，对应功能按降级处理。
type Service struct {
	store *history.Store
	llm   Completer
	tts   Synthesizer
	now   func() time.Time

	asrConfigured bool
}

// NewService 创建对话编排服务。
func NewService(store *history.Store, llm Completer, tts Synthesizer, asrConfigured bool, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:         store,
		llm:           llm,
		tts:           tts,
		now:           now,
		asrConfigured: asrConfigured,
	}
}

// ProcessMessage 处理一条用户消息。协作方故障全部就地吸收：
// 模型失败落为固定致歉回复，合成失败落为无音频，这一轮照常入库。
func (s *Service) ProcessMessage(ctx context.Context, message, customPrompt, contextText string) (result TurnResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[chat] 处理消息时出错: %v", r)
			result = TurnResult{Success: false, Error: fmt.Sprintf("处理消息时出错: %v", r)}
		}
	}()

	if message == "" {
		return TurnResult{Success: false, Error: "消息不能为空"}
	}

	storedPrompt, storedContext := s.store.Settings()
	if customPrompt == "" {
		customPrompt = storedPrompt
	}
	if contextText == "" {
		contextText = storedContext
	}
	systemPrompt := ai.BuildSystemPrompt(customPrompt, contextText)

	reply := s.complete(ctx, message, systemPrompt)
	reply = CleanReply(reply)

	timestamp := s.now().Unix()
	audioFile := s.synthesize(ctx, reply, timestamp)

	userMsg := chat.Message{Role: chat.RoleUser, Content: message}
	assistantMsg := chat.Message{
		Role:      chat.RoleAssistant,
		Content:   reply,
		Timestamp: timestamp,
		AudioFile: audioFile,
	}
	s.store.AppendTurn(userMsg, assistantMsg)

	return TurnResult{
		Success:      true,
		TextResponse: reply,
		AudioPath:    audioFile,
	}
}

func (s *Service) complete(ctx context.Context, message, systemPrompt string) string {
	if s.llm == nil {
		log.Printf("[chat] 大模型服务未配置，使用固定回复")
		return FallbackReply
	}

	reply, err := s.llm.Generate(ctx, message, s.store.Snapshot(), systemPrompt)
	if err != nil {
		log.Printf("[chat] 大模型调用失败: %v", err)
		return FallbackReply
	}
	return reply
}

func (s *Service) synthesize(ctx context.Context, text string, timestamp int64) string {
	if s.tts == nil || text == "" {
		return ""
	}

	filename := fmt.Sprintf("response_%d.wav", timestamp)
	if err := s.tts.Synthesize(ctx, text, filename); err != nil {
		log.Printf("[chat] 语音合成失败: %v", err)
		return ""
	}
	return filename
}

// AddIdleMessage 写入一条待机消息，不经过大模型与语音合成。
func (s *Service) AddIdleMessage(text string) TurnResult {
	if text == "" {
		return TurnResult{Success: false, Error: "消息不能为空"}
	}

	s.store.AppendIdleMessage(text)
	return TurnResult{Success: true, Message: "待机消息已保存"}
}

// ClearHistory 清空当天对话历史。
func (s *Service) ClearHistory() TurnResult {
	s.store.Clear()
	return TurnResult{Success: true, Message: "对话历史已清空"}
}

// SetCustomPrompt 记录自定义系统 prompt。
func (s *Service) SetCustomPrompt(prompt string) TurnResult {
	s.store.SetCustomPrompt(prompt)
	return TurnResult{Success: true, Message: "自定义prompt已设置"}
}

// SetContext 记录额外对话上下文。
func (s *Service) SetContext(contextText string) TurnResult {
	s.store.SetContext(contextText)
	return TurnResult{Success: true, Message: "上下文已设置"}
}

// Status 汇总系统状态。
func (s *Service) Status() Status {
	customPrompt, contextText := s.store.Settings()
	return Status{
		LLMConfigured:   s.llm != nil,
		TTSConfigured:   s.tts != nil,
		ASRConfigured:   s.asrConfigured,
		HistoryLength:   s.store.Len(),
		CustomPromptSet: customPrompt != "",
		ContextSet:      contextText != "",
	}
}
