package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nightcoffee/elysia-chat/internal/config"
)

// TTSClient 调用 GPT-SoVITS 推理服务的 HTTP 合成接口。
// 请求形状是固定契约，由 cmd/tools/speechcheck 对真实服务做连通校验。
type TTSClient struct {
	baseURL   string
	language  string
	outputDir string
	client    *http.Client
}

// NewTTSClient 创建语音合成客户端并确保输出目录存在。
func NewTTSClient(cfg config.SpeechConfig, outputDir string) *TTSClient {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Printf("[speech] 创建音频输出目录失败: %v", err)
	}

	return &TTSClient{
		baseURL:   cfg.TTSBaseURL,
		language:  cfg.TTSLanguage,
		outputDir: outputDir,
		client:    &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

type ttsRequest struct {
	Text         string `json:"text"`
	TextLanguage string `json:"text_language"`
}

// Synthesize 合成语音并写入输出目录下的 filename。
func (c *TTSClient) Synthesize(ctx context.Context, text, filename string) error {
	payload, err := json.Marshal(ttsRequest{Text: text, TextLanguage: c.language})
	if err != nil {
		return fmt.Errorf("序列化合成请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("构建合成请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("语音合成请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("语音合成服务返回 %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取合成音频失败: %w", err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("语音合成服务返回空音频")
	}

	path := filepath.Join(c.outputDir, filepath.Base(filename))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return fmt.Errorf("写入音频文件失败: %w", err)
	}

	return nil
}
