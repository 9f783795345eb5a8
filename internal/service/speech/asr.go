package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nightcoffee/elysia-chat/internal/config"
)

const (
	defaultTokenURL     = "https://aip.baidubce.com/oauth/2.0/token"
	defaultRecognizeURL = "https://vop.baidu.com/server_api"
)

// ASRClient 调用百度短语音识别接口。访问令牌用 client_credentials
// 方式获取并缓存，临近过期时刷新。
type ASRClient struct {
	apiKey       string
	secretKey    string
	cuid         string
	tokenURL     string
	recognizeURL string
	client       *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewASRClient 创建语音识别客户端。
func NewASRClient(cfg config.SpeechConfig) *ASRClient {
	return &ASRClient{
		apiKey:       cfg.ASRAPIKey,
		secretKey:    cfg.ASRSecret,
		cuid:         cfg.ASRCUID,
		tokenURL:     defaultTokenURL,
		recognizeURL: defaultRecognizeURL,
		client:       &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// accessToken 返回缓存中的令牌，缺失或临近过期时重新获取。
func (c *ASRClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	params := url.Values{}
	params.Set("grant_type", "client_credentials")
	params.Set("client_id", c.apiKey)
	params.Set("client_secret", c.secretKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("构建令牌请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("获取访问令牌失败: %w", err)
	}
	defer resp.Body.Close()

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("解析令牌响应失败: %w", err)
	}

	if token.AccessToken == "" {
		return "", fmt.Errorf("令牌响应缺少 access_token: %s %s", token.Error, token.ErrorDesc)
	}

	c.token = token.AccessToken
	// 提前一分钟过期，避免在边界上带着失效令牌发请求。
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)
	log.Printf("[speech] 百度访问令牌获取成功")
	return c.token, nil
}

type recognizeRequest struct {
	Format  string `json:"format"`
	Rate    int    `json:"rate"`
	Channel int    `json:"channel"`
	CUID    string `json:"cuid"`
	Token   string `json:"token"`
	Speech  string `json:"speech"`
	Len     int    `json:"len"`
}

type recognizeResponse struct {
	ErrNo  int      `json:"err_no"`
	ErrMsg string   `json:"err_msg"`
	Result []string `json:"result"`
}

// Recognize 识别 16kHz 单声道 s16le PCM 音频，返回识别文本。
func (c *ASRClient) Recognize(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", fmt.Errorf("音频数据为空")
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(recognizeRequest{
		Format:  "pcm",
		Rate:    16000,
		Channel: 1,
		CUID:    c.cuid,
		Token:   token,
		Speech:  base64.StdEncoding.EncodeToString(pcm),
		Len:     len(pcm),
	})
	if err != nil {
		return "", fmt.Errorf("序列化识别请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.recognizeURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("构建识别请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	requestID := uuid.NewString()
	log.Printf("[speech] 调用语音识别 request=%s len=%d", requestID, len(pcm))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("语音识别请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取识别响应失败: %w", err)
	}

	var result recognizeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("解析识别响应失败: %w", err)
	}

	if result.ErrNo != 0 || len(result.Result) == 0 {
		return "", fmt.Errorf("语音识别失败 err_no=%d err_msg=%s", result.ErrNo, result.ErrMsg)
	}

	return strings.TrimSpace(result.Result[0]), nil
}
