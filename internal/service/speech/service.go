package speech

import (
	"context"

	"github.com/nightcoffee/elysia-chat/internal/config"
)

// Service 语音识别路径的核心业务：先转码，再调用识别接口。
type Service struct {
	asrClient *ASRClient
}

// NewService 创建语音识别服务实例。
func NewService(cfg config.SpeechConfig) *Service {
	return &Service{asrClient: NewASRClient(cfg)}
}

// Transcribe 把任意容器的压缩音频转成 PCM 后识别为文本。
func (s *Service) Transcribe(ctx context.Context, audio []byte) (string, error) {
	pcm, err := TranscodeToPCM(ctx, audio)
	if err != nil {
		return "", err
	}
	return s.asrClient.Recognize(ctx, pcm)
}
