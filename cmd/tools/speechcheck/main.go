package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/nightcoffee/elysia-chat/internal/config"
	"github.com/nightcoffee/elysia-chat/internal/service/speech"
)

// speechcheck 对固定的 TTS/ASR 请求契约做连通性校验。
// 契约本身写死在客户端里，这个工具只验证真实服务是否接受它。
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	mode := flag.String("mode", "", "测试模式: asr 或 tts")
	text := flag.String("text", "测试", "TTS 输入文本")
	audioPath := flag.String("audio", "", "ASR 输入音频文件路径")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "tts":
		checkTTS(ctx, cfg, *text)
	case "asr":
		checkASR(ctx, cfg, *audioPath)
	default:
		flag.Usage()
		log.Fatal("请通过 -mode=asr 或 -mode=tts 指定测试模式")
	}
}

func checkTTS(ctx context.Context, cfg *config.Config, text string) {
	if !cfg.Speech.TTSEnabled() {
		log.Fatal("TTS 服务未配置，请设置 TTS_BASE_URL")
	}

	dir, err := os.MkdirTemp("", "speechcheck")
	if err != nil {
		log.Fatalf("创建临时目录失败: %v", err)
	}
	defer os.RemoveAll(dir)

	client := speech.NewTTSClient(cfg.Speech, dir)
	if err := client.Synthesize(ctx, text, "speechcheck.wav"); err != nil {
		log.Fatalf("TTS 合成失败: %v", err)
	}

	info, err := os.Stat(dir + "/speechcheck.wav")
	if err != nil {
		log.Fatalf("合成结果缺失: %v", err)
	}
	log.Printf("TTS 合成成功，音频大小 %d 字节", info.Size())
}

func checkASR(ctx context.Context, cfg *config.Config, audioPath string) {
	if !cfg.Speech.ASREnabled() {
		log.Fatal("ASR 凭证未配置，请设置 BAIDU_API_KEY 与 BAIDU_SECRET_KEY")
	}
	if audioPath == "" {
		log.Fatal("请通过 -audio 提供输入音频文件")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("读取音频文件失败: %v", err)
	}

	svc := speech.NewService(cfg.Speech)
	text, err := svc.Transcribe(ctx, audio)
	if err != nil {
		log.Fatalf("ASR 识别失败: %v", err)
	}
	log.Printf("ASR 识别成功: %s", text)
}
