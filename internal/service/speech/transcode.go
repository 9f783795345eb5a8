package speech

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// TranscodeToPCM 把浏览器录制的压缩音频转成 16kHz 单声道 s16le PCM。
// 转换交给外部 ffmpeg 完成，这是识别协作方的前置条件。
func TranscodeToPCM(ctx context.Context, audio []byte) ([]byte, error) {
	dir := os.TempDir()
	id := uuid.NewString()
	inputPath := filepath.Join(dir, "voice_"+id+".webm")
	outputPath := filepath.Join(dir, "voice_"+id+".pcm")

	if err := os.WriteFile(inputPath, audio, 0o600); err != nil {
		return nil, fmt.Errorf("写入临时音频失败: %w", err)
	}
	defer cleanupTemp(inputPath)
	defer cleanupTemp(outputPath)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", inputPath,
		"-f", "s16le",
		"-ac", "1",
		"-ar", "16000",
		"-y",
		outputPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("音频格式转换失败: %w: %s", err, tail(output, 256))
	}

	pcm, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("读取转换结果失败: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("转换结果为空")
	}

	return pcm, nil
}

func cleanupTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("[speech] 清理临时文件失败 %s: %v", path, err)
	}
}

func tail(output []byte, n int) string {
	if len(output) <= n {
		return string(output)
	}
	return string(output[len(output)-n:])
}
