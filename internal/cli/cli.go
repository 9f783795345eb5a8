package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	chatservice "github.com/nightcoffee/elysia-chat/internal/service/chat"
)

// CLI 命令行对话循环。quit/exit 退出，clear 清空历史，status 查看状态。
type CLI struct {
	chatSvc *chatservice.Service
	in      io.Reader
	out     io.Writer
}

// New 创建命令行界面
func New(chatSvc *chatservice.Service, in io.Reader, out io.Writer) *CLI {
	return &CLI{chatSvc: chatSvc, in: in, out: out}
}

// Run 运行读取循环，直到输入耗尽或用户退出。
func (c *CLI) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, "AI对话系统 - 命令行模式")
	fmt.Fprintln(c.out, "输入 'quit' 或 'exit' 退出")
	fmt.Fprintln(c.out, "输入 'clear' 清空对话历史")
	fmt.Fprintln(c.out, "输入 'status' 查看系统状态")
	fmt.Fprintln(c.out, strings.Repeat("-", 50))

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, "你: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "quit", "exit":
			fmt.Fprintln(c.out, "再见！")
			return nil
		case "clear":
			result := c.chatSvc.ClearHistory()
			fmt.Fprintf(c.out, "系统: %s\n", result.Message)
			continue
		case "status":
			status := c.chatSvc.Status()
			fmt.Fprintf(c.out, "系统状态: %+v\n", status)
			continue
		case "":
			continue
		}

		result := c.chatSvc.ProcessMessage(ctx, input, "", "")
		if result.Success {
			fmt.Fprintf(c.out, "AI: %s\n", result.TextResponse)
			if result.AudioPath != "" {
				fmt.Fprintf(c.out, "音频文件: %s\n", result.AudioPath)
			}
		} else {
			fmt.Fprintf(c.out, "错误: %s\n", result.Error)
		}
	}

	return scanner.Err()
}
