package chat

import (
	"regexp"
	"strings"
)

// 成对括号里的内容视为舞台说明，整段剔除。循环应用以处理嵌套。
var bracketSpans = []*regexp.Regexp{
	regexp.MustCompile(`（[^（）]*）`),
	regexp.MustCompile(`\([^()]*\)`),
	regexp.MustCompile(`\[[^\[\]]*\]`),
	regexp.MustCompile(`【[^【】]*】`),
	regexp.MustCompile(`\{[^{}]*\}`),
	regexp.MustCompile(`《[^《》]*》`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

const (
	strayBracketChars = "（）()[]【】{}《》"
	quoteChars        = "\"'“”‘’「」『』"
)

// CleanReply 清洗模型回复：去掉括号舞台说明与引号，压缩空白。
// 未配对的残留括号字符也一并去掉。
func CleanReply(text string) string {
	for {
		previous := text
		for _, span := range bracketSpans {
			text = span.ReplaceAllString(text, "")
		}
		if text == previous {
			break
		}
	}

	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(strayBracketChars, r) || strings.ContainsRune(quoteChars, r) {
			return -1
		}
		return r
	}, text)

	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
