package chat

// 消息角色，与历史文件中的 role 字段保持一致。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 持久化的单条对话消息。旧格式文件里 timestamp 和 audio_file
// 可能整体缺失，omitempty 保证这类文件原样往返。
type Message struct {
	Role          string `json:"role"`
	Content       string `json:"content"`
	Timestamp     int64  `json:"timestamp,omitempty"`
	AudioFile     string `json:"audio_file,omitempty"`
	IsIdleMessage bool   `json:"is_idle_message,omitempty"`
}

// DayFile 一个自然日的聊天记录文件结构。
type DayFile struct {
	Date     string    `json:"date"`
	Messages []Message `json:"messages"`
}

// DayFileInfo 历史记录列表中的一项。
type DayFileInfo struct {
	Filename     string `json:"filename"`
	Date         string `json:"date"`
	MessageCount int    `json:"message_count"`
}
