package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nightcoffee/elysia-chat/internal/model/chat"
)

var (
	ErrIndexOutOfRange   = errors.New("message index out of range")
	ErrTimestampNotFound = errors.New("no message with that timestamp")
	ErrDateNotFound      = errors.New("no history for that date")
)

// Store 独占管理当天的对话记录及其按日落盘的文件。
// 每次变更整体覆写当天文件；落盘失败只记日志，不影响内存状态。
type Store struct {
	mu  sync.Mutex
	dir string
	now func() time.Time

	messages     []chat.Message
	customPrompt string
	contextText  string
}

// NewStore 创建存储实例并加载当天已有的聊天记录。
// now 注入时间来源，便于测试按固定日期运行。
func NewStore(dir string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}

	s := &Store{
		dir:      dir,
		now:      now,
		messages: make([]chat.Message, 0, 16),
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[history] 创建聊天记录目录失败: %v", err)
	}

	s.messages = s.loadDate(s.today())
	log.Printf("[history] 已加载今天的聊天记录: %d 条消息", len(s.messages))
	return s
}

func (s *Store) today() string {
	return s.now().Format("2006-01-02")
}

// FilenameForDate 根据日期推导聊天记录文件名。
func FilenameForDate(date string) string {
	return fmt.Sprintf("chat_%s.json", date)
}

// loadDate 读取指定日期的消息列表。文件缺失或解析失败都按空历史处理。
func (s *Store) loadDate(date string) []chat.Message {
	path := filepath.Join(s.dir, FilenameForDate(date))

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[history] 读取聊天记录失败 %s: %v", path, err)
		}
		return make([]chat.Message, 0, 16)
	}

	var day chat.DayFile
	if err := json.Unmarshal(raw, &day); err != nil {
		log.Printf("[history] 解析聊天记录失败 %s: %v", path, err)
		return make([]chat.Message, 0, 16)
	}

	if day.Messages == nil {
		return make([]chat.Message, 0, 16)
	}
	return day.Messages
}

// persistLocked 将当前消息整体写入当天文件。调用方必须持有 s.mu。
func (s *Store) persistLocked() {
	day := chat.DayFile{
		Date:     s.today(),
		Messages: s.messages,
	}

	raw, err := json.MarshalIndent(day, "", "  ")
	if err != nil {
		log.Printf("[history] 序列化聊天记录失败: %v", err)
		return
	}

	path := filepath.Join(s.dir, FilenameForDate(day.Date))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		log.Printf("[history] 保存聊天记录失败 %s: %v", path, err)
	}
}

// AppendTurn 追加一轮对话（用户消息 + 助手回复）并落盘。
func (s *Store) AppendTurn(user, assistant chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, user, assistant)
	s.persistLocked()
}

// AppendIdleMessage 追加一条待机消息并落盘。待机消息不经过大模型，
// 也不生成新音频，前端播放预录的静态资源。
func (s *Store) AppendIdleMessage(text string) chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := chat.Message{
		Role:          chat.RoleAssistant,
		Content:       text,
		Timestamp:     s.now().Unix(),
		IsIdleMessage: true,
	}
	s.messages = append(s.messages, msg)
	s.persistLocked()
	return msg
}

// Snapshot 返回当天消息的副本。
func (s *Store) Snapshot() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]chat.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// Len 返回当天消息条数。
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// MessageAt 返回指定下标的消息。
func (s *Store) MessageAt(index int) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.messages) {
		return chat.Message{}, ErrIndexOutOfRange
	}
	return s.messages[index], nil
}

// Clear 清空当天记录并写入空的聊天记录文件。不影响其他日期的文件。
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]chat.Message, 0, 16)
	s.persistLocked()
}

// DeleteByIndex 删除指定下标的消息，返回被删除的消息和剩余条数。
// 关联的音频文件不随消息删除，允许留下孤儿文件。
func (s *Store) DeleteByIndex(index int) (chat.Message, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.messages) {
		return chat.Message{}, len(s.messages), ErrIndexOutOfRange
	}

	removed := s.messages[index]
	s.messages = append(s.messages[:index], s.messages[index+1:]...)
	s.persistLocked()
	return removed, len(s.messages), nil
}

// DeleteByTimestamp 删除第一条时间戳完全匹配的消息。
// 旧格式消息没有时间戳，永远不会被该操作命中。
func (s *Store) DeleteByTimestamp(timestamp int64) (chat.Message, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, msg := range s.messages {
		if msg.Timestamp != 0 && msg.Timestamp == timestamp {
			removed := s.messages[i]
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			s.persistLocked()
			return removed, len(s.messages), nil
		}
	}

	return chat.Message{}, len(s.messages), ErrTimestampNotFound
}

// ListDayFiles 枚举全部聊天记录文件，按日期倒序排列。
// 解析失败的文件跳过并记日志。
func (s *Store) ListDayFiles() []chat.DayFileInfo {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Printf("[history] 枚举聊天记录目录失败: %v", err)
		return []chat.DayFileInfo{}
	}

	infos := make([]chat.DayFileInfo, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "chat_") || !strings.HasSuffix(name, ".json") {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			log.Printf("[history] 读取历史文件失败 %s: %v", name, err)
			continue
		}

		var day chat.DayFile
		if err := json.Unmarshal(raw, &day); err != nil {
			log.Printf("[history] 解析历史文件失败 %s: %v", name, err)
			continue
		}

		infos = append(infos, chat.DayFileInfo{
			Filename:     name,
			Date:         day.Date,
			MessageCount: len(day.Messages),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Date > infos[j].Date
	})
	return infos
}

// LoadByDate 只读取指定日期的消息，不改变当天的内存状态。
func (s *Store) LoadByDate(date string) []chat.Message {
	return s.loadDate(date)
}

// DeleteByDate 整体删除指定日期的聊天记录文件。
func (s *Store) DeleteByDate(date string) error {
	path := filepath.Join(s.dir, FilenameForDate(date))

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrDateNotFound
		}
		return fmt.Errorf("检查历史文件失败: %w", err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("删除历史文件失败: %w", err)
	}

	// 删掉的是当天文件时，内存中的记录一并清空。
	s.mu.Lock()
	if date == s.today() {
		s.messages = make([]chat.Message, 0, 16)
	}
	s.mu.Unlock()

	log.Printf("[history] 已删除历史记录: %s", FilenameForDate(date))
	return nil
}

// SetCustomPrompt 覆盖默认系统 prompt，后写覆盖先写。
func (s *Store) SetCustomPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customPrompt = prompt
}

// SetContext 设置额外的对话上下文，后写覆盖先写。
func (s *Store) SetContext(contextText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextText = contextText
}

// Settings 返回当前的 prompt 与上下文设置。
func (s *Store) Settings() (customPrompt, contextText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customPrompt, s.contextText
}
