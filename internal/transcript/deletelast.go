package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DeleteLast 从角色的会话文件末尾删掉 count 条消息，返回剩余条数
// 会话文件是 chats/<小写角色名>.json，历史上存在三种格式：
//   - JSON 数组 [ {...}, ... ]
//   - JSON 对象 { "messages": [ ... ] }
//   - 纯文本，消息之间空行分隔
//
// 三种都接受，回写时保持原格式。
func (s *Store) DeleteLast(character string, count int) (int, error) {
	if count < 1 {
		count = 1
	}

	filename := strings.ToLower(character) + ".json"
	lock := s.lockFor(filename)
	lock.Lock()
	defer lock.Unlock()

	path := filepath.Join(s.dir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("会话文件 %q: %w", filename, ErrTranscriptNotFound)
		}
		return 0, fmt.Errorf("读取会话文件失败: %w", err)
	}

	// JSON 数组格式
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		list = dropTail(list, count)
		return len(list), s.writeJSON(path, list)
	}

	// JSON 对象格式，messages 字段之外的键原样保留
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err == nil {
		if raw, ok := wrapper["messages"]; ok {
			var msgs []json.RawMessage
			if err := json.Unmarshal(raw, &msgs); err != nil {
				return 0, fmt.Errorf("会话文件 messages 字段格式错误: %w", err)
			}
			msgs = dropTail(msgs, count)
			encoded, err := json.Marshal(msgs)
			if err != nil {
				return 0, fmt.Errorf("序列化会话消息失败: %w", err)
			}
			wrapper["messages"] = encoded
			return len(msgs), s.writeJSON(path, wrapper)
		}
	}

	// 纯文本格式，按空行分块
	blocks := splitTextBlocks(string(data))
	blocks = dropTail(blocks, count)
	out := strings.Join(blocks, "\n\n")
	if out != "" {
		out += "\n\n"
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return 0, fmt.Errorf("写入会话文件失败: %w", err)
	}
	return len(blocks), nil
}

func (s *Store) writeJSON(path string, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化会话文件失败: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0644); err != nil {
		return fmt.Errorf("写入会话文件失败: %w", err)
	}
	return nil
}

func dropTail[T any](items []T, count int) []T {
	if count >= len(items) {
		return items[:0]
	}
	return items[:len(items)-count]
}

func splitTextBlocks(content string) []string {
	var blocks []string
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) != "" {
			blocks = append(blocks, strings.TrimRight(block, "\n"))
		}
	}
	return blocks
}
