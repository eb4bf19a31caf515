package prompt

import (
	"strings"
	"unicode"
)

// ChatML 轮次标记
const (
	TurnStart = "<|im_start|>"
	TurnEnd   = "<|im_end|>"
)

// StopSequences 生成停止序列：轮次结束标记，或换行后紧跟新轮次开始标记
func StopSequences() []string {
	return []string{TurnEnd, "\n" + TurnStart}
}

// Serialize 把消息列表序列化成 ChatML 文本
// 每条消息包成一个角色块，最后追加一个无内容的 assistant 开块作为生成点。
func Serialize(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(TurnStart)
		b.WriteString(m.Role)
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString("\n")
		b.WriteString(TurnEnd)
		b.WriteString("\n")
	}
	b.WriteString(TurnStart)
	b.WriteString(RoleAssistant)
	b.WriteString("\n")
	return b.String()
}

// ClampWords 对序列化后的文本做最终词数硬上限
// 超限时保留末尾 ceiling 个词，再向前对齐到最近的轮次开始标记，
// 保证截断不会留下残缺的角色块。空字节无条件剔除。
func ClampWords(text string, ceiling int) string {
	text = strings.ReplaceAll(text, "\x00", "")
	if ceiling <= 0 {
		return text
	}

	offset := tailWordsOffset(text, ceiling)
	if offset <= 0 {
		return text
	}

	clamped := text[offset:]
	if idx := strings.Index(clamped, TurnStart); idx > 0 {
		clamped = clamped[idx:]
	}
	return clamped
}

// tailWordsOffset 返回保留末尾 n 个词的切割偏移，词数不超限返回 0
// 按字节偏移切割而不是重新拼接，保留原文里的换行。
func tailWordsOffset(text string, n int) int {
	count := 0
	inWord := false
	offset := 0
	for i := len(text) - 1; i >= 0; i-- {
		if unicode.IsSpace(rune(text[i])) {
			inWord = false
			continue
		}
		if !inWord {
			inWord = true
			count++
			if count > n {
				return offset
			}
		}
		offset = i
	}
	return 0
}
