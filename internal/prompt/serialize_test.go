package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialize(t *testing.T) {
	t.Run("每条消息包成角色块", func(t *testing.T) {
		messages := []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hello"},
		}

		out := Serialize(messages)
		assert.Contains(t, out, TurnStart+"system\nsys\n"+TurnEnd)
		assert.Contains(t, out, TurnStart+"user\nhello\n"+TurnEnd)
	})

	t.Run("末尾是开放的助手块", func(t *testing.T) {
		out := Serialize([]Message{{Role: RoleUser, Content: "hi"}})
		assert.True(t, strings.HasSuffix(out, TurnStart+"assistant\n"))
	})

	t.Run("停止序列含结束标记与新开块", func(t *testing.T) {
		stops := StopSequences()
		assert.Contains(t, stops, TurnEnd)
		assert.Contains(t, stops, "\n"+TurnStart)
	})
}

func TestClampWords(t *testing.T) {
	t.Run("未超限原样返回", func(t *testing.T) {
		text := Serialize([]Message{{Role: RoleUser, Content: "short message"}})
		assert.Equal(t, text, ClampWords(text, 10000))
	})

	t.Run("空字节无条件剔除", func(t *testing.T) {
		out := ClampWords("abc\x00def", 10000)
		assert.Equal(t, "abcdef", out)
	})

	t.Run("截断后对齐到轮次开始标记", func(t *testing.T) {
		var messages []Message
		for i := 0; i < 100; i++ {
			messages = append(messages, Message{
				Role:    RoleUser,
				Content: strings.Repeat("lorem ipsum dolor sit amet ", 10),
			})
		}
		text := Serialize(messages)

		out := ClampWords(text, 500)
		require.Less(t, len(out), len(text))
		assert.True(t, strings.HasPrefix(out, TurnStart),
			"截断输出必须从轮次开始标记处起始")
	})

	t.Run("截断保留末尾内容", func(t *testing.T) {
		var messages []Message
		for i := 0; i < 100; i++ {
			messages = append(messages, Message{
				Role:    RoleUser,
				Content: strings.Repeat("filler words here ", 20),
			})
		}
		messages = append(messages, Message{Role: RoleUser, Content: "the final unique marker"})
		text := Serialize(messages)

		out := ClampWords(text, 200)
		assert.Contains(t, out, "the final unique marker")
		assert.True(t, strings.HasSuffix(out, TurnStart+"assistant\n"))
	})
}
