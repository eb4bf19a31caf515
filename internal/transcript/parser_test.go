package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessages(t *testing.T) {
	resolver := NewResolver([]string{"Alex"}, []string{"Gem"})

	t.Run("按发言人切分并解析角色", func(t *testing.T) {
		content := "Alex: Hello there\n\nGem: Hi! How can I help?\n\n"
		messages := ParseMessages(content, resolver)

		require.Len(t, messages, 2)
		assert.Equal(t, "user", messages[0].Role)
		assert.Equal(t, "Hello there", messages[0].Content)
		assert.Equal(t, "assistant", messages[1].Role)
		assert.Equal(t, "Gem", messages[1].Speaker)
	})

	t.Run("正文换行并入上一条消息", func(t *testing.T) {
		content := "Gem: First line\nsecond line\n\nstill the same message\n\n"
		messages := ParseMessages(content, resolver)

		require.Len(t, messages, 1)
		assert.Contains(t, messages[0].Content, "First line")
		assert.Contains(t, messages[0].Content, "second line")
		assert.Contains(t, messages[0].Content, "still the same message")
	})

	t.Run("未知名字的冒号前缀按正文处理", func(t *testing.T) {
		content := "Alex: The recipe needs:\nSugar: two cups\n\n"
		messages := ParseMessages(content, resolver)

		require.Len(t, messages, 1)
		assert.Contains(t, messages[0].Content, "Sugar: two cups")
	})

	t.Run("超长冒号前缀按正文处理", func(t *testing.T) {
		content := "Gem: intro\nThis is a very long sentence that happens to contain: a colon\n\n"
		messages := ParseMessages(content, resolver)
		require.Len(t, messages, 1)
	})

	t.Run("发言人匹配不区分大小写", func(t *testing.T) {
		messages := ParseMessages("alex: hi\n\n", resolver)
		require.Len(t, messages, 1)
		assert.Equal(t, "user", messages[0].Role)
	})

	t.Run("空文本返回空列表", func(t *testing.T) {
		assert.Empty(t, ParseMessages("", resolver))
	})
}
