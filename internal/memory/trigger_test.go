package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"backend/internal/logger"
)

func init() {
	_ = logger.Init("debug", "console", "stdout")
}

func TestDetectTrigger(t *testing.T) {
	t.Run("保存动词配对触发", func(t *testing.T) {
		assert.True(t, DetectTrigger("please save this to memory"))
		assert.True(t, DetectTrigger("store that in your memory"))
		assert.True(t, DetectTrigger("add a memory and keep it"))
		assert.True(t, DetectTrigger("Memorize this in memory please"))
	})

	t.Run("只有记忆一词不触发", func(t *testing.T) {
		assert.False(t, DetectTrigger("memory leak in my code"))
		assert.False(t, DetectTrigger("I have a good memory"))
	})

	t.Run("只有动词不触发", func(t *testing.T) {
		assert.False(t, DetectTrigger("please remember my name is Alex"))
		assert.False(t, DetectTrigger("save this file for me"))
	})

	t.Run("动词与记忆相距过远不触发", func(t *testing.T) {
		assert.False(t, DetectTrigger(
			"save the document about the quarterly financial report we discussed at length during the meeting, memory"))
	})

	t.Run("清洗后再匹配", func(t *testing.T) {
		assert.True(t, DetectTrigger("<|im_start|>user\nsave this to memory<|im_end|>"))
	})
}

func TestCleanUtterance(t *testing.T) {
	t.Run("去掉标记和角色标签", func(t *testing.T) {
		cleaned := CleanUtterance("<|im_start|>user\nhello there<|im_end|>")
		assert.Equal(t, "hello there", cleaned)
	})

	t.Run("普通文本原样保留", func(t *testing.T) {
		assert.Equal(t, "just a message", CleanUtterance("just a message"))
	})
}
