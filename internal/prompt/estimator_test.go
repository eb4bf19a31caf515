package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	t.Run("空文本为零", func(t *testing.T) {
		assert.Equal(t, 0, Estimate(""))
	})

	t.Run("单词逐串计数", func(t *testing.T) {
		assert.Equal(t, 3, Estimate("hello big world"))
	})

	t.Run("标点逐个计数", func(t *testing.T) {
		// hello + , + world + ! + !
		assert.Equal(t, 5, Estimate("hello, world!!"))
	})

	t.Run("下划线属于单词串", func(t *testing.T) {
		assert.Equal(t, 1, Estimate("snake_case_name"))
	})

	t.Run("标点密集文本偏向高估", func(t *testing.T) {
		text := "a... b?! (c)"
		// a . . . b ? ! ( c ) = 10
		assert.GreaterOrEqual(t, Estimate(text), 10)
	})
}
