package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Run("追加后读回内容一致", func(t *testing.T) {
		store := NewStore(t.TempDir())

		err := store.Append("Gem", "Favorite Food", []string{"pizza", "food"}, "The user loves pizza.")
		require.NoError(t, err)

		blocks, err := store.Load("Gem")
		require.NoError(t, err)
		require.Len(t, blocks, 1)

		assert.Equal(t, "Favorite Food", blocks[0].Title)
		assert.Equal(t, []string{"pizza", "food"}, blocks[0].Keywords)
		assert.Equal(t, "The user loves pizza.", blocks[0].Body)
	})

	t.Run("多次追加保持顺序", func(t *testing.T) {
		store := NewStore(t.TempDir())

		require.NoError(t, store.Append("Gem", "First", []string{"a"}, "one"))
		require.NoError(t, store.Append("Gem", "Second", []string{"b"}, "two"))

		blocks, err := store.Load("Gem")
		require.NoError(t, err)
		require.Len(t, blocks, 2)
		assert.Equal(t, "First", blocks[0].Title)
		assert.Equal(t, "Second", blocks[1].Title)
	})

	t.Run("角色名大小写映射到同一文件", func(t *testing.T) {
		store := NewStore(t.TempDir())

		require.NoError(t, store.Append("Gem", "T", []string{"k"}, "body"))
		blocks, err := store.Load("GEM")
		require.NoError(t, err)
		assert.Len(t, blocks, 1)
	})

	t.Run("文件不存在返回空列表", func(t *testing.T) {
		store := NewStore(t.TempDir())
		blocks, err := store.Load("Nobody")
		require.NoError(t, err)
		assert.Empty(t, blocks)
	})
}

func TestAppendRaw(t *testing.T) {
	t.Run("保证块以空行结尾", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir)

		require.NoError(t, store.AppendRaw("Gem", "# Memory: Raw\n\nsome text"))

		data, err := os.ReadFile(filepath.Join(dir, "gem_memory.txt"))
		require.NoError(t, err)
		assert.Equal(t, "# Memory: Raw\n\nsome text\n\n", string(data))
	})
}

func TestParseBlocks(t *testing.T) {
	t.Run("按标记切块", func(t *testing.T) {
		text := "# Memory: One\nKeywords: a, b.\n\nbody one\n\n# Memory: Two\nKeywords: c.\n\nbody two\n\n"
		blocks := ParseBlocks(text)
		require.Len(t, blocks, 2)
		assert.Equal(t, "One", blocks[0].Title)
		assert.Equal(t, []string{"a", "b"}, blocks[0].Keywords)
		assert.Equal(t, "body one", blocks[0].Body)
		assert.Equal(t, "Two", blocks[1].Title)
	})

	t.Run("关键词按逗号分号冒号切分并小写", func(t *testing.T) {
		blocks := ParseBlocks("# Memory: T\nKeywords: Alpha, BETA; gamma.\n\nbody\n")
		require.Len(t, blocks, 1)
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, blocks[0].Keywords)
	})

	t.Run("缺标题时用占位标题", func(t *testing.T) {
		blocks := ParseBlocks("# Memory:\n\nonly a body line\n")
		require.Len(t, blocks, 1)
		assert.Equal(t, "only a body line", blocks[0].Title)
	})

	t.Run("多行正文拼接", func(t *testing.T) {
		blocks := ParseBlocks("# Memory: T\nKeywords: k.\n\nline one\nline two\n")
		require.Len(t, blocks, 1)
		assert.Equal(t, "line one line two", blocks[0].Body)
	})
}
