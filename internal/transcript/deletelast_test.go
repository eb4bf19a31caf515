package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteLast(t *testing.T) {
	t.Run("JSON数组格式", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir)
		path := filepath.Join(dir, "gem.json")
		require.NoError(t, os.WriteFile(path,
			[]byte(`[{"role":"user","content":"a"},{"role":"assistant","content":"b"},{"role":"user","content":"c"}]`), 0644))

		remaining, err := store.DeleteLast("Gem", 2)
		require.NoError(t, err)
		assert.Equal(t, 1, remaining)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var list []map[string]string
		require.NoError(t, json.Unmarshal(data, &list))
		require.Len(t, list, 1)
		assert.Equal(t, "a", list[0]["content"])
	})

	t.Run("JSON对象格式保留其他字段", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir)
		path := filepath.Join(dir, "gem.json")
		require.NoError(t, os.WriteFile(path,
			[]byte(`{"title":"My Chat","messages":[{"content":"a"},{"content":"b"}]}`), 0644))

		remaining, err := store.DeleteLast("Gem", 1)
		require.NoError(t, err)
		assert.Equal(t, 1, remaining)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var wrapper map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &wrapper))
		assert.Contains(t, wrapper, "title")

		var msgs []map[string]string
		require.NoError(t, json.Unmarshal(wrapper["messages"], &msgs))
		assert.Len(t, msgs, 1)
	})

	t.Run("纯文本格式按空行分块", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir)
		path := filepath.Join(dir, "gem.json")
		require.NoError(t, os.WriteFile(path, []byte("Alex: one\n\nGem: two\n\nAlex: three\n\n"), 0644))

		remaining, err := store.DeleteLast("Gem", 1)
		require.NoError(t, err)
		assert.Equal(t, 2, remaining)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "Alex: one\n\nGem: two\n\n", string(data))
	})

	t.Run("删除数量超过总数时清空", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir)
		path := filepath.Join(dir, "gem.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"content":"a"}]`), 0644))

		remaining, err := store.DeleteLast("Gem", 10)
		require.NoError(t, err)
		assert.Equal(t, 0, remaining)
	})

	t.Run("会话文件不存在报错", func(t *testing.T) {
		store := NewStore(t.TempDir())
		_, err := store.DeleteLast("Nobody", 1)
		assert.ErrorIs(t, err, ErrTranscriptNotFound)
	})
}
