package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharacterStore(t *testing.T) {
	t.Run("创建后读回", func(t *testing.T) {
		store := NewCharacterStore(t.TempDir())

		card := &Character{Name: "Gem", MainPrompt: "You are Gem.", Scenario: "A cozy cafe"}
		require.NoError(t, store.Create(card))

		loaded, err := store.Load("Gem")
		require.NoError(t, err)
		assert.Equal(t, card, loaded)
	})

	t.Run("重复创建报已存在", func(t *testing.T) {
		store := NewCharacterStore(t.TempDir())
		require.NoError(t, store.Create(&Character{Name: "Gem"}))

		err := store.Create(&Character{Name: "Gem"})
		assert.ErrorIs(t, err, ErrCharacterExists)
	})

	t.Run("读取不存在的角色", func(t *testing.T) {
		store := NewCharacterStore(t.TempDir())
		_, err := store.Load("Nobody")
		assert.ErrorIs(t, err, ErrCharacterNotFound)
	})

	t.Run("列表排除索引文件并排序", func(t *testing.T) {
		store := NewCharacterStore(t.TempDir())
		require.NoError(t, store.Create(&Character{Name: "Zoe"}))
		require.NoError(t, store.Create(&Character{Name: "Gem"}))

		names, err := store.List()
		require.NoError(t, err)
		assert.Equal(t, []string{"Gem", "Zoe"}, names)
	})

	t.Run("复制自动生成副本名", func(t *testing.T) {
		store := NewCharacterStore(t.TempDir())
		require.NoError(t, store.Create(&Character{Name: "Gem", MainPrompt: "You are Gem."}))

		first, err := store.Duplicate("Gem")
		require.NoError(t, err)
		assert.Equal(t, "Gem - Copy", first)

		second, err := store.Duplicate("Gem")
		require.NoError(t, err)
		assert.Equal(t, "Gem - Copy 2", second)

		copied, err := store.Load(first)
		require.NoError(t, err)
		assert.Equal(t, "You are Gem.", copied.MainPrompt)
	})

	t.Run("重命名后旧名不可读", func(t *testing.T) {
		store := NewCharacterStore(t.TempDir())
		require.NoError(t, store.Create(&Character{Name: "Gem"}))

		require.NoError(t, store.Rename("Gem", "Ruby"))

		_, err := store.Load("Gem")
		assert.ErrorIs(t, err, ErrCharacterNotFound)
		loaded, err := store.Load("Ruby")
		require.NoError(t, err)
		assert.Equal(t, "Ruby", loaded.Name)
	})

	t.Run("重命名目标已存在", func(t *testing.T) {
		store := NewCharacterStore(t.TempDir())
		require.NoError(t, store.Create(&Character{Name: "Gem"}))
		require.NoError(t, store.Create(&Character{Name: "Ruby"}))

		err := store.Rename("Gem", "Ruby")
		assert.ErrorIs(t, err, ErrCharacterExists)
	})

	t.Run("删除后从列表消失", func(t *testing.T) {
		store := NewCharacterStore(t.TempDir())
		require.NoError(t, store.Create(&Character{Name: "Gem"}))

		require.NoError(t, store.Delete("Gem"))
		names, err := store.List()
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestOpeningLines(t *testing.T) {
	t.Run("未配置时返回关闭的空配置", func(t *testing.T) {
		store := NewCharacterStore(t.TempDir())

		lines, err := store.LoadOpeningLines("Gem")
		require.NoError(t, err)
		assert.False(t, lines.Enabled)
		assert.Empty(t, lines.Lines)
	})

	t.Run("保存后读回", func(t *testing.T) {
		store := NewCharacterStore(t.TempDir())

		saved := &OpeningLines{Enabled: true, Lines: []string{"Hello!", "Welcome back."}}
		require.NoError(t, store.SaveOpeningLines("Gem", saved))

		loaded, err := store.LoadOpeningLines("Gem")
		require.NoError(t, err)
		assert.Equal(t, saved, loaded)
	})
}
