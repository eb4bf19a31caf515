package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore(t *testing.T) {
	t.Run("创建后读回", func(t *testing.T) {
		store := NewUserStore(t.TempDir())

		user := &User{Name: "alex", DisplayName: "Alex", Bio: "Likes hiking."}
		require.NoError(t, store.Create(user))

		loaded, err := store.Load("alex")
		require.NoError(t, err)
		assert.Equal(t, user, loaded)
	})

	t.Run("展示名缺省回落到用户名", func(t *testing.T) {
		store := NewUserStore(t.TempDir())
		require.NoError(t, store.Create(&User{Name: "alex"}))

		loaded, err := store.Load("alex")
		require.NoError(t, err)
		assert.Equal(t, "alex", loaded.DisplayName)
	})

	t.Run("重复创建报已存在", func(t *testing.T) {
		store := NewUserStore(t.TempDir())
		require.NoError(t, store.Create(&User{Name: "alex"}))

		err := store.Create(&User{Name: "alex"})
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("删除不存在的用户", func(t *testing.T) {
		store := NewUserStore(t.TempDir())
		err := store.Delete("nobody")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("列表排除索引文件并排序", func(t *testing.T) {
		store := NewUserStore(t.TempDir())
		require.NoError(t, store.Create(&User{Name: "zoe"}))
		require.NoError(t, store.Create(&User{Name: "alex"}))

		names, err := store.List()
		require.NoError(t, err)
		assert.Equal(t, []string{"alex", "zoe"}, names)
	})
}

func TestUserStoreSetActive(t *testing.T) {
	t.Run("至多一个激活", func(t *testing.T) {
		store := NewUserStore(t.TempDir())
		require.NoError(t, store.Create(&User{Name: "alex"}))
		require.NoError(t, store.Create(&User{Name: "zoe"}))

		require.NoError(t, store.SetActive("alex"))
		require.NoError(t, store.SetActive("zoe"))

		alex, err := store.Load("alex")
		require.NoError(t, err)
		zoe, err := store.Load("zoe")
		require.NoError(t, err)
		assert.False(t, alex.Active)
		assert.True(t, zoe.Active)
	})

	t.Run("激活不存在的用户", func(t *testing.T) {
		store := NewUserStore(t.TempDir())
		require.NoError(t, store.Create(&User{Name: "alex"}))

		err := store.SetActive("nobody")
		assert.ErrorIs(t, err, ErrUserNotFound)

		alex, loadErr := store.Load("alex")
		require.NoError(t, loadErr)
		assert.False(t, alex.Active)
	})
}

func TestUserStoreActiveUser(t *testing.T) {
	t.Run("返回激活用户", func(t *testing.T) {
		store := NewUserStore(t.TempDir())
		require.NoError(t, store.Create(&User{Name: "alex"}))
		require.NoError(t, store.Create(&User{Name: "zoe"}))
		require.NoError(t, store.SetActive("zoe"))

		name, err := store.ActiveUser()
		require.NoError(t, err)
		assert.Equal(t, "zoe", name)
	})

	t.Run("无人激活回退到首个", func(t *testing.T) {
		store := NewUserStore(t.TempDir())
		require.NoError(t, store.Create(&User{Name: "zoe"}))
		require.NoError(t, store.Create(&User{Name: "alex"}))

		name, err := store.ActiveUser()
		require.NoError(t, err)
		assert.Equal(t, "alex", name)
	})

	t.Run("没有任何用户返回空串", func(t *testing.T) {
		store := NewUserStore(t.TempDir())

		name, err := store.ActiveUser()
		require.NoError(t, err)
		assert.Empty(t, name)
	})
}
