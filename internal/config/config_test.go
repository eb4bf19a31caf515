package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("读取配置文件", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9090
  mode: release
backend:
  base_url: http://127.0.0.1:8080
prompt:
  token_budget: 4000
`)

		cfg, err := Load("test", path)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "release", cfg.Server.Mode)
		assert.Equal(t, "http://127.0.0.1:8080", cfg.Backend.BaseURL)
		assert.Equal(t, 4000, cfg.Prompt.TokenBudget)
	})

	t.Run("缺省项填默认值", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9090
`)

		cfg, err := Load("test", path)
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:5000", cfg.Backend.BaseURL)
		assert.Equal(t, 5, cfg.Backend.DiscoveryTimeout)
		assert.Equal(t, 8000, cfg.Prompt.TokenBudget)
		assert.Equal(t, 20, cfg.Prompt.MessageOverhead)
		assert.Equal(t, 30, cfg.Prompt.HistoryWindow)
		assert.Equal(t, 10000, cfg.Prompt.WordCeiling)
		assert.Equal(t, 2, cfg.Prompt.MaxMemories)
		assert.Equal(t, 3, cfg.Memory.HighWeight)
		assert.Equal(t, 1, cfg.Memory.LowWeight)
	})

	t.Run("数据目录在根路径下展开", func(t *testing.T) {
		path := writeConfig(t, `
data:
  base_path: /var/lib/chatui
`)

		cfg, err := Load("test", path)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/var/lib/chatui", "characters"), cfg.Data.CharactersDir)
		assert.Equal(t, filepath.Join("/var/lib/chatui", "chats"), cfg.Data.ChatsDir)
		assert.Equal(t, filepath.Join("/var/lib/chatui", "memories"), cfg.Data.MemoriesDir)
		assert.Equal(t, filepath.Join("/var/lib/chatui", "settings.json"), cfg.Data.SettingsFile)
	})

	t.Run("环境变量覆盖配置文件", func(t *testing.T) {
		t.Setenv("APP_BACKEND_BASE_URL", "http://10.0.0.2:5000")
		path := writeConfig(t, `
backend:
  base_url: http://127.0.0.1:5000
`)

		cfg, err := Load("test", path)
		require.NoError(t, err)
		assert.Equal(t, "http://10.0.0.2:5000", cfg.Backend.BaseURL)
	})

	t.Run("配置文件不存在", func(t *testing.T) {
		_, err := Load("test", filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
