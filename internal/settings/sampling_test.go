package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplingStore(t *testing.T) {
	t.Run("文件缺失时落盘默认值", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.json")
		store := NewStore(path)

		sampling, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, DefaultSampling(), sampling)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var persisted Sampling
		require.NoError(t, json.Unmarshal(data, &persisted))
		assert.Equal(t, DefaultSampling(), persisted)
	})

	t.Run("保存后读回", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "settings.json"))

		saved := Sampling{Temperature: 0.5, MaxTokens: 1024, TopP: 0.9, RepeatPenalty: 1.05}
		require.NoError(t, store.Save(saved))

		loaded, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, saved, loaded)
	})

	t.Run("部分字段缺失时用默认值补齐", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"temperature": 0.3}`), 0644))
		store := NewStore(path)

		sampling, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, 0.3, sampling.Temperature)
		assert.Equal(t, DefaultSampling().MaxTokens, sampling.MaxTokens)
		assert.Equal(t, DefaultSampling().TopP, sampling.TopP)
	})
}

func TestSystemPromptStore(t *testing.T) {
	t.Run("文件缺失返回空串", func(t *testing.T) {
		store := NewSystemPromptStore(filepath.Join(t.TempDir(), "system_prompt.txt"))

		content, err := store.Load()
		require.NoError(t, err)
		assert.Empty(t, content)
	})

	t.Run("保存后读回", func(t *testing.T) {
		store := NewSystemPromptStore(filepath.Join(t.TempDir(), "system_prompt.txt"))

		require.NoError(t, store.Save("You are a helpful assistant."))
		content, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "You are a helpful assistant.", content)
	})
}
