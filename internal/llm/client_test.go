package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/logger"
	"backend/internal/settings"
)

func init() {
	_ = logger.Init("debug", "console", "stdout")
}

// collectStream 读尽流并返回拼好的文本与首个错误
func collectStream(t *testing.T, chunks <-chan StreamChunk, errs <-chan error) (string, error) {
	t.Helper()
	var sb strings.Builder
	for chunks != nil || errs != nil {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			sb.WriteString(chunk.Content)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return sb.String(), err
			}
		case <-time.After(5 * time.Second):
			t.Fatal("读取流式响应超时")
		}
	}
	return sb.String(), nil
}

func TestCompletionStream(t *testing.T) {
	t.Run("拼接纯 JSON 行", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/completion", r.URL.Path)

			var req CompletionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.True(t, req.Stream)
			assert.Equal(t, "test-model", req.Model)
			assert.Contains(t, req.Stop, "<|im_end|>")

			_, _ = w.Write([]byte("{\"content\":\"Hello\"}\n{\"content\":\", world\"}\n[DONE]\n"))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		chunks, errs := client.CompletionStream(context.Background(), "test-model", "prompt",
			settings.DefaultSampling(), []string{"<|im_end|>", "\n<|im_start|>"})

		text, err := collectStream(t, chunks, errs)
		require.NoError(t, err)
		assert.Equal(t, "Hello, world", text)
	})

	t.Run("兼容 data 前缀", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("data: {\"content\":\"A\"}\n\ndata: {\"content\":\"B\"}\n\ndata: [DONE]\n"))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		chunks, errs := client.CompletionStream(context.Background(), "m", "p", settings.DefaultSampling(), nil)

		text, err := collectStream(t, chunks, errs)
		require.NoError(t, err)
		assert.Equal(t, "AB", text)
	})

	t.Run("坏行跳过不中断", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{\"content\":\"ok\"}\nnot json at all\n{\"content\":\" still ok\"}\n[DONE]\n"))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		chunks, errs := client.CompletionStream(context.Background(), "m", "p", settings.DefaultSampling(), nil)

		text, err := collectStream(t, chunks, errs)
		require.NoError(t, err)
		assert.Equal(t, "ok still ok", text)
	})

	t.Run("哨兵后内容被忽略", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{\"content\":\"before\"}\n[DONE]\n{\"content\":\"after\"}\n"))
		}))
		defer server.Close()

		client := NewClient(server.URL)
		chunks, errs := client.CompletionStream(context.Background(), "m", "p", settings.DefaultSampling(), nil)

		text, err := collectStream(t, chunks, errs)
		require.NoError(t, err)
		assert.Equal(t, "before", text)
	})

	t.Run("非 200 响应走错误通道", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model overloaded", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClient(server.URL)
		chunks, errs := client.CompletionStream(context.Background(), "m", "p", settings.DefaultSampling(), nil)

		text, err := collectStream(t, chunks, errs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
		assert.Empty(t, text)
	})

	t.Run("后端不可达走错误通道", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1")
		chunks, errs := client.CompletionStream(context.Background(), "m", "p", settings.DefaultSampling(), nil)

		_, err := collectStream(t, chunks, errs)
		require.Error(t, err)
	})
}

func TestModelHolder(t *testing.T) {
	t.Run("探测取首个模型", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/models", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"id":"qwen2.5-7b","object":"model"},{"id":"other","object":"model"}]}`))
		}))
		defer server.Close()

		holder := NewModelHolder(server.URL, 2*time.Second)
		assert.Empty(t, holder.Current())

		name, err := holder.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "qwen2.5-7b", name)
		assert.Equal(t, "qwen2.5-7b", holder.Current())
	})

	t.Run("空模型列表报错", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		defer server.Close()

		holder := NewModelHolder(server.URL, 2*time.Second)
		_, err := holder.Refresh(context.Background())
		assert.ErrorIs(t, err, ErrNoModels)
	})

	t.Run("后端不可达保留旧模型名", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"id":"qwen2.5-7b","object":"model"}]}`))
		}))

		holder := NewModelHolder(server.URL, 2*time.Second)
		_, err := holder.Refresh(context.Background())
		require.NoError(t, err)
		server.Close()

		_, err = holder.Refresh(context.Background())
		require.Error(t, err)
		assert.Equal(t, "qwen2.5-7b", holder.Current())
	})
}
