package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/settings"
)

// doneSentinel 流结束哨兵
const doneSentinel = "[DONE]"

// StreamChunk 流式补全的增量块
type StreamChunk struct {
	Content string `json:"content"`
}

// CompletionRequest 推理后端补全请求
type CompletionRequest struct {
	Model         string   `json:"model"`
	Prompt        string   `json:"prompt"`
	Temperature   float64  `json:"temperature"`
	MaxTokens     int      `json:"max_tokens"`
	TopP          float64  `json:"top_p"`
	RepeatPenalty float64  `json:"repeat_penalty"`
	Stream        bool     `json:"stream"`
	Stop          []string `json:"stop"`
}

// Client 推理后端客户端
// 生成调用不设超时，推理可能任意慢；取消靠请求上下文传递，
// 客户端断开时上层 cancel 会关掉到后端的连接。
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建推理后端客户端
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// BaseURL 返回后端地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CompletionStream 流式补全
// 后端按行输出 JSON 块，可带 "data:" 前缀，以 [DONE] 哨兵收尾。
// 坏行记日志后跳过，不中断整个流；首字节前的请求失败走 errChan。
func (c *Client) CompletionStream(ctx context.Context, model, prompt string, sampling settings.Sampling, stop []string) (<-chan StreamChunk, <-chan error) {
	chunkChan := make(chan StreamChunk, 10)
	errChan := make(chan error, 1)

	go func() {
		defer close(chunkChan)
		defer close(errChan)

		started := time.Now()
		metrics.CompletionRequestsTotal.WithLabelValues(model).Inc()

		body, err := json.Marshal(CompletionRequest{
			Model:         model,
			Prompt:        prompt,
			Temperature:   sampling.Temperature,
			MaxTokens:     sampling.MaxTokens,
			TopP:          sampling.TopP,
			RepeatPenalty: sampling.RepeatPenalty,
			Stream:        true,
			Stop:          stop,
		})
		if err != nil {
			errChan <- fmt.Errorf("序列化补全请求失败: %w", err)
			return
		}

		url := fmt.Sprintf("%s/completion", c.baseURL)
		httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			errChan <- fmt.Errorf("创建 HTTP 请求失败: %w", err)
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			errChan <- fmt.Errorf("推理后端调用失败: %w", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			errChan <- fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(bodyBytes))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if line == doneSentinel {
				break
			}

			var chunk StreamChunk
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				logger.Warn("跳过无法解析的流式响应行",
					zap.String("line", line),
					zap.Error(err))
				continue
			}

			metrics.CompletionChunksTotal.WithLabelValues(model).Inc()
			select {
			case chunkChan <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			// 首块之后的流中断：已转发的内容保持有效
			logger.Warn("读取流式响应中断", zap.Error(err))
		}

		metrics.CompletionDuration.WithLabelValues(model).Observe(time.Since(started).Seconds())
	}()

	return chunkChan, errChan
}
