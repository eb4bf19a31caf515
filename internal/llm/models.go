package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"backend/internal/logger"
)

// ErrNoModels 后端没有上报任何模型
var ErrNoModels = errors.New("inference backend reported no models")

// ModelHolder 当前激活模型名
// 模型名不是进程级全局变量：启动时探测一次，之后可通过 Refresh
// 随时重新探测，读取方拿到的是刷新后的快照。
type ModelHolder struct {
	mu      sync.RWMutex
	name    string
	baseURL string
	timeout time.Duration
}

// NewModelHolder 创建模型持有器
func NewModelHolder(baseURL string, timeout time.Duration) *ModelHolder {
	return &ModelHolder{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

// Current 返回当前模型名，未探测返回空串
func (h *ModelHolder) Current() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.name
}

// Refresh 重新探测后端模型列表并更新当前模型
// 探测接口是 OpenAI 风格的 GET /v1/models，取首个模型。幂等，可随时调用。
func (h *ModelHolder) Refresh(ctx context.Context) (string, error) {
	cfg := openai.DefaultConfig("")
	cfg.BaseURL = h.baseURL + "/v1"

	client := openai.NewClientWithConfig(cfg)

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	list, err := client.ListModels(ctx)
	if err != nil {
		return "", fmt.Errorf("模型探测失败: %w", err)
	}
	if len(list.Models) == 0 {
		return "", ErrNoModels
	}

	name := list.Models[0].ID
	h.mu.Lock()
	h.name = name
	h.mu.Unlock()

	logger.Info("模型探测完成", zap.String("model", name))
	return name, nil
}
