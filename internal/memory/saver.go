package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"backend/internal/logger"

	"go.uber.org/zap"
)

// PlaceholderBlock 摘要服务不可达时的占位记忆块，保证保存动作不被静默丢弃
const PlaceholderBlock = BlockMarker + " Untitled\n\n"

// Acknowledgment 触发保存后返回给用户的固定确认语
const Acknowledgment = "Got it, memory saved.\n\n"

// ContextProvider 提供触发保存时的对话上下文
// 返回指定角色最近一份聊天记录的末尾若干非空行。
type ContextProvider interface {
	RecentContext(character string, maxLines int) (string, error)
}

// Saver 记忆保存流程
// 触发后取最近对话上下文，交给外部摘要服务生成记忆块，
// 再通过追加服务入库；任一辅助调用失败都有本地回退。
type Saver struct {
	store       *Store
	transcripts ContextProvider
	baseURL     string
	httpClient  *http.Client
}

// NewSaver 创建记忆保存流程
// baseURL 为摘要协作服务地址；timeout 是辅助调用的统一短超时。
func NewSaver(store *Store, transcripts ContextProvider, baseURL string, timeout time.Duration) *Saver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Saver{
		store:       store,
		transcripts: transcripts,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Save 执行完整的记忆保存流程
// utterance 为已清洗的用户输入，作为对话上下文缺失时的兜底内容。
// 主生成路径之外的失败全部本地吸收，保证用户侧的保存动作总能完成。
func (s *Saver) Save(ctx context.Context, character, userDisplayName, utterance string) error {
	convoText := s.gatherContext(character, utterance)

	block := s.summarize(ctx, convoText, userDisplayName, character)

	if err := s.appendRemote(ctx, character, block); err != nil {
		logger.Warn("记忆追加服务不可用，回退本地写入",
			zap.String("character", character),
			zap.Error(err),
		)
		if err := s.store.AppendRaw(character, block); err != nil {
			return fmt.Errorf("本地写入记忆失败: %w", err)
		}
	}

	logger.Info("记忆保存完成", zap.String("character", character))
	return nil
}

// gatherContext 取最近对话的末尾 20 个非空行作为摘要素材
// 没有聊天记录或内容太少（不足 3 个词）时回退到用户输入本身。
func (s *Saver) gatherContext(character, utterance string) string {
	convoText := ""
	if s.transcripts != nil {
		text, err := s.transcripts.RecentContext(character, 20)
		if err != nil {
			logger.Warn("读取最近聊天记录失败",
				zap.String("character", character),
				zap.Error(err),
			)
		} else {
			convoText = text
		}
	}

	convoText = chatMLTagPattern.ReplaceAllString(convoText, "")
	if convoText == "" || len(strings.Fields(convoText)) < 3 {
		return utterance
	}
	return convoText
}

// summarize 调用摘要服务生成记忆块，失败返回占位块
func (s *Saver) summarize(ctx context.Context, text, userName, character string) string {
	payload, err := json.Marshal(map[string]string{
		"text":      text,
		"user_name": userName,
		"character": character,
	})
	if err != nil {
		return PlaceholderBlock
	}

	url := s.baseURL + "/summarize_for_memory"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return PlaceholderBlock
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Warn("摘要服务调用失败", zap.Error(err))
		return PlaceholderBlock
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logger.Warn("摘要服务返回异常状态",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return PlaceholderBlock
	}

	var result struct {
		Summary string `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.Warn("解析摘要响应失败", zap.Error(err))
		return PlaceholderBlock
	}

	summary := strings.TrimSpace(result.Summary)
	if summary == "" {
		return PlaceholderBlock
	}
	return summary
}

// appendRemote 通过追加服务写入记忆块
func (s *Saver) appendRemote(ctx context.Context, character, block string) error {
	payload, err := json.Marshal(map[string]string{
		"character": character,
		"body":      block,
	})
	if err != nil {
		return fmt.Errorf("序列化追加请求失败: %w", err)
	}

	url := s.baseURL + "/append_character_memory"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("创建追加请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("记忆追加服务调用失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("记忆追加服务返回 HTTP %d", resp.StatusCode)
	}
	return nil
}
