package prompt

import (
	"backend/internal/logger"

	"go.uber.org/zap"
)

// TrimHistory 按 token 预算裁剪消息序列
// system 消息（若在首位）无条件保留且不计入预算；其余消息从最新往最旧扫描，
// 每条消耗 Estimate(content)+overhead，一旦某条会超出预算，该条及更旧的全部丢弃。
// 返回结果保持原始时间顺序，system 消息重新插回首位。
func TrimHistory(messages []Message, budget, overhead int) []Message {
	if len(messages) == 0 {
		return []Message{}
	}

	var systemMsg *Message
	body := messages
	if messages[0].Role == RoleSystem {
		systemMsg = &messages[0]
		body = messages[1:]
	}

	// system 消息不占预算，仅记录体量便于观察
	if systemMsg != nil {
		logger.Debug("系统消息体量",
			zap.Int("tokens", Estimate(systemMsg.Content)),
		)
	}

	total := 0
	kept := 0
	for i := len(body) - 1; i >= 0; i-- {
		n := Estimate(body[i].Content) + overhead
		if total+n > budget {
			break
		}
		total += n
		kept++
	}

	trimmed := make([]Message, 0, kept+1)
	if systemMsg != nil {
		trimmed = append(trimmed, *systemMsg)
	}
	trimmed = append(trimmed, body[len(body)-kept:]...)

	logger.Debug("历史裁剪完成",
		zap.Int("kept", kept),
		zap.Int("dropped", len(body)-kept),
		zap.Int("tokens", total),
	)

	return trimmed
}
