package prompt

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 对话消息，顺序即对话轮次顺序
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CountConversation 统计 user/assistant 消息数量（不含 system）
func CountConversation(messages []Message) int {
	count := 0
	for _, m := range messages {
		if m.Role == RoleUser || m.Role == RoleAssistant {
			count++
		}
	}
	return count
}

// HasAssistantTurn 判断历史中是否存在 assistant 消息（续聊判定）
func HasAssistantTurn(messages []Message) bool {
	for _, m := range messages {
		if m.Role == RoleAssistant {
			return true
		}
	}
	return false
}

// LastUserContent 取最近一条 user 消息内容，找不到返回空串
func LastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
