package chat

// ChatRequest 聊天请求
type ChatRequest struct {
	Character           string        `json:"character" binding:"required"`
	UserName            string        `json:"user_name"`
	ConversationHistory []HistoryItem `json:"conversation_history"`
	AuthorNote          string        `json:"author_note"`
	CurrentChatFilename string        `json:"current_chat_filename"`
}

// HistoryItem 前端传入的一条历史消息
type HistoryItem struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// CountTokensRequest Token 计数请求
type CountTokensRequest struct {
	Text string `json:"text"`
}

// CountTokensResponse Token 计数结果
// count 是 tiktoken 的精确值，estimate 是裁剪预算用的启发式近似值。
type CountTokensResponse struct {
	Count    int `json:"count"`
	Estimate int `json:"estimate"`
}

// DeleteLastResponse 删除末尾消息的结果
type DeleteLastResponse struct {
	Deleted   int `json:"deleted"`
	Remaining int `json:"remaining"`
}

// RefreshModelResponse 模型刷新结果
type RefreshModelResponse struct {
	Model string `json:"model"`
}
