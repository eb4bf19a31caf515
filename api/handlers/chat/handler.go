package chat

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	response "backend/api/handlers/common"
	"backend/internal/llm"
	"backend/internal/logger"
	"backend/internal/memory"
	"backend/internal/metrics"
	"backend/internal/persona"
	"backend/internal/prompt"
	"backend/internal/settings"
	"backend/internal/transcript"
)

// tokenEncoding /count_tokens 使用的 tiktoken 编码
const tokenEncoding = "cl100k_base"

// Handler 聊天处理器，承载单轮聊天的完整流水线：
// 触发检测 → 记忆检索 → 提示词组装 → 流式生成 → 落盘
type Handler struct {
	characters  *persona.CharacterStore
	users       *persona.UserStore
	transcripts *transcript.Store
	memories    *memory.Store
	saver       *memory.Saver
	composer    *prompt.Composer
	llmClient   *llm.Client
	modelHolder *llm.ModelHolder
	sampling    *settings.Store
	scoring     memory.ScoringConfig
	maxMemories int
}

// NewHandler 创建聊天处理器
func NewHandler(
	characters *persona.CharacterStore,
	users *persona.UserStore,
	transcripts *transcript.Store,
	memories *memory.Store,
	saver *memory.Saver,
	composer *prompt.Composer,
	llmClient *llm.Client,
	modelHolder *llm.ModelHolder,
	sampling *settings.Store,
	scoring memory.ScoringConfig,
	maxMemories int,
) *Handler {
	return &Handler{
		characters:  characters,
		users:       users,
		transcripts: transcripts,
		memories:    memories,
		saver:       saver,
		composer:    composer,
		llmClient:   llmClient,
		modelHolder: modelHolder,
		sampling:    sampling,
		scoring:     scoring,
		maxMemories: maxMemories,
	}
}

// Chat 聊天
// @Summary 发送消息并流式返回回复
// @Tags Chat
// @Accept json
// @Produce text/event-stream
// @Param request body ChatRequest true "聊天请求"
// @Success 200 {string} string "SSE Stream"
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /chat [post]
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}

	card, err := h.characters.Load(req.Character)
	if err != nil {
		if errors.Is(err, persona.ErrCharacterNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "角色不存在: " + req.Character})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取角色卡失败: " + err.Error()})
		return
	}

	history := h.resolveHistory(req)
	lastUser := prompt.LastUserContent(history)
	displayName, bio := h.resolveUser(req.UserName)

	// 显式的存记忆指令是硬分支：走摘要保存，不发起生成
	if memory.DetectTrigger(lastUser) {
		h.saveMemory(c, req.Character, displayName, memory.CleanUtterance(lastUser))
		return
	}

	h.streamCompletion(c, card, req, history, lastUser, displayName, bio)
}

// Continue 续写
// @Summary 续写上一条助手消息
// @Tags Chat
// @Accept json
// @Produce text/event-stream
// @Param request body ChatRequest true "续写请求"
// @Success 200 {string} string "SSE Stream"
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /continue [post]
func (h *Handler) Continue(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}

	card, err := h.characters.Load(req.Character)
	if err != nil {
		if errors.Is(err, persona.ErrCharacterNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "角色不存在: " + req.Character})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取角色卡失败: " + err.Error()})
		return
	}

	// 续写不做触发检测，也不追加用户发言，只延续既有历史
	history := h.resolveHistory(req)
	lastUser := prompt.LastUserContent(history)
	displayName, bio := h.resolveUser(req.UserName)
	h.streamCompletion(c, card, req, history, lastUser, displayName, bio)
}

// saveMemory 记忆保存分支：固定回短确认语，永远不回流式补全
func (h *Handler) saveMemory(c *gin.Context, character, displayName, utterance string) {
	if err := h.saver.Save(c.Request.Context(), character, displayName, utterance); err != nil {
		metrics.MemorySavesTotal.WithLabelValues("failed").Inc()
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "保存记忆失败: " + err.Error()})
		return
	}
	metrics.MemorySavesTotal.WithLabelValues("saved").Inc()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.SSEvent("message", gin.H{"content": memory.Acknowledgment})
	c.SSEvent("done", gin.H{"done": true})
}

// streamCompletion 组装提示词并把后端流式补全转发给客户端
func (h *Handler) streamCompletion(c *gin.Context, card *persona.Character, req ChatRequest, history []prompt.Message, lastUser, displayName, bio string) {
	blocks, err := h.memories.SelectRelevant(card.Name, lastUser, h.maxMemories, h.scoring)
	if err != nil {
		// 记忆检索失败不阻断聊天，降级为不注入
		logger.Warn("记忆检索失败，本轮不注入记忆", zap.Error(err))
		blocks = nil
	}
	if len(blocks) > 0 {
		metrics.MemoryRetrievalsTotal.Add(float64(len(blocks)))
	}

	serialized := h.composer.Compose(prompt.TurnContext{
		Character:       *card,
		UserDisplayName: displayName,
		UserBio:         bio,
		Memories:        blocks,
		History:         history,
		AuthorNote:      req.AuthorNote,
		Now:             time.Now().UTC(),
	})

	sampling, err := h.sampling.Load()
	if err != nil {
		logger.Warn("读取采样设置失败，使用默认值", zap.Error(err))
		sampling = settings.DefaultSampling()
	}

	model := h.modelHolder.Current()
	if model == "" {
		// 启动时探测失败的兜底：请求时再探测一次
		if model, err = h.modelHolder.Refresh(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "推理后端不可用: " + err.Error()})
			return
		}
	}

	// c.Request.Context() 随客户端断开而取消，连带关掉到后端的连接
	chunkChan, errChan := h.llmClient.CompletionStream(
		c.Request.Context(), model, serialized, sampling, prompt.StopSequences())

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	var full strings.Builder
	firstChunk := true
	c.Stream(func(w io.Writer) bool {
		select {
		case chunk, ok := <-chunkChan:
			if !ok {
				c.SSEvent("done", gin.H{"done": true})
				return false
			}
			full.WriteString(chunk.Content)
			c.SSEvent("message", gin.H{"content": chunk.Content})
			firstChunk = false
			return true

		case err, ok := <-errChan:
			if ok && err != nil {
				if firstChunk {
					c.SSEvent("error", gin.H{"error": err.Error()})
				} else {
					// 中途失败：已转发的内容有效，只能记日志
					logger.Error("流式生成中途失败", zap.Error(err))
				}
			}
			return false
		}
	})

	h.persistTurn(req, displayName, card.Name, lastUser, full.String())
}

// persistTurn 把本轮问答追加到聊天记录，失败只记日志不影响响应
func (h *Handler) persistTurn(req ChatRequest, displayName, character, userMsg, modelMsg string) {
	if req.CurrentChatFilename == "" || strings.TrimSpace(modelMsg) == "" {
		return
	}
	if err := h.transcripts.AppendTurn(req.CurrentChatFilename, displayName, userMsg, character, modelMsg); err != nil {
		logger.Error("追加聊天记录失败",
			zap.String("filename", req.CurrentChatFilename),
			zap.Error(err))
	}
}

// resolveHistory 解析本轮历史
// 前端带了 conversation_history 就用它；为空且指明了当前聊天文件时，
// 退回从文件按发言人行解析，解析失败按空历史处理。
func (h *Handler) resolveHistory(req ChatRequest) []prompt.Message {
	if len(req.ConversationHistory) > 0 || req.CurrentChatFilename == "" {
		return toMessages(req.ConversationHistory)
	}

	content, err := h.transcripts.Read(req.CurrentChatFilename)
	if err != nil {
		logger.Warn("读取当前聊天文件失败，按空历史处理",
			zap.String("filename", req.CurrentChatFilename),
			zap.Error(err))
		return nil
	}

	parsed := transcript.ParseMessages(content, h.speakerResolver())
	messages := make([]prompt.Message, 0, len(parsed))
	for _, m := range parsed {
		messages = append(messages, prompt.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}

// speakerResolver 用当前的角色名和用户名构建发言人解析器
// 用户既可能以用户名也可能以显示名出现在记录里，两个都注册。
func (h *Handler) speakerResolver() *transcript.Resolver {
	characterNames, _ := h.characters.List()
	userNames, _ := h.users.List()

	names := make([]string, 0, len(userNames)*2+1)
	names = append(names, "User")
	for _, n := range userNames {
		names = append(names, n)
		if u, err := h.users.Load(n); err == nil && u.DisplayName != "" {
			names = append(names, u.DisplayName)
		}
	}
	return transcript.NewResolver(names, characterNames)
}

// resolveUser 解析本轮的用户显示名和简介
// 请求里带了 user_name 就用它，否则退回激活用户。
func (h *Handler) resolveUser(userName string) (displayName, bio string) {
	name := strings.TrimSpace(userName)
	if name == "" {
		active, err := h.users.ActiveUser()
		if err != nil || active == "" {
			return "User", ""
		}
		name = active
	}

	user, err := h.users.Load(name)
	if err != nil {
		return name, ""
	}
	return user.DisplayName, user.Bio
}

// DeleteLastMessages 删除末尾消息
// @Summary 删除角色会话末尾的 N 条消息
// @Tags Chat
// @Produce json
// @Param character path string true "角色名"
// @Param count query int false "删除条数，默认 1"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /delete_last_messages/{character} [post]
func (h *Handler) DeleteLastMessages(c *gin.Context) {
	character := c.Param("character")
	count, err := strconv.Atoi(c.DefaultQuery("count", "1"))
	if err != nil || count < 1 {
		count = 1
	}

	remaining, err := h.transcripts.DeleteLast(character, count)
	if err != nil {
		if errors.Is(err, transcript.ErrTranscriptNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "会话不存在: " + character})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "删除消息失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{
		Success: true,
		Data:    DeleteLastResponse{Deleted: count, Remaining: remaining},
	})
}

// CountTokens Token 计数
// @Summary 统计文本 Token 数
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body CountTokensRequest true "待统计文本"
// @Success 200 {object} CountTokensResponse
// @Router /count_tokens [post]
func (h *Handler) CountTokens(c *gin.Context) {
	var req CountTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}

	resp := CountTokensResponse{Estimate: prompt.Estimate(req.Text)}
	if enc, err := tiktoken.GetEncoding(tokenEncoding); err == nil {
		resp.Count = len(enc.Encode(req.Text, nil, nil))
	} else {
		// 编码表加载失败时退回启发式值
		logger.Warn("加载 tiktoken 编码失败", zap.Error(err))
		resp.Count = resp.Estimate
	}

	c.JSON(http.StatusOK, resp)
}

// RefreshModel 刷新模型
// @Summary 重新探测推理后端的当前模型
// @Tags Chat
// @Produce json
// @Success 200 {object} RefreshModelResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /refresh_model [post]
func (h *Handler) RefreshModel(c *gin.Context) {
	model, err := h.modelHolder.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, response.ErrorResponse{Success: false, Message: "模型探测失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, RefreshModelResponse{Model: model})
}

// toMessages 转换前端历史为内部消息
func toMessages(items []HistoryItem) []prompt.Message {
	messages := make([]prompt.Message, 0, len(items))
	for _, item := range items {
		messages = append(messages, prompt.Message{Role: item.Role, Content: item.Content})
	}
	return messages
}
