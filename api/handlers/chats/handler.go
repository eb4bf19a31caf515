package chats

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	"backend/internal/persona"
	"backend/internal/transcript"
)

// Handler 聊天记录处理器
type Handler struct {
	store      *transcript.Store
	characters *persona.CharacterStore
	users      *persona.UserStore
}

// NewHandler 创建聊天记录处理器
func NewHandler(store *transcript.Store, characters *persona.CharacterStore, users *persona.UserStore) *Handler {
	return &Handler{store: store, characters: characters, users: users}
}

// List 聊天记录列表
// @Summary 列出全部聊天记录
// @Tags Chats
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /chats [get]
func (h *Handler) List(c *gin.Context) {
	infos, err := h.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取聊天列表失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: infos})
}

// Open 打开聊天记录
// @Summary 打开聊天记录并解析成消息列表
// @Tags Chats
// @Produce json
// @Param filename path string true "文件名"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /chats/{filename} [get]
func (h *Handler) Open(c *gin.Context) {
	filename := c.Param("filename")
	content, err := h.store.Read(filename)
	if err != nil {
		if errors.Is(err, transcript.ErrTranscriptNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "聊天记录不存在: " + filename})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取聊天记录失败: " + err.Error()})
		return
	}

	messages := transcript.ParseMessages(content, h.resolver())
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: gin.H{
		"filename": filename,
		"messages": messages,
	}})
}

// New 新建聊天
// @Summary 为角色新建空聊天记录
// @Tags Chats
// @Accept json
// @Produce json
// @Success 201 {object} response.APIResponse
// @Router /chats [post]
func (h *Handler) New(c *gin.Context) {
	var req struct {
		Character string `json:"character" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}

	filename, err := h.store.Create(req.Character, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "新建聊天失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, response.APIResponse{Success: true, Data: gin.H{"filename": filename}})
}

// Save 保存聊天
// @Summary 用完整消息列表覆盖聊天记录
// @Tags Chats
// @Accept json
// @Produce json
// @Param filename path string true "文件名"
// @Success 200 {object} response.APIResponse
// @Router /chats/{filename} [put]
func (h *Handler) Save(c *gin.Context) {
	var req struct {
		Messages []transcript.Turn `json:"messages" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}

	if err := h.store.Rewrite(c.Param("filename"), req.Messages); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "保存聊天记录失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "聊天记录已保存"})
}

// Append 追加一轮问答
// @Summary 在聊天记录末尾追加一轮用户+角色发言
// @Tags Chats
// @Accept json
// @Produce json
// @Param filename path string true "文件名"
// @Success 200 {object} response.APIResponse
// @Router /chats/{filename}/append [post]
func (h *Handler) Append(c *gin.Context) {
	var req struct {
		UserSpeaker  string `json:"user_speaker" binding:"required"`
		UserMessage  string `json:"user_message" binding:"required"`
		Character    string `json:"character" binding:"required"`
		ModelMessage string `json:"model_message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}

	if err := h.store.AppendTurn(c.Param("filename"), req.UserSpeaker, req.UserMessage, req.Character, req.ModelMessage); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "追加聊天记录失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "已追加"})
}

// Rename 重命名聊天
// @Summary 重命名聊天记录
// @Tags Chats
// @Accept json
// @Produce json
// @Param filename path string true "文件名"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /chats/{filename}/rename [post]
func (h *Handler) Rename(c *gin.Context) {
	var req struct {
		NewName string `json:"new_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}

	newFilename, err := h.store.Rename(c.Param("filename"), req.NewName)
	if err != nil {
		switch {
		case errors.Is(err, transcript.ErrTranscriptNotFound):
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "聊天记录不存在: " + c.Param("filename")})
		case errors.Is(err, transcript.ErrTranscriptExists):
			c.JSON(http.StatusConflict, response.ErrorResponse{Success: false, Message: "目标文件名已存在"})
		default:
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "重命名失败: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: gin.H{"filename": newFilename}})
}

// Copy 复制聊天
// @Summary 复制聊天记录为分支
// @Tags Chats
// @Produce json
// @Param filename path string true "文件名"
// @Success 201 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /chats/{filename}/copy [post]
func (h *Handler) Copy(c *gin.Context) {
	newFilename, err := h.store.Copy(c.Param("filename"))
	if err != nil {
		if errors.Is(err, transcript.ErrTranscriptNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "聊天记录不存在: " + c.Param("filename")})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "复制聊天记录失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, response.APIResponse{Success: true, Data: gin.H{"filename": newFilename}})
}

// Delete 删除聊天
// @Summary 删除聊天记录
// @Tags Chats
// @Produce json
// @Param filename path string true "文件名"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /chats/{filename} [delete]
func (h *Handler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Param("filename")); err != nil {
		if errors.Is(err, transcript.ErrTranscriptNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "聊天记录不存在: " + c.Param("filename")})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "删除聊天记录失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "聊天记录已删除"})
}

// RestoreLast 恢复最近聊天
// @Summary 打开最近修改的聊天记录
// @Tags Chats
// @Produce json
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /restore_last_chat [get]
func (h *Handler) RestoreLast(c *gin.Context) {
	filename, err := h.store.Newest()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "查找最近聊天失败: " + err.Error()})
		return
	}
	if filename == "" {
		c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "没有任何聊天记录"})
		return
	}

	content, err := h.store.Read(filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取聊天记录失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: gin.H{
		"filename":  filename,
		"character": transcript.CharacterFromFilename(filename),
		"messages":  transcript.ParseMessages(content, h.resolver()),
	}})
}

// resolver 用当前的角色名和用户名构建发言人解析器
// 用户既可能以用户名也可能以显示名出现在记录里，两个都注册。
func (h *Handler) resolver() *transcript.Resolver {
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
