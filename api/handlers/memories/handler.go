package memories

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	"backend/internal/memory"
)

// Handler 记忆处理器
type Handler struct {
	store *memory.Store
}

// NewHandler 创建记忆处理器
func NewHandler(store *memory.Store) *Handler {
	return &Handler{store: store}
}

// AppendRequest 追加记忆请求
// body 是完整的记忆块文本（含 "# Memory:" 标题行），
// 也可以用 title/keywords/text 三段式让服务端格式化。
type AppendRequest struct {
	Character string   `json:"character" binding:"required"`
	Body      string   `json:"body"`
	Title     string   `json:"title"`
	Keywords  []string `json:"keywords"`
	Text      string   `json:"text"`
}

// Append 追加记忆
// @Summary 为角色追加一条记忆块
// @Tags Memories
// @Accept json
// @Produce json
// @Param request body AppendRequest true "记忆内容"
// @Success 200 {object} response.APIResponse
// @Router /append_character_memory [post]
func (h *Handler) Append(c *gin.Context) {
	var req AppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}

	var err error
	switch {
	case strings.TrimSpace(req.Body) != "":
		err = h.store.AppendRaw(req.Character, req.Body)
	case strings.TrimSpace(req.Text) != "":
		title := req.Title
		if title == "" {
			title = "Untitled"
		}
		err = h.store.Append(req.Character, title, req.Keywords, req.Text)
	default:
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "body 或 text 至少提供一个"})
		return
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "追加记忆失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "记忆已追加"})
}

// List 角色记忆列表
// @Summary 列出角色的全部记忆块
// @Tags Memories
// @Produce json
// @Param character path string true "角色名"
// @Success 200 {object} response.APIResponse
// @Router /memories/{character} [get]
func (h *Handler) List(c *gin.Context) {
	blocks, err := h.store.Load(c.Param("character"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取记忆失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: blocks})
}
