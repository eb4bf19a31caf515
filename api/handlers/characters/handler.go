package characters

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	"backend/internal/persona"
	"backend/internal/transcript"
)

// Handler 角色卡处理器
type Handler struct {
	store       *persona.CharacterStore
	transcripts *transcript.Store
}

// NewHandler 创建角色卡处理器
func NewHandler(store *persona.CharacterStore, transcripts *transcript.Store) *Handler {
	return &Handler{store: store, transcripts: transcripts}
}

// List 角色列表
// @Summary 列出全部角色名
// @Tags Characters
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /characters [get]
func (h *Handler) List(c *gin.Context) {
	names, err := h.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取角色列表失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: names})
}

// Get 角色详情
// @Summary 读取角色卡
// @Tags Characters
// @Produce json
// @Param name path string true "角色名"
// @Success 200 {object} persona.Character
// @Failure 404 {object} response.ErrorResponse
// @Router /characters/{name} [get]
func (h *Handler) Get(c *gin.Context) {
	card, err := h.store.Load(c.Param("name"))
	if err != nil {
		if errors.Is(err, persona.ErrCharacterNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "角色不存在: " + c.Param("name")})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取角色卡失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, card)
}

// Create 新建角色
// @Summary 新建角色卡
// @Tags Characters
// @Accept json
// @Produce json
// @Param request body persona.Character true "角色卡"
// @Success 201 {object} response.APIResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /characters [post]
func (h *Handler) Create(c *gin.Context) {
	var card persona.Character
	if err := c.ShouldBindJSON(&card); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}
	if card.Name == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "角色名不能为空"})
		return
	}

	if err := h.store.Create(&card); err != nil {
		if errors.Is(err, persona.ErrCharacterExists) {
			c.JSON(http.StatusConflict, response.ErrorResponse{Success: false, Message: "角色已存在: " + card.Name})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "创建角色失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, response.APIResponse{Success: true, Message: "角色创建成功"})
}

// Save 保存角色
// @Summary 保存角色卡（存在则覆盖）
// @Tags Characters
// @Accept json
// @Produce json
// @Param name path string true "角色名"
// @Param request body persona.Character true "角色卡"
// @Success 200 {object} response.APIResponse
// @Router /characters/{name} [put]
func (h *Handler) Save(c *gin.Context) {
	var card persona.Character
	if err := c.ShouldBindJSON(&card); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}
	card.Name = c.Param("name")

	if err := h.store.Save(&card); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "保存角色失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "角色保存成功"})
}

// Delete 删除角色
// @Summary 删除角色卡
// @Tags Characters
// @Produce json
// @Param name path string true "角色名"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /characters/{name} [delete]
func (h *Handler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Param("name")); err != nil {
		if errors.Is(err, persona.ErrCharacterNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "角色不存在: " + c.Param("name")})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "删除角色失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "角色删除成功"})
}

// Duplicate 复制角色
// @Summary 复制角色卡
// @Tags Characters
// @Produce json
// @Param name path string true "角色名"
// @Success 201 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /characters/{name}/duplicate [post]
func (h *Handler) Duplicate(c *gin.Context) {
	newName, err := h.store.Duplicate(c.Param("name"))
	if err != nil {
		if errors.Is(err, persona.ErrCharacterNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "角色不存在: " + c.Param("name")})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "复制角色失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, response.APIResponse{Success: true, Data: gin.H{"name": newName}})
}

// Rename 重命名角色
// @Summary 重命名角色，同步改聊天记录文件名前缀
// @Tags Characters
// @Accept json
// @Produce json
// @Param name path string true "旧角色名"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /characters/{name}/rename [post]
func (h *Handler) Rename(c *gin.Context) {
	var req struct {
		NewName string `json:"new_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}

	oldName := c.Param("name")
	if err := h.store.Rename(oldName, req.NewName); err != nil {
		switch {
		case errors.Is(err, persona.ErrCharacterNotFound):
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "角色不存在: " + oldName})
		case errors.Is(err, persona.ErrCharacterExists):
			c.JSON(http.StatusConflict, response.ErrorResponse{Success: false, Message: "角色已存在: " + req.NewName})
		default:
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "重命名角色失败: " + err.Error()})
		}
		return
	}

	// 聊天记录按 "角色 - 标题 - 日期.txt" 命名，角色改名要同步改前缀
	if err := h.transcripts.RenameForCharacter(oldName, req.NewName); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "同步聊天记录文件名失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "角色重命名成功"})
}

// GetOpeningLines 读取开场白
// @Summary 读取角色开场白配置
// @Tags Characters
// @Produce json
// @Param name path string true "角色名"
// @Success 200 {object} persona.OpeningLines
// @Router /characters/{name}/opening_lines [get]
func (h *Handler) GetOpeningLines(c *gin.Context) {
	lines, err := h.store.LoadOpeningLines(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取开场白失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, lines)
}

// SaveOpeningLines 保存开场白
// @Summary 保存角色开场白配置
// @Tags Characters
// @Accept json
// @Produce json
// @Param name path string true "角色名"
// @Param request body persona.OpeningLines true "开场白配置"
// @Success 200 {object} response.APIResponse
// @Router /characters/{name}/opening_lines [put]
func (h *Handler) SaveOpeningLines(c *gin.Context) {
	var lines persona.OpeningLines
	if err := c.ShouldBindJSON(&lines); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}
	if err := h.store.SaveOpeningLines(c.Param("name"), &lines); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "保存开场白失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "开场白保存成功"})
}

// Export 导出角色
// @Summary 导出角色卡 JSON
// @Tags Characters
// @Produce json
// @Param name path string true "角色名"
// @Success 200 {object} persona.Character
// @Failure 404 {object} response.ErrorResponse
// @Router /characters/{name}/export [get]
func (h *Handler) Export(c *gin.Context) {
	card, err := h.store.Load(c.Param("name"))
	if err != nil {
		if errors.Is(err, persona.ErrCharacterNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "角色不存在: " + c.Param("name")})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取角色卡失败: " + err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+card.Name+`.json"`)
	c.JSON(http.StatusOK, card)
}

// Import 导入角色
// @Summary 导入角色卡 JSON，重名自动加副本后缀
// @Tags Characters
// @Accept json
// @Produce json
// @Param request body persona.Character true "角色卡"
// @Success 201 {object} response.APIResponse
// @Router /characters/import [post]
func (h *Handler) Import(c *gin.Context) {
	var card persona.Character
	if err := c.ShouldBindJSON(&card); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}
	if card.Name == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "角色名不能为空"})
		return
	}

	err := h.store.Create(&card)
	if errors.Is(err, persona.ErrCharacterExists) {
		// 重名时保留原角色，导入副本
		card.Name = card.Name + " - Imported"
		err = h.store.Save(&card)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "导入角色失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, response.APIResponse{Success: true, Data: gin.H{"name": card.Name}})
}
