package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	appsettings "backend/internal/settings"
)

// Handler 设置处理器
type Handler struct {
	sampling     *appsettings.Store
	systemPrompt *appsettings.SystemPromptStore
}

// NewHandler 创建设置处理器
func NewHandler(sampling *appsettings.Store, systemPrompt *appsettings.SystemPromptStore) *Handler {
	return &Handler{sampling: sampling, systemPrompt: systemPrompt}
}

// GetSampling 读取采样参数
// @Summary 读取推理采样参数
// @Tags Settings
// @Produce json
// @Success 200 {object} appsettings.Sampling
// @Router /settings/sampling [get]
func (h *Handler) GetSampling(c *gin.Context) {
	sampling, err := h.sampling.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取采样设置失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, sampling)
}

// SaveSampling 保存采样参数
// @Summary 保存推理采样参数
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body appsettings.Sampling true "采样参数"
// @Success 200 {object} response.APIResponse
// @Router /settings/sampling [put]
func (h *Handler) SaveSampling(c *gin.Context) {
	var sampling appsettings.Sampling
	if err := c.ShouldBindJSON(&sampling); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}

	if err := h.sampling.Save(sampling); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "保存采样设置失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "采样设置已保存"})
}

// GetSystemPrompt 读取系统提示词
// @Summary 读取全局系统提示词
// @Tags Settings
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /settings/system_prompt [get]
func (h *Handler) GetSystemPrompt(c *gin.Context) {
	content, err := h.systemPrompt.Load()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取系统提示词失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: gin.H{"content": content}})
}

// SaveSystemPrompt 保存系统提示词
// @Summary 保存全局系统提示词
// @Tags Settings
// @Accept json
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /settings/system_prompt [put]
func (h *Handler) SaveSystemPrompt(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}

	if err := h.systemPrompt.Save(req.Content); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "保存系统提示词失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "系统提示词已保存"})
}
