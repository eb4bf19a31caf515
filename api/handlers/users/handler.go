package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	"backend/internal/persona"
)

// Handler 用户人设处理器
type Handler struct {
	store *persona.UserStore
}

// NewHandler 创建用户人设处理器
func NewHandler(store *persona.UserStore) *Handler {
	return &Handler{store: store}
}

// List 用户列表
// @Summary 列出全部用户名
// @Tags Users
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /users [get]
func (h *Handler) List(c *gin.Context) {
	names, err := h.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取用户列表失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: names})
}

// Get 用户详情
// @Summary 读取用户人设
// @Tags Users
// @Produce json
// @Param name path string true "用户名"
// @Success 200 {object} persona.User
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{name} [get]
func (h *Handler) Get(c *gin.Context) {
	user, err := h.store.Load(c.Param("name"))
	if err != nil {
		if errors.Is(err, persona.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "用户不存在: " + c.Param("name")})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取用户失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Create 新建用户
// @Summary 新建用户人设
// @Tags Users
// @Accept json
// @Produce json
// @Param request body persona.User true "用户人设"
// @Success 201 {object} response.APIResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /users [post]
func (h *Handler) Create(c *gin.Context) {
	var user persona.User
	if err := c.ShouldBindJSON(&user); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}
	if user.Name == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "用户名不能为空"})
		return
	}

	if err := h.store.Create(&user); err != nil {
		if errors.Is(err, persona.ErrUserExists) {
			c.JSON(http.StatusConflict, response.ErrorResponse{Success: false, Message: "用户已存在: " + user.Name})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "创建用户失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, response.APIResponse{Success: true, Message: "用户创建成功"})
}

// Save 保存用户
// @Summary 保存用户人设（存在则覆盖）
// @Tags Users
// @Accept json
// @Produce json
// @Param name path string true "用户名"
// @Param request body persona.User true "用户人设"
// @Success 200 {object} response.APIResponse
// @Router /users/{name} [put]
func (h *Handler) Save(c *gin.Context) {
	var user persona.User
	if err := c.ShouldBindJSON(&user); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}
	user.Name = c.Param("name")

	if err := h.store.Save(&user); err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "保存用户失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "用户保存成功"})
}

// Delete 删除用户
// @Summary 删除用户人设
// @Tags Users
// @Produce json
// @Param name path string true "用户名"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{name} [delete]
func (h *Handler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Param("name")); err != nil {
		if errors.Is(err, persona.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "用户不存在: " + c.Param("name")})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "删除用户失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "用户删除成功"})
}

// GetActive 当前激活用户
// @Summary 读取当前激活的用户名
// @Tags Users
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /users/active [get]
func (h *Handler) GetActive(c *gin.Context) {
	name, err := h.store.ActiveUser()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "读取激活用户失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Data: gin.H{"active": name}})
}

// SetActive 切换激活用户
// @Summary 切换激活用户（同时只有一个激活）
// @Tags Users
// @Accept json
// @Produce json
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/active [put]
func (h *Handler) SetActive(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Success: false, Message: "请求参数错误: " + err.Error()})
		return
	}

	if err := h.store.SetActive(req.Name); err != nil {
		if errors.Is(err, persona.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, response.ErrorResponse{Success: false, Message: "用户不存在: " + req.Name})
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{Success: false, Message: "切换激活用户失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, response.APIResponse{Success: true, Message: "激活用户已切换"})
}
