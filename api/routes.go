package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册全部路由
func RegisterRoutes(router *gin.Engine, container *AppContainer, h *Handlers) {
	router.GET("/health", HealthCheck())
	router.GET("/ready", ReadinessCheck(container.ModelHolder))

	registerChatRoutes(router, h)
	registerCharacterRoutes(router, h)
	registerUserRoutes(router, h)
	registerTranscriptRoutes(router, h)
	registerMemoryRoutes(router, h)
	registerSettingsRoutes(router, h)
}

// registerChatRoutes 聊天流水线路由
func registerChatRoutes(router *gin.Engine, h *Handlers) {
	router.POST("/chat", h.Chat.Chat)
	router.POST("/continue", h.Chat.Continue)
	router.POST("/delete_last_messages/:character", h.Chat.DeleteLastMessages)
	router.POST("/count_tokens", h.Chat.CountTokens)
	router.POST("/refresh_model", h.Chat.RefreshModel)
}

// registerCharacterRoutes 角色卡路由
func registerCharacterRoutes(router *gin.Engine, h *Handlers) {
	group := router.Group("/characters")
	{
		group.GET("", h.Characters.List)
		group.POST("", h.Characters.Create)
		group.POST("/import", h.Characters.Import)
		group.GET("/:name", h.Characters.Get)
		group.PUT("/:name", h.Characters.Save)
		group.DELETE("/:name", h.Characters.Delete)
		group.POST("/:name/duplicate", h.Characters.Duplicate)
		group.POST("/:name/rename", h.Characters.Rename)
		group.GET("/:name/export", h.Characters.Export)
		group.GET("/:name/opening_lines", h.Characters.GetOpeningLines)
		group.PUT("/:name/opening_lines", h.Characters.SaveOpeningLines)
	}
}

// registerUserRoutes 用户人设路由
func registerUserRoutes(router *gin.Engine, h *Handlers) {
	group := router.Group("/users")
	{
		group.GET("", h.Users.List)
		group.POST("", h.Users.Create)
		group.GET("/active", h.Users.GetActive)
		group.PUT("/active", h.Users.SetActive)
		group.GET("/:name", h.Users.Get)
		group.PUT("/:name", h.Users.Save)
		group.DELETE("/:name", h.Users.Delete)
	}
}

// registerTranscriptRoutes 聊天记录路由
func registerTranscriptRoutes(router *gin.Engine, h *Handlers) {
	router.GET("/restore_last_chat", h.Chats.RestoreLast)

	group := router.Group("/chats")
	{
		group.GET("", h.Chats.List)
		group.POST("", h.Chats.New)
		group.GET("/:filename", h.Chats.Open)
		group.PUT("/:filename", h.Chats.Save)
		group.DELETE("/:filename", h.Chats.Delete)
		group.POST("/:filename/append", h.Chats.Append)
		group.POST("/:filename/rename", h.Chats.Rename)
		group.POST("/:filename/copy", h.Chats.Copy)
	}
}

// registerMemoryRoutes 记忆路由
func registerMemoryRoutes(router *gin.Engine, h *Handlers) {
	router.POST("/append_character_memory", h.Memories.Append)
	router.GET("/memories/:character", h.Memories.List)
}

// registerSettingsRoutes 设置路由
func registerSettingsRoutes(router *gin.Engine, h *Handlers) {
	group := router.Group("/settings")
	{
		group.GET("/sampling", h.Settings.GetSampling)
		group.PUT("/sampling", h.Settings.SaveSampling)
		group.GET("/system_prompt", h.Settings.GetSystemPrompt)
		group.PUT("/system_prompt", h.Settings.SaveSystemPrompt)
	}
}
