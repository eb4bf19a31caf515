package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	characterHandlers "backend/api/handlers/characters"
	chatHandlers "backend/api/handlers/chat"
	chatsHandlers "backend/api/handlers/chats"
	memoryHandlers "backend/api/handlers/memories"
	settingsHandlers "backend/api/handlers/settings"
	userHandlers "backend/api/handlers/users"
	"backend/internal/config"
	"backend/internal/llm"
	"backend/internal/memory"
	"backend/internal/metrics"
	"backend/internal/middleware"
	"backend/internal/persona"
	"backend/internal/prompt"
	appsettings "backend/internal/settings"
	"backend/internal/transcript"
)

// AppContainer 应用依赖容器
type AppContainer struct {
	Characters  *persona.CharacterStore
	Users       *persona.UserStore
	Transcripts *transcript.Store
	Memories    *memory.Store
	Saver       *memory.Saver
	Composer    *prompt.Composer
	LLMClient   *llm.Client
	ModelHolder *llm.ModelHolder
	Sampling    *appsettings.Store
	SysPrompt   *appsettings.SystemPromptStore
}

// Handlers 全部 HTTP 处理器
type Handlers struct {
	Chat       *chatHandlers.Handler
	Characters *characterHandlers.Handler
	Users      *userHandlers.Handler
	Chats      *chatsHandlers.Handler
	Memories   *memoryHandlers.Handler
	Settings   *settingsHandlers.Handler
}

// BuildContainer 按配置组装全部依赖
func BuildContainer(cfg *config.Config) *AppContainer {
	characters := persona.NewCharacterStore(cfg.Data.CharactersDir)
	users := persona.NewUserStore(cfg.Data.UsersDir)
	transcripts := transcript.NewStore(cfg.Data.ChatsDir)
	memories := memory.NewStore(cfg.Data.MemoriesDir)

	// 摘要服务没单独配置时复用推理后端地址
	summarizerURL := cfg.Summarizer.BaseURL
	if summarizerURL == "" {
		summarizerURL = cfg.Backend.BaseURL
	}
	saver := memory.NewSaver(memories, transcripts, summarizerURL,
		time.Duration(cfg.Summarizer.Timeout)*time.Second)

	composer := prompt.NewComposer(prompt.Options{
		SystemPromptFile: cfg.Data.SystemPromptFile,
		TokenBudget:      cfg.Prompt.TokenBudget,
		MessageOverhead:  cfg.Prompt.MessageOverhead,
		HistoryWindow:    cfg.Prompt.HistoryWindow,
		WordCeiling:      cfg.Prompt.WordCeiling,
	})

	return &AppContainer{
		Characters:  characters,
		Users:       users,
		Transcripts: transcripts,
		Memories:    memories,
		Saver:       saver,
		Composer:    composer,
		LLMClient:   llm.NewClient(cfg.Backend.BaseURL),
		ModelHolder: llm.NewModelHolder(cfg.Backend.BaseURL, time.Duration(cfg.Backend.DiscoveryTimeout)*time.Second),
		Sampling:    appsettings.NewStore(cfg.Data.SettingsFile),
		SysPrompt:   appsettings.NewSystemPromptStore(cfg.Data.SystemPromptFile),
	}
}

// BuildHandlers 创建全部处理器
func BuildHandlers(container *AppContainer, cfg *config.Config) *Handlers {
	scoring := memory.NewScoringConfig(cfg.Memory.CommonKeywords, cfg.Memory.HighWeight, cfg.Memory.LowWeight)

	return &Handlers{
		Chat: chatHandlers.NewHandler(
			container.Characters,
			container.Users,
			container.Transcripts,
			container.Memories,
			container.Saver,
			container.Composer,
			container.LLMClient,
			container.ModelHolder,
			container.Sampling,
			scoring,
			cfg.Prompt.MaxMemories,
		),
		Characters: characterHandlers.NewHandler(container.Characters, container.Transcripts),
		Users:      userHandlers.NewHandler(container.Users),
		Chats:      chatsHandlers.NewHandler(container.Transcripts, container.Characters, container.Users),
		Memories:   memoryHandlers.NewHandler(container.Memories),
		Settings:   settingsHandlers.NewHandler(container.Sampling, container.SysPrompt),
	}
}

// SetupRouter 设置并返回 Gin 路由
func SetupRouter(cfg *config.Config) (*gin.Engine, *AppContainer) {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(RequestLogger())
	router.Use(CORS())
	router.Use(metrics.PrometheusMiddleware())

	container := BuildContainer(cfg)
	handlers := BuildHandlers(container, cfg)

	RegisterRoutes(router, container, handlers)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router, container
}
