package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Data       DataConfig       `mapstructure:"data"`
	Prompt     PromptConfig     `mapstructure:"prompt"`
	Memory     MemoryConfig     `mapstructure:"memory"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, /path/to/log
}

// BackendConfig 推理后端（llama.cpp server）配置
type BackendConfig struct {
	BaseURL          string `mapstructure:"base_url"`          // 默认 http://127.0.0.1:5000
	DiscoveryTimeout int    `mapstructure:"discovery_timeout"` // 模型探测超时（秒）
}

// SummarizerConfig 记忆摘要协作服务配置
type SummarizerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // 秒，辅助调用统一短超时
}

// DataConfig 文件存储目录配置
type DataConfig struct {
	BasePath         string `mapstructure:"base_path"`          // 数据根目录，默认 ./data
	CharactersDir    string `mapstructure:"characters_dir"`     // 角色卡目录
	UsersDir         string `mapstructure:"users_dir"`          // 用户人设目录
	ChatsDir         string `mapstructure:"chats_dir"`          // 聊天记录目录
	MemoriesDir      string `mapstructure:"memories_dir"`       // 记忆文件目录
	SettingsFile     string `mapstructure:"settings_file"`      // 采样参数文件
	SystemPromptFile string `mapstructure:"system_prompt_file"` // 系统提示词文件
}

// PromptConfig 提示词组装配置
type PromptConfig struct {
	TokenBudget     int `mapstructure:"token_budget"`     // 历史裁剪预算，默认 8000
	MessageOverhead int `mapstructure:"message_overhead"` // 每条消息的角色包装开销，默认 20
	HistoryWindow   int `mapstructure:"history_window"`   // 预算裁剪前的消息窗口，默认 30
	WordCeiling     int `mapstructure:"word_ceiling"`     // 序列化后的词数上限，默认 10000
	MaxMemories     int `mapstructure:"max_memories"`     // 注入记忆块上限，默认 2
}

// MemoryConfig 记忆检索打分配置
type MemoryConfig struct {
	CommonKeywords []string `mapstructure:"common_keywords"` // 过于泛化的关键词（低权重）
	HighWeight     int      `mapstructure:"high_weight"`     // 独特关键词权重，默认 3
	LowWeight      int      `mapstructure:"low_weight"`      // 泛化关键词权重，默认 1
}

var globalConfig *Config

// Load 加载配置
// env: 环境名称（dev, prod, test）
// configPath: 配置文件路径（可选）
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	// 设置配置文件名和路径
	if configPath == "" {
		v.SetConfigName(env) // dev.yaml, prod.yaml
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	} else {
		v.SetConfigFile(configPath)
	}

	v.SetConfigType("yaml")

	// 读取环境变量（优先级高于配置文件）
	v.SetEnvPrefix("APP") // 环境变量前缀：APP_
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 支持嵌套配置：APP_BACKEND_BASE_URL

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults()

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("配置未初始化，请先调用 Load()")
	}
	return globalConfig
}

// applyDefaults 为缺省项填充默认值
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8081
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://127.0.0.1:5000"
	}
	if c.Backend.DiscoveryTimeout <= 0 {
		c.Backend.DiscoveryTimeout = 5
	}
	if c.Summarizer.Timeout <= 0 {
		c.Summarizer.Timeout = 30
	}
	if c.Data.BasePath == "" {
		c.Data.BasePath = "./data"
	}
	if c.Data.CharactersDir == "" {
		c.Data.CharactersDir = filepath.Join(c.Data.BasePath, "characters")
	}
	if c.Data.UsersDir == "" {
		c.Data.UsersDir = filepath.Join(c.Data.BasePath, "users")
	}
	if c.Data.ChatsDir == "" {
		c.Data.ChatsDir = filepath.Join(c.Data.BasePath, "chats")
	}
	if c.Data.MemoriesDir == "" {
		c.Data.MemoriesDir = filepath.Join(c.Data.BasePath, "memories")
	}
	if c.Data.SettingsFile == "" {
		c.Data.SettingsFile = filepath.Join(c.Data.BasePath, "settings.json")
	}
	if c.Data.SystemPromptFile == "" {
		c.Data.SystemPromptFile = filepath.Join(c.Data.BasePath, "system_prompt.txt")
	}
	if c.Prompt.TokenBudget <= 0 {
		c.Prompt.TokenBudget = 8000
	}
	if c.Prompt.MessageOverhead <= 0 {
		c.Prompt.MessageOverhead = 20
	}
	if c.Prompt.HistoryWindow <= 0 {
		c.Prompt.HistoryWindow = 30
	}
	if c.Prompt.WordCeiling <= 0 {
		c.Prompt.WordCeiling = 10000
	}
	if c.Prompt.MaxMemories <= 0 {
		c.Prompt.MaxMemories = 2
	}
	if c.Memory.HighWeight <= 0 {
		c.Memory.HighWeight = 3
	}
	if c.Memory.LowWeight <= 0 {
		c.Memory.LowWeight = 1
	}
}
