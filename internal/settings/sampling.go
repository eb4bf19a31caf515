package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Sampling 推理采样参数，随补全请求透传给推理后端
type Sampling struct {
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"max_tokens"`
	TopP          float64 `json:"top_p"`
	RepeatPenalty float64 `json:"repeat_penalty"`
}

// DefaultSampling 默认采样参数
func DefaultSampling() Sampling {
	return Sampling{
		Temperature:   0.8,
		MaxTokens:     4096,
		TopP:          0.95,
		RepeatPenalty: 1.1,
	}
}

// Store 采样参数存储，单个 JSON 文件加互斥锁
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore 创建采样参数存储
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load 读取采样参数
// 文件不存在时写入默认值再返回，保证前端首次打开设置页就有完整字段。
func (s *Store) Load() (Sampling, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			defaults := DefaultSampling()
			if err := s.write(defaults); err != nil {
				return Sampling{}, err
			}
			return defaults, nil
		}
		return Sampling{}, fmt.Errorf("读取采样设置失败: %w", err)
	}

	sampling := DefaultSampling()
	if err := json.Unmarshal(data, &sampling); err != nil {
		return Sampling{}, fmt.Errorf("解析采样设置失败: %w", err)
	}
	return sampling, nil
}

// Save 保存采样参数
func (s *Store) Save(sampling Sampling) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(sampling)
}

func (s *Store) write(sampling Sampling) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("创建设置目录失败: %w", err)
	}
	encoded, err := json.MarshalIndent(sampling, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化采样设置失败: %w", err)
	}
	if err := os.WriteFile(s.path, encoded, 0644); err != nil {
		return fmt.Errorf("写入采样设置失败: %w", err)
	}
	return nil
}
