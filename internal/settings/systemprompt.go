package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SystemPromptStore 全局系统提示词，单个纯文本文件
type SystemPromptStore struct {
	mu   sync.Mutex
	path string
}

// NewSystemPromptStore 创建系统提示词存储
func NewSystemPromptStore(path string) *SystemPromptStore {
	return &SystemPromptStore{path: path}
}

// Path 返回系统提示词文件路径
func (s *SystemPromptStore) Path() string {
	return s.path
}

// Load 读取系统提示词，文件不存在返回空串
func (s *SystemPromptStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("读取系统提示词失败: %w", err)
	}
	return string(data), nil
}

// Save 保存系统提示词
func (s *SystemPromptStore) Save(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("创建设置目录失败: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(content), 0644); err != nil {
		return fmt.Errorf("写入系统提示词失败: %w", err)
	}
	return nil
}
