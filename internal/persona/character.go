package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

var (
	// ErrCharacterNotFound 角色不存在
	ErrCharacterNotFound = errors.New("character not found")
	// ErrCharacterExists 角色已存在
	ErrCharacterExists = errors.New("character already exists")
)

// Character 角色卡
// 角色名同时是文件名、记忆文件和聊天记录文件名前缀的关联键。
type Character struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Tagline         string `json:"tagline,omitempty"`
	Scenario        string `json:"scenario"`
	MainPrompt      string `json:"main_prompt"`
	PostHistory     string `json:"post_history"`
	CharacterNote   string `json:"character_note"`
	ExampleDialogue string `json:"example_dialogue"`
	Image           string `json:"image"`
}

// OpeningLines 角色开场白配置
type OpeningLines struct {
	Enabled bool     `json:"enabled"`
	Lines   []string `json:"lines"`
}

// CharacterStore 角色卡文件存储
// 每个角色对应 <dir>/<name>.json，另维护 index.json 角色名列表。
type CharacterStore struct {
	mu  sync.Mutex // 序列化 index.json 的读改写
	dir string
}

// NewCharacterStore 创建角色卡存储
func NewCharacterStore(dir string) *CharacterStore {
	return &CharacterStore{dir: dir}
}

func (s *CharacterStore) cardPath(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *CharacterStore) indexPath() string {
	return filepath.Join(s.dir, "index.json")
}

// Load 读取角色卡，不存在返回 ErrCharacterNotFound
func (s *CharacterStore) Load(name string) (*Character, error) {
	data, err := os.ReadFile(s.cardPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("角色 %q: %w", name, ErrCharacterNotFound)
		}
		return nil, fmt.Errorf("读取角色文件失败: %w", err)
	}

	var char Character
	if err := json.Unmarshal(data, &char); err != nil {
		return nil, fmt.Errorf("解析角色文件失败: %w", err)
	}
	if char.Name == "" {
		char.Name = name
	}
	return &char, nil
}

// Save 写入角色卡并确保 index.json 收录该角色
func (s *CharacterStore) Save(char *Character) error {
	if char.Name == "" {
		return fmt.Errorf("角色名不能为空")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("创建角色目录失败: %w", err)
	}

	data, err := json.MarshalIndent(char, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化角色失败: %w", err)
	}
	if err := os.WriteFile(s.cardPath(char.Name), data, 0644); err != nil {
		return fmt.Errorf("写入角色文件失败: %w", err)
	}

	return s.addToIndex(char.Name)
}

// Create 新建角色卡，同名已存在返回 ErrCharacterExists
func (s *CharacterStore) Create(char *Character) error {
	if char.Name == "" {
		return fmt.Errorf("角色名不能为空")
	}
	if _, err := os.Stat(s.cardPath(char.Name)); err == nil {
		return fmt.Errorf("角色 %q: %w", char.Name, ErrCharacterExists)
	}
	return s.Save(char)
}

// Delete 删除角色卡并从 index.json 移除
func (s *CharacterStore) Delete(name string) error {
	if err := os.Remove(s.cardPath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("角色 %q: %w", name, ErrCharacterNotFound)
		}
		return fmt.Errorf("删除角色文件失败: %w", err)
	}
	return s.removeFromIndex(name)
}

// List 返回按名称排序的角色名列表
// 直接扫描目录而非依赖 index.json，保证与磁盘一致。
func (s *CharacterStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("读取角色目录失败: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" || e.Name() == "index.json" {
			continue
		}
		names = append(names, e.Name()[:len(e.Name())-len(".json")])
	}
	sort.Strings(names)
	return names, nil
}

// Duplicate 复制角色卡，自动生成 "Name - Copy"/"Name - Copy N" 新名
func (s *CharacterStore) Duplicate(name string) (string, error) {
	char, err := s.Load(name)
	if err != nil {
		return "", err
	}

	newName := name + " - Copy"
	for counter := 2; ; counter++ {
		if _, err := os.Stat(s.cardPath(newName)); os.IsNotExist(err) {
			break
		}
		newName = fmt.Sprintf("%s - Copy %d", name, counter)
	}

	char.Name = newName
	if err := s.Save(char); err != nil {
		return "", err
	}
	return newName, nil
}

// Rename 重命名角色卡
// 新名已存在时返回 ErrCharacterExists；相关聊天记录的改名由调用方协调。
func (s *CharacterStore) Rename(oldName, newName string) error {
	if _, err := os.Stat(s.cardPath(newName)); err == nil {
		return fmt.Errorf("角色 %q: %w", newName, ErrCharacterExists)
	}

	char, err := s.Load(oldName)
	if err != nil {
		return err
	}

	char.Name = newName
	if err := s.Save(char); err != nil {
		return err
	}
	if err := os.Remove(s.cardPath(oldName)); err != nil {
		return fmt.Errorf("删除旧角色文件失败: %w", err)
	}
	return s.removeFromIndex(oldName)
}

// LoadOpeningLines 读取角色开场白，不存在返回关闭状态的空配置
func (s *CharacterStore) LoadOpeningLines(name string) (*OpeningLines, error) {
	path := filepath.Join(s.dir, "opening_lines", name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &OpeningLines{Enabled: false, Lines: []string{}}, nil
		}
		return nil, fmt.Errorf("读取开场白失败: %w", err)
	}

	var lines OpeningLines
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("解析开场白失败: %w", err)
	}
	if lines.Lines == nil {
		lines.Lines = []string{}
	}
	return &lines, nil
}

// SaveOpeningLines 写入角色开场白
func (s *CharacterStore) SaveOpeningLines(name string, lines *OpeningLines) error {
	dir := filepath.Join(s.dir, "opening_lines")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建开场白目录失败: %w", err)
	}

	data, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化开场白失败: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("写入开场白失败: %w", err)
	}
	return nil
}

// addToIndex 向 index.json 追加角色名（幂等）
func (s *CharacterStore) addToIndex(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := s.readIndex()
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	names = append(names, name)
	return s.writeIndex(names)
}

// removeFromIndex 从 index.json 移除角色名
func (s *CharacterStore) removeFromIndex(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := s.readIndex()
	filtered := names[:0]
	for _, n := range names {
		if n != name {
			filtered = append(filtered, n)
		}
	}
	return s.writeIndex(filtered)
}

func (s *CharacterStore) readIndex() []string {
	var names []string
	if data, err := os.ReadFile(s.indexPath()); err == nil {
		_ = json.Unmarshal(data, &names)
	}
	return names
}

func (s *CharacterStore) writeIndex(names []string) error {
	sort.Strings(names)
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化角色索引失败: %w", err)
	}
	if err := os.WriteFile(s.indexPath(), data, 0644); err != nil {
		return fmt.Errorf("写入角色索引失败: %w", err)
	}
	return nil
}
