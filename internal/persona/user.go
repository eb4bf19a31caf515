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
	// ErrUserNotFound 用户人设不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists 用户人设已存在
	ErrUserExists = errors.New("user already exists")
)

// User 用户人设
// 全体人设中至多一个 Active 为 true，由 SetActive 整体重写保证。
type User struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	Image       string `json:"image"`
	Active      bool   `json:"active"`
}

// UserStore 用户人设文件存储
type UserStore struct {
	mu  sync.Mutex // 序列化 active 标记与 index.json 的整体重写
	dir string
}

// NewUserStore 创建用户人设存储
func NewUserStore(dir string) *UserStore {
	return &UserStore{dir: dir}
}

func (s *UserStore) userPath(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *UserStore) indexPath() string {
	return filepath.Join(s.dir, "index.json")
}

// Load 读取用户人设，不存在返回 ErrUserNotFound
func (s *UserStore) Load(name string) (*User, error) {
	data, err := os.ReadFile(s.userPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("用户 %q: %w", name, ErrUserNotFound)
		}
		return nil, fmt.Errorf("读取用户文件失败: %w", err)
	}

	var user User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("解析用户文件失败: %w", err)
	}
	if user.Name == "" {
		user.Name = name
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Name
	}
	return &user, nil
}

// Save 写入用户人设并确保 index.json 收录
func (s *UserStore) Save(user *User) error {
	if user.Name == "" {
		return fmt.Errorf("用户名不能为空")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("创建用户目录失败: %w", err)
	}

	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化用户失败: %w", err)
	}
	if err := os.WriteFile(s.userPath(user.Name), data, 0644); err != nil {
		return fmt.Errorf("写入用户文件失败: %w", err)
	}

	return s.addToIndex(user.Name)
}

// Create 新建用户人设，同名已存在返回 ErrUserExists
func (s *UserStore) Create(user *User) error {
	if user.Name == "" {
		return fmt.Errorf("用户名不能为空")
	}
	if _, err := os.Stat(s.userPath(user.Name)); err == nil {
		return fmt.Errorf("用户 %q: %w", user.Name, ErrUserExists)
	}
	return s.Save(user)
}

// Delete 删除用户人设并从 index.json 移除
func (s *UserStore) Delete(name string) error {
	if err := os.Remove(s.userPath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("用户 %q: %w", name, ErrUserNotFound)
		}
		return fmt.Errorf("删除用户文件失败: %w", err)
	}
	return s.removeFromIndex(name)
}

// List 返回按名称排序的用户名列表
func (s *UserStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("读取用户目录失败: %w", err)
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

// SetActive 将指定用户标记为激活，其余全部取消
// 通过重写全部人设文件保证"至多一个激活"的不变式。
func (s *UserStore) SetActive(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.List()
	if err != nil {
		return err
	}

	found := false
	for _, n := range names {
		user, err := s.Load(n)
		if err != nil {
			return err
		}
		user.Active = n == name
		if user.Active {
			found = true
		}

		data, err := json.MarshalIndent(user, "", "  ")
		if err != nil {
			return fmt.Errorf("序列化用户失败: %w", err)
		}
		if err := os.WriteFile(s.userPath(n), data, 0644); err != nil {
			return fmt.Errorf("写入用户文件失败: %w", err)
		}
	}

	if !found {
		return fmt.Errorf("用户 %q: %w", name, ErrUserNotFound)
	}
	return nil
}

// ActiveUser 返回当前激活的用户名
// 无人激活时回退到列表首个用户；没有任何用户返回空串。
func (s *UserStore) ActiveUser() (string, error) {
	names, err := s.List()
	if err != nil {
		return "", err
	}

	for _, n := range names {
		user, err := s.Load(n)
		if err != nil {
			continue
		}
		if user.Active {
			return n, nil
		}
	}

	if len(names) > 0 {
		return names[0], nil
	}
	return "", nil
}

// addToIndex 向 index.json 追加用户名（幂等）
func (s *UserStore) addToIndex(name string) error {
	names := s.readIndex()
	for _, n := range names {
		if n == name {
			return nil
		}
	}
	names = append(names, name)
	return s.writeIndex(names)
}

// removeFromIndex 从 index.json 移除用户名
func (s *UserStore) removeFromIndex(name string) error {
	names := s.readIndex()
	filtered := names[:0]
	for _, n := range names {
		if n != name {
			filtered = append(filtered, n)
		}
	}
	return s.writeIndex(filtered)
}

func (s *UserStore) readIndex() []string {
	var names []string
	if data, err := os.ReadFile(s.indexPath()); err == nil {
		_ = json.Unmarshal(data, &names)
	}
	return names
}

func (s *UserStore) writeIndex(names []string) error {
	sort.Strings(names)
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化用户索引失败: %w", err)
	}
	if err := os.WriteFile(s.indexPath(), data, 0644); err != nil {
		return fmt.Errorf("写入用户索引失败: %w", err)
	}
	return nil
}
