package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrTranscriptNotFound 聊天记录不存在
	ErrTranscriptNotFound = errors.New("transcript not found")
	// ErrTranscriptExists 目标聊天记录已存在
	ErrTranscriptExists = errors.New("transcript already exists")
)

// filenameSanitizePattern 文件名只保留字母数字、空格、连字符和下划线
var filenameSanitizePattern = regexp.MustCompile(`[^A-Za-z0-9_\s-]+`)

// Info 聊天记录条目
type Info struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
}

// Turn 持久化的一轮发言，speaker 是用户显示名或角色名
type Turn struct {
	Speaker string `json:"speaker,omitempty"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

// Store 聊天记录文件存储
// 聊天记录是纯文本，每轮形如 "{Speaker}: {text}\n\n"。逐轮追加和整体重写
// 都会写同一个文件，因此每个文件名持有一把互斥锁，同名写入串行化，
// 不同文件互不阻塞。
type Store struct {
	dir   string
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore 创建聊天记录存储
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}
}

// Dir 返回聊天记录目录
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// lockFor 取文件对应的互斥锁
func (s *Store) lockFor(filename string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.locks[filename]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[filename] = l
	return l
}

// List 返回按文件名排序的 .txt 聊天记录列表
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, fmt.Errorf("读取聊天目录失败: %w", err)
	}

	var infos []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		title := strings.ReplaceAll(strings.TrimSuffix(e.Name(), ".txt"), "_", " ")
		infos = append(infos, Info{Title: title, Filename: e.Name()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Filename < infos[j].Filename })
	if infos == nil {
		infos = []Info{}
	}
	return infos, nil
}

// Read 读取聊天记录原文，不存在返回 ErrTranscriptNotFound
func (s *Store) Read(filename string) (string, error) {
	data, err := os.ReadFile(s.path(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("聊天记录 %q: %w", filename, ErrTranscriptNotFound)
		}
		return "", fmt.Errorf("读取聊天记录失败: %w", err)
	}
	return string(data), nil
}

// Create 新建空聊天记录，文件名为 "角色 - New Chat - 日期.txt"，重名加序号
func (s *Store) Create(character string, now time.Time) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("创建聊天目录失败: %w", err)
	}

	dateStr := now.Format("Jan 02")
	filename := fmt.Sprintf("%s - New Chat - %s.txt", character, dateStr)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(s.path(filename)); os.IsNotExist(err) {
			break
		}
		filename = fmt.Sprintf("%s - New Chat (%d) - %s.txt", character, counter, dateStr)
	}

	if err := os.WriteFile(s.path(filename), nil, 0644); err != nil {
		return "", fmt.Errorf("创建聊天文件失败: %w", err)
	}
	return filename, nil
}

// AppendTurn 追加一轮用户+角色发言
func (s *Store) AppendTurn(filename, userSpeaker, userMsg, character, modelMsg string) error {
	lock := s.lockFor(filename)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("创建聊天目录失败: %w", err)
	}

	f, err := os.OpenFile(s.path(filename), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("打开聊天文件失败: %w", err)
	}
	defer f.Close()

	// 前端可能把换行转义成 \n 字面量，落盘前还原
	modelMsg = strings.ReplaceAll(modelMsg, `\n`, "\n")

	if _, err := fmt.Fprintf(f, "%s: %s\n\n", userSpeaker, userMsg); err != nil {
		return fmt.Errorf("写入聊天文件失败: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%s: %s\n\n", character, modelMsg); err != nil {
		return fmt.Errorf("写入聊天文件失败: %w", err)
	}
	return nil
}

// Rewrite 用完整消息列表整体重写聊天记录
// speaker 为空时按角色回退：user → "User"，其余用文件名前缀里的角色名。
func (s *Store) Rewrite(filename string, turns []Turn) error {
	lock := s.lockFor(filename)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("创建聊天目录失败: %w", err)
	}

	character := CharacterFromFilename(filename)

	var b strings.Builder
	for _, turn := range turns {
		speaker := turn.Speaker
		if speaker == "" {
			if turn.Role == "user" {
				speaker = "User"
			} else {
				speaker = character
			}
		}
		fmt.Fprintf(&b, "%s: %s\n\n", speaker, turn.Content)
	}

	if err := os.WriteFile(s.path(filename), []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("写入聊天文件失败: %w", err)
	}
	return nil
}

// Rename 重命名聊天记录，新名先做文件系统安全清洗
func (s *Store) Rename(oldFilename, newName string) (string, error) {
	oldPath := s.path(oldFilename)
	if _, err := os.Stat(oldPath); os.IsNotExist(err) {
		return "", fmt.Errorf("聊天记录 %q: %w", oldFilename, ErrTranscriptNotFound)
	}

	safeName := strings.TrimSpace(filenameSanitizePattern.ReplaceAllString(newName, ""))
	newFilename := safeName + ".txt"
	newPath := s.path(newFilename)

	if newPath != oldPath {
		if _, err := os.Stat(newPath); err == nil {
			return "", fmt.Errorf("聊天记录 %q: %w", newFilename, ErrTranscriptExists)
		}
	}

	if err := os.Rename(oldPath, newPath); err != nil {
		return "", fmt.Errorf("重命名聊天文件失败: %w", err)
	}
	return newFilename, nil
}

// Copy 复制聊天记录，在日期后缀前插入 " - Branch"
func (s *Store) Copy(sourceFilename string) (string, error) {
	content, err := s.Read(sourceFilename)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(sourceFilename, ".txt")
	var newFilename string
	if idx := strings.LastIndex(base, " - "); idx != -1 {
		newFilename = base[:idx] + " - Branch" + base[idx:] + ".txt"
	} else {
		newFilename = base + " - Branch.txt"
	}

	if err := os.WriteFile(s.path(newFilename), []byte(content), 0644); err != nil {
		return "", fmt.Errorf("写入聊天副本失败: %w", err)
	}
	return newFilename, nil
}

// Delete 删除聊天记录
func (s *Store) Delete(filename string) error {
	if err := os.Remove(s.path(filename)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("聊天记录 %q: %w", filename, ErrTranscriptNotFound)
		}
		return fmt.Errorf("删除聊天文件失败: %w", err)
	}
	return nil
}

// Newest 返回按修改时间最新的聊天记录文件名，目录为空返回空串
func (s *Store) Newest() (string, error) {
	return s.newestMatching(func(string) bool { return true })
}

// NewestForCharacter 返回文件名包含角色名（不区分大小写）的最新聊天记录
func (s *Store) NewestForCharacter(character string) (string, error) {
	needle := strings.ToLower(character)
	return s.newestMatching(func(name string) bool {
		return strings.Contains(strings.ToLower(name), needle)
	})
}

func (s *Store) newestMatching(match func(string) bool) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("读取聊天目录失败: %w", err)
	}

	newest := ""
	var newestTime time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") || !match(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = e.Name()
			newestTime = info.ModTime()
		}
	}
	return newest, nil
}

// RecentContext 取角色最新聊天记录的末尾 maxLines 个非空行
// 没有任何聊天记录时返回空串，由调用方决定兜底内容。
func (s *Store) RecentContext(character string, maxLines int) (string, error) {
	filename, err := s.NewestForCharacter(character)
	if err != nil {
		return "", err
	}
	if filename == "" {
		return "", nil
	}

	content, err := s.Read(filename)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n"), nil
}

// CharacterFromFilename 从 "角色 - 标题 - 日期.txt" 取角色名，取不到返回 "Assistant"
func CharacterFromFilename(filename string) string {
	base := strings.TrimSuffix(filename, ".txt")
	if name, _, ok := strings.Cut(base, " - "); ok {
		return name
	}
	return "Assistant"
}

// RenameForCharacter 角色改名时同步改所有 "旧名 - *.txt" 聊天记录
func (s *Store) RenameForCharacter(oldName, newName string) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("读取聊天目录失败: %w", err)
	}

	prefix := oldName + " - "
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		suffix := e.Name()[len(prefix):]
		if err := os.Rename(s.path(e.Name()), s.path(newName+" - "+suffix)); err != nil {
			return fmt.Errorf("重命名聊天文件失败: %w", err)
		}
	}
	return nil
}
