package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// BlockMarker 记忆块分隔标记，磁盘格式的一部分
const BlockMarker = "# Memory:"

// keywordSplitPattern Keywords 行按逗号/分号/冒号切分
var keywordSplitPattern = regexp.MustCompile(`[,:;]+`)

// Block 长期记忆块：标题 + 关键词集合 + 正文
type Block struct {
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
	Body     string   `json:"body"`
}

// Store 按角色组织的记忆文件存储
// 每个角色对应 <dir>/<小写角色名>_memory.txt，块之间以 BlockMarker 分隔。
// 写入只追加，不改写已有内容，因此对并发读者安全；同一角色的并发
// 追加通过按键互斥锁串行化。
type Store struct {
	dir   string
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore 创建记忆存储
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}
}

// filePath 记忆文件路径，角色名统一小写
func (s *Store) filePath(character string) string {
	return filepath.Join(s.dir, strings.ToLower(character)+"_memory.txt")
}

// lockFor 取角色对应的互斥锁，不同角色互不阻塞
func (s *Store) lockFor(character string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(character)
	if l, ok := s.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	s.locks[key] = l
	return l
}

// Append 追加一个格式化记忆块
func (s *Store) Append(character, title string, keywords []string, body string) error {
	var b strings.Builder
	b.WriteString(BlockMarker + " " + title + "\n")
	if len(keywords) > 0 {
		b.WriteString("Keywords: " + strings.Join(keywords, ", ") + ".\n")
	}
	b.WriteString("\n" + body + "\n\n")
	return s.AppendRaw(character, b.String())
}

// AppendRaw 追加一段已格式化的记忆文本（用于摘要服务返回的块）
func (s *Store) AppendRaw(character, block string) error {
	lock := s.lockFor(character)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("创建记忆目录失败: %w", err)
	}

	f, err := os.OpenFile(s.filePath(character), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("打开记忆文件失败: %w", err)
	}
	defer f.Close()

	if !strings.HasSuffix(block, "\n\n") {
		block = strings.TrimRight(block, "\n") + "\n\n"
	}
	if _, err := f.WriteString(block); err != nil {
		return fmt.Errorf("写入记忆文件失败: %w", err)
	}
	return nil
}

// Load 读取并解析角色的全部记忆块
// 文件不存在返回空列表而非错误。每块首个非空行为标题，Keywords 行给出
// 关键词集合（小写、去空白），其余行拼接为正文。
func (s *Store) Load(character string) ([]Block, error) {
	data, err := os.ReadFile(s.filePath(character))
	if err != nil {
		if os.IsNotExist(err) {
			return []Block{}, nil
		}
		return nil, fmt.Errorf("读取记忆文件失败: %w", err)
	}

	return ParseBlocks(string(data)), nil
}

// ParseBlocks 按 BlockMarker 切分并解析记忆文本
func ParseBlocks(text string) []Block {
	parts := strings.Split(text, BlockMarker)
	blocks := make([]Block, 0, len(parts))

	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}

		lines := strings.Split(strings.TrimSpace(part), "\n")
		block := Block{
			Title:    "Untitled",
			Keywords: []string{},
		}

		var bodyLines []string
		titleSet := false
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if !titleSet && trimmed != "" {
				block.Title = trimmed
				titleSet = true
				continue
			}
			if strings.HasPrefix(strings.ToLower(trimmed), "keywords:") {
				block.Keywords = parseKeywords(trimmed)
				continue
			}
			if trimmed != "" {
				bodyLines = append(bodyLines, trimmed)
			}
		}
		block.Body = strings.Join(bodyLines, " ")
		blocks = append(blocks, block)
	}

	return blocks
}

// parseKeywords 解析 "Keywords: a, b; c." 形式的关键词行
func parseKeywords(line string) []string {
	_, rest, ok := strings.Cut(line, ":")
	if !ok {
		return []string{}
	}

	parts := keywordSplitPattern.Split(rest, -1)
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		kw := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p), ".")))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
