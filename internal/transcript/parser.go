package transcript

import (
	"strings"
)

// maxSpeakerLen 超过这个长度的 "xxx:" 前缀按正文处理，避免把普通冒号句切成发言人
const maxSpeakerLen = 30

// ParsedMessage 解析出的一条消息
type ParsedMessage struct {
	Role    string `json:"role"`
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

// Resolver 把发言人名字映射成角色
// 用户名集合和角色名集合由调用方从 persona 存储取出后传入。
type Resolver struct {
	users      map[string]struct{}
	characters map[string]struct{}
}

// NewResolver 创建发言人解析器，名字匹配不区分大小写
func NewResolver(userNames, characterNames []string) *Resolver {
	r := &Resolver{
		users:      make(map[string]struct{}, len(userNames)),
		characters: make(map[string]struct{}, len(characterNames)),
	}
	for _, n := range userNames {
		r.users[strings.ToLower(n)] = struct{}{}
	}
	for _, n := range characterNames {
		r.characters[strings.ToLower(n)] = struct{}{}
	}
	return r
}

// roleOf 返回发言人对应的角色，未知名字不算发言人
func (r *Resolver) roleOf(speaker string) (string, bool) {
	key := strings.ToLower(speaker)
	if _, ok := r.users[key]; ok {
		return "user", true
	}
	if _, ok := r.characters[key]; ok {
		return "assistant", true
	}
	return "", false
}

// ParseMessages 把 "发言人: 正文" 格式的聊天记录解析成消息列表
// 只有冒号前缀命中已知用户或角色名时才开启新消息，其余行并入上一条正文，
// 这样正文里的换行和普通冒号不会被误切。
func ParseMessages(content string, resolver *Resolver) []ParsedMessage {
	var messages []ParsedMessage

	flush := func(msg *ParsedMessage) {
		if msg == nil {
			return
		}
		msg.Content = strings.TrimSpace(msg.Content)
		if msg.Content != "" {
			messages = append(messages, *msg)
		}
	}

	var current *ParsedMessage
	for _, line := range strings.Split(content, "\n") {
		speaker, rest, found := cutSpeaker(line)
		if found {
			if role, known := resolver.roleOf(speaker); known {
				flush(current)
				current = &ParsedMessage{Role: role, Speaker: speaker, Content: rest}
				continue
			}
		}
		if current != nil {
			current.Content += "\n" + line
		}
	}
	flush(current)

	if messages == nil {
		messages = []ParsedMessage{}
	}
	return messages
}

// cutSpeaker 尝试把行切成 "发言人" 和正文
func cutSpeaker(line string) (speaker, rest string, ok bool) {
	before, after, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	before = strings.TrimSpace(before)
	if before == "" || len(before) > maxSpeakerLen {
		return "", "", false
	}
	return before, strings.TrimSpace(after), true
}
