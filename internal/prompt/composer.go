package prompt

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"backend/internal/logger"
	"backend/internal/memory"
	"backend/internal/persona"
)

// continuationMessage 续聊时插在最后一条用户消息前的指令
const continuationMessage = "Continue the ongoing conversation naturally. " +
	"Do not greet the user again and do not restart the conversation."

// styleEmojis 示例对话中扫描的表情符号，命中任意一个即生成表情风格规则
var styleEmojis = []string{"❤️", "😍", "😘", "💕", "😊", "😉", "🔥", "💯", "✨", "🎯"}

// signatureToken 示例对话结尾的落款标记
const signatureToken = "xxx"

// Options 组装参数，取自配置
type Options struct {
	SystemPromptFile string
	TokenBudget      int
	MessageOverhead  int
	HistoryWindow    int
	WordCeiling      int
}

// TurnContext 单轮组装输入
type TurnContext struct {
	Character       persona.Character
	UserDisplayName string
	UserBio         string
	Memories        []memory.Block
	History         []Message
	AuthorNote      string
	Now             time.Time
}

// Composer 提示词组装器
// 把系统层、角色卡、用户画像、命中的记忆、作者注记和裁剪后的历史
// 组装成有序消息列表，再序列化成后端的 ChatML 文本。组装顺序固定，
// 顺序本身就是契约的一部分。
type Composer struct {
	opts Options
}

// NewComposer 创建提示词组装器
func NewComposer(opts Options) *Composer {
	return &Composer{opts: opts}
}

// Compose 组装并序列化单轮提示词
func (c *Composer) Compose(tc TurnContext) string {
	messages := c.Assemble(tc)
	serialized := Serialize(messages)
	clamped := ClampWords(serialized, c.opts.WordCeiling)
	if len(clamped) != len(serialized) {
		logger.Warn("提示词超过词数上限，已截断",
			zap.Int("before_bytes", len(serialized)),
			zap.Int("after_bytes", len(clamped)))
	}
	return clamped
}

// Assemble 组装有序消息列表（未序列化），便于单独测试注入位置
func (c *Composer) Assemble(tc TurnContext) []Message {
	history := tc.History
	if c.opts.HistoryWindow > 0 && len(history) > c.opts.HistoryWindow {
		history = history[len(history)-c.opts.HistoryWindow:]
	}

	systemContent := c.systemContent(tc)

	messages := make([]Message, 0, len(history)+4)
	messages = append(messages, Message{Role: RoleSystem, Content: systemContent})
	for _, m := range history {
		if m.Role == RoleSystem {
			continue
		}
		messages = append(messages, m)
	}

	messages = TrimHistory(messages, c.opts.TokenBudget, c.opts.MessageOverhead)

	if note := strings.TrimSpace(tc.AuthorNote); note != "" {
		messages = insertNearEnd(messages, Message{
			Role:    RoleSystem,
			Content: "[Author's note: " + note + "]",
		})
	}

	if note := strings.TrimSpace(tc.Character.CharacterNote); note != "" {
		count := CountConversation(messages)
		// 每 4 轮提醒一次，避免每轮重复注入冲淡历史
		if count < 4 || count%4 == 0 {
			messages = insertNearEnd(messages, Message{
				Role:    RoleSystem,
				Content: "[Character note: " + note + "]",
			})
		}
	}

	if HasAssistantTurn(messages) {
		messages = insertBeforeLastUser(messages, Message{
			Role:    RoleSystem,
			Content: continuationMessage,
		})
	}

	return messages
}

// systemContent 拼系统消息正文：系统层、用户画像、角色上下文、
// 固定指令层、语气层、命中的记忆块，最后才是示例对话围栏
func (c *Composer) systemContent(tc TurnContext) string {
	var b strings.Builder

	b.WriteString(SystemLayer(c.opts.SystemPromptFile, tc.Now))
	b.WriteString("\n\n")

	if bio := strings.TrimSpace(tc.UserBio); bio != "" {
		fmt.Fprintf(&b, "User persona - %s: %s\n\n", tc.UserDisplayName, bio)
	}

	b.WriteString(characterContext(tc.Character))
	b.WriteString("\n")
	b.WriteString(InstructionLayer())
	b.WriteString("\n")
	b.WriteString(TonePrimer())

	if len(tc.Memories) > 0 {
		b.WriteString("\n")
		b.WriteString(memoriesBlock(tc.Memories))
	}

	if example := strings.TrimSpace(tc.Character.ExampleDialogue); example != "" {
		b.WriteString("\n")
		b.WriteString(exampleDialogueBlock(example))
	}

	return b.String()
}

// characterContext 按固定顺序拼角色上下文
func characterContext(card persona.Character) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Character: %s\n", card.Name)
	if desc := strings.TrimSpace(card.Description); desc != "" {
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}
	if scenario := strings.TrimSpace(card.Scenario); scenario != "" {
		fmt.Fprintf(&b, "Scenario: %s\n", scenario)
	}
	if main := strings.TrimSpace(card.MainPrompt); main != "" {
		b.WriteString(main)
		b.WriteString("\n")
	}
	if post := strings.TrimSpace(card.PostHistory); post != "" {
		b.WriteString(post)
		b.WriteString("\n")
	}
	return b.String()
}

// exampleDialogueBlock 示例对话围栏和派生的风格规则
// 只允许模型学风格，明确禁止引用示例话题。
func exampleDialogueBlock(example string) string {
	var b strings.Builder
	b.WriteString("[EXAMPLE DIALOGUE - STYLE REFERENCE ONLY]\n")
	b.WriteString(example)
	b.WriteString("\n[END EXAMPLE DIALOGUE]\n\n")
	b.WriteString("Style rules derived from the example dialogue:\n")
	b.WriteString("- Match the tone, rhythm, and typical response length shown above.\n")
	if containsStyleEmoji(example) {
		b.WriteString("- Use emoji in the same way and at the same frequency as the example.\n")
	}
	if hasSignature(example) {
		fmt.Fprintf(&b, "- End your messages with the %q sign-off the way the example does.\n", signatureToken)
	}
	b.WriteString("- Never copy the example's topics or treat it as actual conversation history.\n")
	return b.String()
}

func containsStyleEmoji(text string) bool {
	for _, emoji := range styleEmojis {
		if strings.Contains(text, emoji) {
			return true
		}
	}
	return false
}

func hasSignature(text string) bool {
	return strings.HasSuffix(strings.TrimSpace(strings.ToLower(text)), signatureToken)
}

// memoriesBlock 命中记忆的格式化文本
func memoriesBlock(blocks []memory.Block) string {
	var b strings.Builder
	b.WriteString("Relevant memories from previous conversations:\n")
	for _, block := range blocks {
		fmt.Fprintf(&b, "[Memory: %s]\n%s\n", block.Title, strings.TrimSpace(block.Body))
	}
	return b.String()
}

// insertNearEnd 插到 max(1, len-3)，贴近生成点但不越过系统消息
func insertNearEnd(messages []Message, msg Message) []Message {
	pos := len(messages) - 3
	if pos < 1 {
		pos = 1
	}
	return insertAt(messages, pos, msg)
}

// insertBeforeLastUser 插到最后一条用户消息之前
// 找不到用户消息时追加到末尾。
func insertBeforeLastUser(messages []Message, msg Message) []Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return insertAt(messages, i, msg)
		}
	}
	return append(messages, msg)
}

func insertAt(messages []Message, pos int, msg Message) []Message {
	messages = append(messages, Message{})
	copy(messages[pos+1:], messages[pos:])
	messages[pos] = msg
	return messages
}
