package prompt

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// defaultSystemPrompt 系统提示词文件缺失时的兜底文案
const defaultSystemPrompt = "You are an LLM-based assistant."

// instructionLayer 固定的角色卡解释层：定义模型如何理解角色卡各字段，
// 以及角色卡未覆盖时的缺省行为。按部署写死，不随请求变化。
const instructionLayer = "This is an ongoing conversation between you and the user. " +
	"Follow the character card to define your personality and behavior.\n\n" +
	"CHARACTER CARD INTERPRETATION:\n" +
	"- main_prompt: Your core personality and identity\n" +
	"- description: Overview of who you are\n" +
	"- scenario: Current context or situation\n" +
	"- character_note: Additional personality traits and preferences\n" +
	"- example_dialogue: Examples of your speaking style (tone only, not content)\n" +
	"- post_history: Previous conversation context\n\n" +
	"Example dialogue shows speaking style only - extract tone, rhythm, and typical response length. " +
	"Do not reference example topics or treat them as actual conversation history.\n\n" +
	"Avoid repetition. Keep responses natural and varied.\n"

// tonePrimer 固定的默认语气层：角色卡未定义语气时生效
const tonePrimer = "When no specific tone is defined in the character card, use this default style:\n\n" +
	"Be natural and conversational. Speak directly without unnecessary formality. " +
	"Adjust response length based on the topic - brief for simple questions, " +
	"detailed for complex topics that need explanation.\n\n" +
	"Cover all points raised by the user thoroughly. Use examples when helpful. " +
	"Maintain a helpful, engaged tone throughout the conversation.\n"

// SystemLayer 带时间戳的基础系统层
// 优先读取部署的系统提示词文件，缺失时使用兜底文案。
func SystemLayer(promptFile string, now time.Time) string {
	timeContext := fmt.Sprintf("Current date and time: %s\n\n",
		now.Format("Monday, 02 January 2006, 03:04 PM GMT"))

	base := defaultSystemPrompt
	if data, err := os.ReadFile(promptFile); err == nil {
		if text := strings.TrimSpace(string(data)); text != "" {
			base = text
		}
	}

	return timeContext + base
}

// InstructionLayer 返回固定的角色卡解释层
func InstructionLayer() string {
	return instructionLayer
}

// TonePrimer 返回固定的默认语气层
func TonePrimer() string {
	return tonePrimer
}
