package memory

import (
	"regexp"
	"strings"
)

// 触发检测的清洗与匹配规则
var (
	// chatMLTagPattern 去掉 <|im_start|>、<|im_end|> 等标记
	chatMLTagPattern = regexp.MustCompile(`<\|.*?\|>`)
	// leadingSystemPattern 去掉粘连在输入前的 system 块
	leadingSystemPattern = regexp.MustCompile(`(?s)^system\n.*?\n`)
	// leadingUserPattern 去掉行首的 user 角色标签
	leadingUserPattern = regexp.MustCompile(`(?i)^user\n`)

	// triggerPatterns 保存动作动词与 "memory" 在 40 字符内配对，双向均可
	triggerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(save|store|put|record|note|keep|log|memorize).{0,40}memory`),
		regexp.MustCompile(`memory.{0,40}(save|store|put|record|note|keep|log|memorize)`),
	}
)

// CleanUtterance 清洗用户输入：去掉 ChatML 标记与行首角色标签
func CleanUtterance(text string) string {
	text = chatMLTagPattern.ReplaceAllString(text, "")
	text = leadingSystemPattern.ReplaceAllString(text, "")
	text = leadingUserPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// DetectTrigger 判断用户输入是否为"保存到记忆"请求
// 两个条件缺一不可：文本包含字面量 "memory"，且命中保存动词配对模式。
// 仅提到 memory（如 "memory leak"）不触发。二值门控，无置信度。
func DetectTrigger(utterance string) bool {
	cleaned := strings.ToLower(CleanUtterance(utterance))

	if !strings.Contains(cleaned, "memory") {
		return false
	}
	for _, pattern := range triggerPatterns {
		if pattern.MatchString(cleaned) {
			return true
		}
	}
	return false
}
