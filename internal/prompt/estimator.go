package prompt

import "regexp"

// tokenRunPattern 按单词串与单个标点切分：一串字母数字下划线算一个单元，
// 其余非空白字符逐个计数。对标点密集文本宁可高估，不可低估。
var tokenRunPattern = regexp.MustCompile(`\w+|[^\s\w]`)

// Estimate 估算文本的 token 数量
// 这是一个启发式近似，不是真正的分词器，仅用于上下文预算判断。
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	return len(tokenRunPattern.FindAllString(text, -1))
}
