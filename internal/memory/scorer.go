package memory

import (
	"sort"
	"strings"

	"backend/internal/logger"

	"go.uber.org/zap"
)

// ScoringConfig 关键词打分配置
// CommonKeywords 是本部署中过于泛化的关键词集合，命中只计低权重；
// HighWeight 必须严格大于 LowWeight，保证一个独特关键词胜过多个泛化关键词。
type ScoringConfig struct {
	CommonKeywords map[string]struct{}
	HighWeight     int
	LowWeight      int
}

// NewScoringConfig 构建打分配置，权重非法时回退默认值（高 3 / 低 1）
func NewScoringConfig(commonKeywords []string, highWeight, lowWeight int) ScoringConfig {
	if highWeight <= 0 {
		highWeight = 3
	}
	if lowWeight <= 0 {
		lowWeight = 1
	}
	if highWeight <= lowWeight {
		highWeight = lowWeight + 2
	}

	common := make(map[string]struct{}, len(commonKeywords))
	for _, kw := range commonKeywords {
		common[strings.ToLower(strings.TrimSpace(kw))] = struct{}{}
	}
	return ScoringConfig{
		CommonKeywords: common,
		HighWeight:     highWeight,
		LowWeight:      lowWeight,
	}
}

// scoredBlock 打分结果，index 用于稳定排序
type scoredBlock struct {
	block   Block
	score   int
	index   int
	matched []string
}

// SelectRelevant 对角色全部记忆块打分并返回前 maxResults 个
// 查询文本小写后，每个命中的关键词按独特/泛化计高/低权重求和；
// 零分的块排除，其余按分数降序（同分保持原始顺序）。检索不修改存储，
// 可重复调用。
func (s *Store) SelectRelevant(character, query string, maxResults int, cfg ScoringConfig) ([]Block, error) {
	blocks, err := s.Load(character)
	if err != nil {
		return nil, err
	}
	return ScoreAndSelect(blocks, query, maxResults, cfg), nil
}

// ScoreAndSelect 对给定的块集合打分选优
func ScoreAndSelect(blocks []Block, query string, maxResults int, cfg ScoringConfig) []Block {
	queryLower := strings.ToLower(query)

	var scored []scoredBlock
	for i, block := range blocks {
		score := 0
		var matched []string
		for _, kw := range block.Keywords {
			if kw == "" || !strings.Contains(queryLower, kw) {
				continue
			}
			if _, common := cfg.CommonKeywords[kw]; common {
				score += cfg.LowWeight
			} else {
				score += cfg.HighWeight
			}
			matched = append(matched, kw)
		}
		if score > 0 {
			scored = append(scored, scoredBlock{block: block, score: score, index: i, matched: matched})
		}
	}

	// 分数降序，同分保持原始顺序
	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].score > scored[b].score
	})

	if maxResults > 0 && len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	result := make([]Block, 0, len(scored))
	for rank, sb := range scored {
		logger.Debug("记忆检索命中",
			zap.Int("rank", rank+1),
			zap.Int("score", sb.score),
			zap.Strings("matched", sb.matched),
		)
		result = append(result, sb.block)
	}
	return result
}
