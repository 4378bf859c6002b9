// Package concepts 从文本中提取可能的概念关键词。
package concepts

import (
	"regexp"
	"strings"
)

// DefaultLimit 是未指定上限时返回的最大概念数。
const DefaultLimit = 5

var (
	wordPattern = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)

	stopwords = map[string]struct{}{
		"that": {}, "this": {}, "with": {}, "from": {},
		"have": {}, "what": {}, "when": {},
	}

	// 空文本时返回的固定列表
	emptySentinel = []string{"learning", "concept"}
	// 过滤后无剩余词时返回的固定列表
	noMatchSentinel = []string{"concept"}
)

// Extract 返回按首次出现顺序排列、去重后的小写关键词，长度不超过 limit，且永不为空。
// 最多扫描 2*limit 个原始词。
func Extract(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if strings.TrimSpace(text) == "" {
		return append([]string(nil), emptySentinel...)
	}

	words := wordPattern.FindAllString(text, limit*2)
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, limit)
	for _, w := range words {
		wl := strings.ToLower(w)
		if _, ok := seen[wl]; ok {
			continue
		}
		if isStopword(wl) {
			continue
		}
		seen[wl] = struct{}{}
		out = append(out, wl)
		if len(out) >= limit {
			break
		}
	}
	if len(out) == 0 {
		return append([]string(nil), noMatchSentinel...)
	}
	return out
}

// isStopword 判断一个小写词是否属于停用词集合。
func isStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}
