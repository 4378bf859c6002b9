// Package retrieval 负责从语义索引中检索与当前页面相关的教材片段，并渲染为上下文摘要。
package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"neural-trace-go/internal/prompt"
	"neural-trace-go/pkg/log"
)

const (
	// NoContextFound 在索引没有命中时返回。
	NoContextFound = "No relevant context found in textbooks."
	// NoContentRetrieved 在所有命中的页面都取不到内容时返回。
	NoContentRetrieved = "Could not retrieve textbook content."

	DefaultTopK = 3

	snippetChars   = 300
	minSelection   = 20
	queryTextChars = 200
	separator      = "\n---\n"
)

// Hit 是语义索引返回的一个命中。
type Hit struct {
	DocumentID string
	Score      float64
}

// Page 是命中文档的内容。PageNumber 为 nil 表示文档没有页码字段。
type Page struct {
	Title         string `json:"title"`
	PageNumber    *int   `json:"pageNumber"`
	Content       string `json:"content"`
	TextbookTitle string `json:"textbookTitle"`
}

// Index 是远程语义索引。
type Index interface {
	Query(ctx context.Context, query string, k int) ([]Hit, error)
}

// PageFetcher 按 id 读取页面文档。页面不存在时返回 (nil, nil)。
type PageFetcher interface {
	FetchPage(ctx context.Context, id string) (*Page, error)
}

// Retriever 组合索引查询与页面读取。
type Retriever struct {
	index Index
	pages PageFetcher
}

// NewRetriever 创建检索器。
func NewRetriever(index Index, pages PageFetcher) *Retriever {
	return &Retriever{index: index, pages: pages}
}

// Context 返回与 query 相关的上下文摘要，按索引返回的顺序渲染，不重新排序。
// 远程失败不会向上返回：索引失败视为无命中，单个页面读取失败则跳过该页面。
func (r *Retriever) Context(ctx context.Context, query string, topK int) string {
	if topK <= 0 {
		topK = DefaultTopK
	}

	hits, err := r.index.Query(ctx, query, topK)
	if err != nil {
		log.Warnf("[Retriever] 语义索引查询失败, query: %q, error: %v", query, err)
		hits = nil
	}
	if len(hits) == 0 {
		return NoContextFound
	}

	parts := make([]string, 0, len(hits))
	for _, hit := range hits {
		if hit.DocumentID == "" {
			continue
		}
		page, err := r.pages.FetchPage(ctx, hit.DocumentID)
		if err != nil {
			log.Warnf("[Retriever] 读取页面 %s 失败: %v", hit.DocumentID, err)
			continue
		}
		if page == nil {
			log.Warnf("[Retriever] 页面 %s 不存在", hit.DocumentID)
			continue
		}
		parts = append(parts, render(*page, hit.Score))
	}
	if len(parts) == 0 {
		return NoContentRetrieved
	}
	return strings.Join(parts, separator)
}

func render(p Page, score float64) string {
	pageNum := "?"
	if p.PageNumber != nil {
		pageNum = strconv.Itoa(*p.PageNumber)
	}
	title := p.TextbookTitle
	if title == "" {
		title = "Unknown"
	}
	snippet := prompt.Truncate(p.Content, snippetChars, "...")
	return fmt.Sprintf("[Page %s from '%s' (relevance: %.2f)]\n%s\n", pageNum, title, score, snippet)
}

// ShouldRetrieve 判断是否值得检索上下文：必须有文档 id，且选区为空或不少于 20 个字符。
func ShouldRetrieve(documentID, selectedText string) bool {
	if documentID == "" {
		return false
	}
	sel := strings.TrimSpace(selectedText)
	if sel != "" && len([]rune(sel)) < minSelection {
		return false
	}
	return true
}

// Query 构造语义检索用的查询："page <n>" 加上选区前 200 个字符（占位文本除外）。
func Query(pageNumber int, selectedText string) string {
	q := fmt.Sprintf("page %d", pageNumber)
	if prompt.IsGeneric(selectedText) {
		return q
	}
	return q + " " + prompt.Truncate(strings.TrimSpace(selectedText), queryTextChars, "")
}

// IsSentinel 判断摘要是否只是“没有检索到内容”的占位文本。
func IsSentinel(digest string) bool {
	return digest == NoContextFound || digest == NoContentRetrieved
}
