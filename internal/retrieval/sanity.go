package retrieval

import (
	"context"

	"neural-trace-go/pkg/sanity"
)

// pageProjection 读取页面及其所属教材的标题。
const pageProjection = `*[_id == $id][0]{title, pageNumber, content, "textbookTitle": textbook->title}`

// SanityIndex 使用 Sanity 的 embeddings index 作为语义索引。
type SanityIndex struct {
	client sanity.Client
	index  string
}

// NewSanityIndex 创建基于 Sanity embeddings index 的索引。
func NewSanityIndex(client sanity.Client, index string) *SanityIndex {
	return &SanityIndex{client: client, index: index}
}

func (s *SanityIndex) Query(ctx context.Context, query string, k int) ([]Hit, error) {
	raw, err := s.client.QueryEmbeddings(ctx, s.index, query, k)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		hits = append(hits, Hit{DocumentID: h.Value.DocumentID, Score: h.Score})
	}
	return hits, nil
}

// SanityPages 通过 GROQ 查询读取页面文档。
type SanityPages struct {
	client sanity.Client
}

// NewSanityPages 创建页面读取器。
func NewSanityPages(client sanity.Client) *SanityPages {
	return &SanityPages{client: client}
}

func (s *SanityPages) FetchPage(ctx context.Context, id string) (*Page, error) {
	var page *Page
	if err := s.client.Query(ctx, pageProjection, map[string]any{"id": id}, &page); err != nil {
		return nil, err
	}
	return page, nil
}
