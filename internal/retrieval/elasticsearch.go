package retrieval

import (
	"context"
	"fmt"

	"neural-trace-go/pkg/embedding"
	"neural-trace-go/pkg/es"
)

// vectorSearcher 是 es.Client 的 kNN 检索能力。
type vectorSearcher interface {
	KNN(ctx context.Context, vector []float32, k int) ([]es.Hit, error)
}

// ESIndex 先将查询向量化，再在 Elasticsearch 的页面向量上做 kNN 检索。
type ESIndex struct {
	embedder embedding.Client
	searcher vectorSearcher
}

// NewESIndex 创建基于 Elasticsearch 的语义索引。
func NewESIndex(embedder embedding.Client, searcher vectorSearcher) *ESIndex {
	return &ESIndex{embedder: embedder, searcher: searcher}
}

func (e *ESIndex) Query(ctx context.Context, query string, k int) ([]Hit, error) {
	vector, err := e.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	raw, err := e.searcher.KNN(ctx, vector, k)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(raw))
	for _, h := range raw {
		hits = append(hits, Hit{DocumentID: h.DocumentID, Score: h.Score})
	}
	return hits, nil
}
