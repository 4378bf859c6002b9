// Package app 负责按配置构建服务端与导入命令共用的外部客户端。
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"neural-trace-go/internal/config"
	"neural-trace-go/internal/ingest"
	"neural-trace-go/internal/retrieval"
	"neural-trace-go/pkg/embedding"
	"neural-trace-go/pkg/es"
	"neural-trace-go/pkg/log"
	"neural-trace-go/pkg/sanity"
	"neural-trace-go/pkg/storage"
	"neural-trace-go/pkg/tika"
)

const (
	IndexSanity        = "sanity"
	IndexElasticsearch = "elasticsearch"
)

// NewSanityClient 根据配置创建 Sanity 客户端。未配置项目时返回的客户端 Configured() 为 false。
func NewSanityClient(cfg config.SanityConfig) sanity.Client {
	return sanity.NewClient(cfg.ProjectID, cfg.Dataset,
		sanity.WithToken(cfg.Token),
		sanity.WithAPIVersion(cfg.APIVersion),
		sanity.WithBaseURL(cfg.BaseURL),
		sanity.WithTimeout(time.Duration(cfg.TimeoutSecs)*time.Second),
	)
}

// NewVectorIndex 在配置了地址与 embedding 模型时创建 Elasticsearch 客户端并确保索引存在，否则返回 nil。
func NewVectorIndex(ctx context.Context, cfg config.Config) (*es.Client, error) {
	if strings.TrimSpace(cfg.Elasticsearch.Addresses) == "" {
		return nil, nil
	}
	if cfg.Embedding.APIKey == "" || cfg.Embedding.BaseURL == "" {
		log.Warnf("[App] 已配置 Elasticsearch 但缺少 embedding 配置，向量索引不可用")
		return nil, nil
	}
	client, err := es.NewClient(cfg.Elasticsearch)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureIndex(ctx, cfg.Embedding.Dimensions); err != nil {
		return nil, err
	}
	return client, nil
}

// NewRetriever 按 retrieval.index 选择语义索引。页面正文始终从 Sanity 读取。
// 返回 nil 表示检索不可用，问题生成将不带上下文。
func NewRetriever(cfg config.Config, sc sanity.Client, vectors *es.Client) (*retrieval.Retriever, error) {
	if !sc.Configured() {
		log.Warnf("[App] Sanity 未配置，上下文检索已关闭")
		return nil, nil
	}
	pages := retrieval.NewSanityPages(sc)

	switch strings.ToLower(cfg.Retrieval.Index) {
	case "", IndexSanity:
		return retrieval.NewRetriever(retrieval.NewSanityIndex(sc, cfg.Sanity.EmbeddingsIndex), pages), nil
	case IndexElasticsearch:
		if vectors == nil {
			return nil, errors.New("retrieval index elasticsearch requires elasticsearch and embedding settings")
		}
		index := retrieval.NewESIndex(embedding.NewClient(cfg.Embedding), vectors)
		return retrieval.NewRetriever(index, pages), nil
	default:
		return nil, fmt.Errorf("unknown retrieval index %q", cfg.Retrieval.Index)
	}
}

// NewIngestProcessor 组装教材导入流程。vectors 为 nil 时只写入 Sanity 页面文档。
func NewIngestProcessor(ctx context.Context, cfg config.Config, sc sanity.Client, vectors *es.Client) (*ingest.Processor, error) {
	if !sc.Configured() {
		return nil, errors.New("ingestion requires sanity project and dataset")
	}
	if cfg.Tika.ServerURL == "" {
		return nil, errors.New("ingestion requires a tika server url")
	}
	store, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		return nil, err
	}

	deps := ingest.Deps{
		Store:     store,
		Extractor: tika.NewClient(cfg.Tika),
		Sanity:    sc,
	}
	if vectors != nil {
		deps.Embedder = embedding.NewClient(cfg.Embedding)
		deps.Indexer = vectors
	}
	return ingest.NewProcessor(deps, cfg.Ingest, cfg.Embedding.Model), nil
}
