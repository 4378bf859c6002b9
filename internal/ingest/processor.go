// Package ingest 把教材 PDF 拆分为逐页文档，写入 Sanity，并可选地写入向量索引。
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"neural-trace-go/internal/config"
	"neural-trace-go/internal/model"
	"neural-trace-go/pkg/embedding"
	"neural-trace-go/pkg/log"
	"neural-trace-go/pkg/sanity"
	"neural-trace-go/pkg/tasks"
)

// ObjectStore 把对象下载到本地文件。
type ObjectStore interface {
	Download(ctx context.Context, objectName, destPath string) error
}

// TextExtractor 提取单页 PDF 的纯文本。
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// PageIndexer 写入页面向量。
type PageIndexer interface {
	IndexPage(ctx context.Context, doc model.PageVector) error
}

// SplitFunc 把 inFile 拆分为单页文件 <outDir>/<base>_<n>.pdf，返回页数。
type SplitFunc func(inFile, outDir string) (int, error)

// SplitPDF 使用 pdfcpu 拆分 PDF。
func SplitPDF(inFile, outDir string) (int, error) {
	pages, err := api.PageCountFile(inFile)
	if err != nil {
		return 0, fmt.Errorf("读取 PDF 页数失败: %w", err)
	}
	if err := api.SplitFile(inFile, outDir, 1, nil); err != nil {
		return 0, fmt.Errorf("拆分 PDF 失败: %w", err)
	}
	return pages, nil
}

// Deps 是 Processor 的外部依赖。Embedder 与 Indexer 同时存在时才写入向量索引。
type Deps struct {
	Store     ObjectStore
	Extractor TextExtractor
	Sanity    sanity.Client
	Embedder  embedding.Client
	Indexer   PageIndexer
	Split     SplitFunc
}

// Processor 执行一次教材导入。
type Processor struct {
	deps         Deps
	concurrency  int
	limiter      *rate.Limiter
	workDir      string
	modelVersion string
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(deps Deps, cfg config.IngestConfig, modelVersion string) *Processor {
	if deps.Split == nil {
		deps.Split = SplitPDF
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	limit := rate.Inf
	if cfg.EmbeddingsPerSec > 0 {
		limit = rate.Limit(cfg.EmbeddingsPerSec)
	}
	return &Processor{
		deps:         deps,
		concurrency:  concurrency,
		limiter:      rate.NewLimiter(limit, 1),
		workDir:      cfg.WorkDir,
		modelVersion: modelVersion,
	}
}

// PageID 返回页面文档的确定性 id。
func PageID(textbookID string, pageNumber int) string {
	return fmt.Sprintf("%s-page-%d", textbookID, pageNumber)
}

// Process 下载、拆分并逐页写入。单页失败不会中断其他页面，全部完成后汇总返回。
func (p *Processor) Process(ctx context.Context, task tasks.IngestTask) error {
	if task.TextbookID == "" || task.ObjectName == "" {
		return errors.New("textbook id and object name are required")
	}
	plog := log.With("task", task.TaskID, "textbook", task.TextbookID)
	plog.Infow("[Processor] 开始导入教材", "object", task.ObjectName)

	title := p.resolveTitle(ctx, task)

	tempDir, err := os.MkdirTemp(p.workDir, "textbook-*")
	if err != nil {
		return fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// 1. 从对象存储下载
	source := filepath.Join(tempDir, "textbook.pdf")
	if err := p.deps.Store.Download(ctx, task.ObjectName, source); err != nil {
		return fmt.Errorf("下载教材失败: %w", err)
	}

	// 2. 拆分为单页
	pageCount, err := p.deps.Split(source, tempDir)
	if err != nil {
		return err
	}
	if pageCount == 0 {
		plog.Warn("[Processor] 教材没有页面")
		return nil
	}
	plog.Infow("[Processor] 拆分完成", "pages", pageCount, "title", title)

	// 3. 并发处理每一页
	base := strings.TrimSuffix(source, filepath.Ext(source))
	var failed atomic.Int64
	var errs errorList

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for n := 1; n <= pageCount; n++ {
		pageNumber := n
		pagePath := fmt.Sprintf("%s_%d.pdf", base, pageNumber)
		g.Go(func() error {
			if err := p.processPage(gctx, task.TextbookID, title, pageNumber, pagePath); err != nil {
				failed.Add(1)
				plog.Errorw("[Processor] 页面处理失败", "page", pageNumber, "error", err)
				errs.add(fmt.Errorf("page %d: %w", pageNumber, err))
				return nil
			}
			plog.Debugw("[Processor] 页面已写入", "page", pageNumber, "of", pageCount)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	plog.Infow("[Processor] 导入完成", "pages", pageCount, "failed", failed.Load())
	return errs.join()
}

func (p *Processor) processPage(ctx context.Context, textbookID, title string, pageNumber int, pagePath string) error {
	f, err := os.Open(pagePath)
	if err != nil {
		return fmt.Errorf("打开单页文件失败: %w", err)
	}
	defer f.Close()

	text, err := p.deps.Extractor.ExtractText(ctx, f, filepath.Base(pagePath))
	if err != nil {
		return fmt.Errorf("提取文本失败: %w", err)
	}

	id := PageID(textbookID, pageNumber)
	doc := map[string]any{
		"_id":   id,
		"_type": "page",
		"textbook": map[string]any{
			"_type": "reference",
			"_ref":  textbookID,
		},
		"pageNumber": pageNumber,
		"content":    text,
		"title":      fmt.Sprintf("%s - Page %d", title, pageNumber),
	}
	if _, err := p.deps.Sanity.Mutate(ctx, sanity.CreateOrReplace(doc)); err != nil {
		return fmt.Errorf("写入页面文档失败: %w", err)
	}

	if p.deps.Embedder == nil || p.deps.Indexer == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	vector, err := p.deps.Embedder.CreateEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("向量化失败: %w", err)
	}
	return p.deps.Indexer.IndexPage(ctx, model.PageVector{
		DocumentID:    id,
		TextbookID:    textbookID,
		TextbookTitle: title,
		PageNumber:    pageNumber,
		Content:       text,
		Vector:        vector,
		ModelVersion:  p.modelVersion,
	})
}

// resolveTitle 优先使用任务中的标题，否则从 Sanity 读取教材标题。
func (p *Processor) resolveTitle(ctx context.Context, task tasks.IngestTask) string {
	if t := strings.TrimSpace(task.TextbookTitle); t != "" {
		return t
	}
	var title string
	err := p.deps.Sanity.Query(ctx, `*[_id == $id][0].title`, map[string]any{"id": task.TextbookID}, &title)
	if err != nil {
		log.Warnf("[Processor] 读取教材标题失败, textbook: %s, error: %v", task.TextbookID, err)
	}
	if title == "" {
		return "Unknown"
	}
	return title
}
