package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neural-trace-go/internal/config"
	"neural-trace-go/internal/model"
	"neural-trace-go/pkg/sanity"
	"neural-trace-go/pkg/tasks"
)

type fakeStore struct{ err error }

func (f fakeStore) Download(_ context.Context, _ string, dest string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dest, []byte("%PDF"), 0o644)
}

// fakeSplit 写出与 pdfcpu 相同命名的单页文件，内容为页码。
func fakeSplit(pages int) SplitFunc {
	return func(inFile, outDir string) (int, error) {
		base := strings.TrimSuffix(filepath.Base(inFile), filepath.Ext(inFile))
		for n := 1; n <= pages; n++ {
			name := filepath.Join(outDir, fmt.Sprintf("%s_%d.pdf", base, n))
			if err := os.WriteFile(name, []byte(fmt.Sprintf("text of page %d", n)), 0o644); err != nil {
				return 0, err
			}
		}
		return pages, nil
	}
}

type readExtractor struct{ failPage string }

func (r readExtractor) ExtractText(_ context.Context, rd io.Reader, fileName string) (string, error) {
	if r.failPage != "" && strings.HasSuffix(fileName, r.failPage) {
		return "", errors.New("tika down")
	}
	b, err := io.ReadAll(rd)
	return string(b), err
}

type fakeSanity struct {
	mu    sync.Mutex
	docs  map[string]map[string]any
	title string
}

func (f *fakeSanity) Configured() bool { return true }

func (f *fakeSanity) Query(_ context.Context, _ string, _ map[string]any, out any) error {
	if p, ok := out.(*string); ok {
		*p = f.title
	}
	return nil
}

func (f *fakeSanity) Mutate(_ context.Context, mutations ...sanity.Mutation) (sanity.MutateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docs == nil {
		f.docs = make(map[string]map[string]any)
	}
	for _, m := range mutations {
		doc := m["createOrReplace"].(map[string]any)
		f.docs[doc["_id"].(string)] = doc
	}
	return sanity.MutateResult{}, nil
}

func (f *fakeSanity) QueryEmbeddings(context.Context, string, string, int) ([]sanity.EmbeddingHit, error) {
	return nil, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

type memIndexer struct {
	mu   sync.Mutex
	docs []model.PageVector
}

func (m *memIndexer) IndexPage(_ context.Context, doc model.PageVector) error {
	m.mu.Lock()
	m.docs = append(m.docs, doc)
	m.mu.Unlock()
	return nil
}

func cfg(t *testing.T) config.IngestConfig {
	return config.IngestConfig{Concurrency: 2, WorkDir: t.TempDir()}
}

func TestProcess_WritesPageDocuments(t *testing.T) {
	lake := &fakeSanity{}
	idx := &memIndexer{}
	p := NewProcessor(Deps{
		Store:     fakeStore{},
		Extractor: readExtractor{},
		Sanity:    lake,
		Embedder:  fakeEmbedder{},
		Indexer:   idx,
		Split:     fakeSplit(3),
	}, cfg(t), "text-embedding-v4")

	err := p.Process(context.Background(), tasks.IngestTask{TaskID: "t1", TextbookID: "tb1", TextbookTitle: "Biology", ObjectName: "bio.pdf"})
	require.NoError(t, err)

	require.Len(t, lake.docs, 3)
	doc := lake.docs["tb1-page-2"]
	assert.Equal(t, "page", doc["_type"])
	assert.Equal(t, 2, doc["pageNumber"])
	assert.Equal(t, "text of page 2", doc["content"])
	assert.Equal(t, "Biology - Page 2", doc["title"])
	assert.Equal(t, map[string]any{"_type": "reference", "_ref": "tb1"}, doc["textbook"])

	require.Len(t, idx.docs, 3)
	for _, v := range idx.docs {
		assert.Equal(t, PageID("tb1", v.PageNumber), v.DocumentID)
		assert.Equal(t, "text-embedding-v4", v.ModelVersion)
		assert.NotEmpty(t, v.Vector)
	}
}

func TestProcess_TitleFromSanity(t *testing.T) {
	lake := &fakeSanity{title: "Chemistry"}
	p := NewProcessor(Deps{Store: fakeStore{}, Extractor: readExtractor{}, Sanity: lake, Split: fakeSplit(1)}, cfg(t), "")

	require.NoError(t, p.Process(context.Background(), tasks.IngestTask{TextbookID: "tb2", ObjectName: "chem.pdf"}))
	assert.Equal(t, "Chemistry - Page 1", lake.docs["tb2-page-1"]["title"])

	lake = &fakeSanity{}
	p = NewProcessor(Deps{Store: fakeStore{}, Extractor: readExtractor{}, Sanity: lake, Split: fakeSplit(1)}, cfg(t), "")
	require.NoError(t, p.Process(context.Background(), tasks.IngestTask{TextbookID: "tb3", ObjectName: "x.pdf"}))
	assert.Equal(t, "Unknown - Page 1", lake.docs["tb3-page-1"]["title"])
}

func TestProcess_PageFailureDoesNotStopOthers(t *testing.T) {
	lake := &fakeSanity{}
	p := NewProcessor(Deps{
		Store:     fakeStore{},
		Extractor: readExtractor{failPage: "_2.pdf"},
		Sanity:    lake,
		Split:     fakeSplit(3),
	}, cfg(t), "")

	err := p.Process(context.Background(), tasks.IngestTask{TextbookID: "tb1", TextbookTitle: "Bio", ObjectName: "bio.pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page 2")
	assert.Len(t, lake.docs, 2)
	assert.NotContains(t, lake.docs, "tb1-page-2")
}

func TestProcess_Errors(t *testing.T) {
	p := NewProcessor(Deps{Store: fakeStore{err: errors.New("no such key")}, Sanity: &fakeSanity{}, Split: fakeSplit(1)}, cfg(t), "")

	assert.Error(t, p.Process(context.Background(), tasks.IngestTask{}))
	err := p.Process(context.Background(), tasks.IngestTask{TextbookID: "tb1", TextbookTitle: "Bio", ObjectName: "missing.pdf"})
	assert.ErrorContains(t, err, "no such key")
}

func TestPageID(t *testing.T) {
	assert.Equal(t, "abc-page-12", PageID("abc", 12))
}
