package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neural-trace-go/internal/model"
	"neural-trace-go/internal/pipeline"
	"neural-trace-go/internal/prompt"
	"neural-trace-go/pkg/tasks"
	"neural-trace-go/pkg/youcom"
)

type stubLLM struct {
	answer string
	err    error
}

func (s stubLLM) Ask(context.Context, string) (string, error) { return s.answer, s.err }

type stubRetriever struct {
	digest string
	calls  int
}

func (s *stubRetriever) Context(context.Context, string, int) string {
	s.calls++
	return s.digest
}

type memStore struct {
	records map[string]model.AnswerRecord
	err     error
}

func (m *memStore) Upsert(_ context.Context, rec *model.AnswerRecord) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.records == nil {
		m.records = make(map[string]model.AnswerRecord)
	}
	m.records[rec.ID] = *rec
	return rec.ID, nil
}

type stubSearcher struct {
	results map[string][]youcom.SearchResult
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string, count int) []youcom.SearchResult {
	s.queries = append(s.queries, query)
	return s.results[query]
}

func newServices(llm stubLLM, ret *stubRetriever, store *memStore, searcher Searcher) (QuestionService, AnswerService) {
	var r pipeline.ContextRetriever
	if ret != nil {
		r = ret
	}
	steps := pipeline.NewSteps(r, llm, 3, 5)
	graph := pipeline.NewQuestionGraph(steps, store)
	return NewQuestionService(graph, steps), NewAnswerService(graph, searcher, 3, 5)
}

const digest = "[Page 2 from 'Bio' (relevance: 0.90)]\nCells divide.\n"

func TestQuestionService_GraphAndInlineAgree(t *testing.T) {
	req := model.QuestionRequest{DocumentID: "doc1", PageNumber: 2, SelectedText: "  Cells divide through mitosis and meiosis.  "}

	for _, llm := range []stubLLM{
		{answer: "What distinguishes mitosis from meiosis?"},
		{err: errors.New("absent")},
	} {
		q, _ := newServices(llm, &stubRetriever{digest: digest}, &memStore{}, nil)
		fromGraph, err := q.Generate(context.Background(), req)
		require.NoError(t, err)
		inline, err := q.Enhanced(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, fromGraph, inline)
		assert.True(t, inline.ContextUsed)
		assert.Equal(t, digest, inline.ContextDigest)
	}
}

func TestQuestionService_ScenarioA(t *testing.T) {
	q, _ := newServices(stubLLM{}, &stubRetriever{digest: digest}, &memStore{}, nil)
	res, err := q.Generate(context.Background(), model.QuestionRequest{DocumentID: "doc1", PageNumber: 2})
	require.NoError(t, err)
	assert.Equal(t, prompt.SummarizeQuestion, res.Question)
	assert.Equal(t, 2, res.Anchor.PageNumber)
	assert.NotEmpty(t, res.Concepts)
}

func TestQuestionService_PDFIDAlias(t *testing.T) {
	ret := &stubRetriever{digest: digest}
	q, _ := newServices(stubLLM{}, ret, &memStore{}, nil)
	_, err := q.Enhanced(context.Background(), model.QuestionRequest{PDFID: "legacy", PageNumber: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, ret.calls)
}

func TestAnswerService_Submit(t *testing.T) {
	searcher := &stubSearcher{results: map[string][]youcom.SearchResult{
		"definition examples photosynthesis": {
			{Description: "Process used by plants.", Snippets: []string{"Light becomes sugar.", "ignored"}},
			{Description: strings.Repeat("d", 250), Snippets: []string{}},
		},
	}}
	_, a := newServices(stubLLM{}, nil, &memStore{}, searcher)

	res := a.Submit(context.Background(), model.SubmitAnswerRequest{
		SelectedText: "Photosynthesis converts sunlight",
		Answer:       "plants make glucose energy",
	})

	assert.Equal(t, "Your response was marked as 'medium'. Keep reflecting on the concepts to strengthen your Neural Trace.", res.Evaluation)
	assert.Equal(t, []string{"photosynthesis", "converts", "sunlight", "plants", "make"}, res.Concepts)
	require.Len(t, res.Enrichment, 3)
	assert.Equal(t, []string{
		"definition examples photosynthesis",
		"definition examples converts",
		"definition examples sunlight",
	}, searcher.queries)

	first := res.Enrichment[0]
	assert.Equal(t, "photosynthesis", first.Concept)
	assert.Equal(t, "Process used by plants. Light becomes sugar. "+strings.Repeat("d", 200), first.Summary)
	assert.Equal(t, []string{}, first.Definitions)
	assert.Equal(t, []string{}, first.Examples)
	assert.Equal(t, []string{}, first.RelatedConcepts)

	assert.Equal(t, "Concept: converts.", res.Enrichment[1].Summary)
}

func TestAnswerService_SubmitSummaryCapped(t *testing.T) {
	long := youcom.SearchResult{Description: strings.Repeat("a", 300), Snippets: []string{strings.Repeat("b", 300)}}
	searcher := &stubSearcher{results: map[string][]youcom.SearchResult{
		"definition examples enzymes": {long, long, long},
	}}
	_, a := newServices(stubLLM{}, nil, &memStore{}, searcher)

	res := a.Submit(context.Background(), model.SubmitAnswerRequest{Answer: "enzymes", Difficulty: "hard"})
	require.Len(t, res.Enrichment, 1)
	assert.Len(t, res.Enrichment[0].Summary, 500)
	assert.Contains(t, res.Evaluation, "'hard'")
}

func TestAnswerService_SubmitEmpty(t *testing.T) {
	_, a := newServices(stubLLM{}, nil, &memStore{}, nil)
	res := a.Submit(context.Background(), model.SubmitAnswerRequest{})
	assert.Equal(t, []string{"learning", "concept"}, res.Concepts)
	require.Len(t, res.Enrichment, 2)
	assert.Equal(t, "Concept: learning.", res.Enrichment[0].Summary)
}

func TestAnswerService_SaveMissingUser(t *testing.T) {
	store := &memStore{}
	_, a := newServices(stubLLM{}, nil, store, nil)
	_, err := a.Save(context.Background(), model.SaveAnswerRequest{PageNumber: 5, SelectedText: "Plants use sunlight"})
	assert.ErrorIs(t, err, ErrMissingUserID)
	assert.Empty(t, store.records)
}

func TestAnswerService_ScenarioC(t *testing.T) {
	store := &memStore{}
	_, a := newServices(stubLLM{}, nil, store, nil)
	ctx := context.Background()

	id1, err := a.Save(ctx, model.SaveAnswerRequest{UserID: "u1", DocumentID: "d1", PageNumber: 3, Answer: "first"})
	require.NoError(t, err)
	id2, err := a.Save(ctx, model.SaveAnswerRequest{UserID: "u1", DocumentID: "d1", PageNumber: 3, Answer: "second"})
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	require.Len(t, store.records, 1)
	rec := store.records[id1]
	assert.Equal(t, "second", rec.UserResponse)
	assert.Equal(t, 3, rec.ConfidenceScore)
	assert.Equal(t, "Page 3", rec.Title)
}

func TestAnswerService_SaveStoreError(t *testing.T) {
	boom := errors.New("remote 500")
	_, a := newServices(stubLLM{}, nil, &memStore{err: boom}, nil)
	_, err := a.Save(context.Background(), model.SaveAnswerRequest{UserID: "u1", DocumentID: "d1"})
	assert.ErrorIs(t, err, boom)
}

type stubProducer struct {
	task tasks.IngestTask
	err  error
}

func (s *stubProducer) ProduceIngestTask(_ context.Context, task tasks.IngestTask) error {
	s.task = task
	return s.err
}

func TestIngestService(t *testing.T) {
	_, err := NewIngestService(nil).Enqueue(context.Background(), model.IngestRequest{})
	assert.ErrorIs(t, err, ErrIngestDisabled)

	p := &stubProducer{}
	id, err := NewIngestService(p).Enqueue(context.Background(), model.IngestRequest{TextbookID: "tb1", ObjectName: "bio.pdf"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, p.task.TaskID)
	assert.Equal(t, "tb1", p.task.TextbookID)

	_, err = NewIngestService(&stubProducer{err: errors.New("broker down")}).Enqueue(context.Background(), model.IngestRequest{TextbookID: "tb1", ObjectName: "x"})
	assert.Error(t, err)
}
