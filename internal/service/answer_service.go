package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"neural-trace-go/internal/concepts"
	"neural-trace-go/internal/model"
	"neural-trace-go/internal/pipeline"
	"neural-trace-go/internal/prompt"
	"neural-trace-go/pkg/log"
	"neural-trace-go/pkg/youcom"
)

const (
	enrichmentResults = 3
	summaryPartChars  = 200
	summaryChars      = 500
)

// ErrMissingUserID 表示保存作答时没有提供用户 id。
var ErrMissingUserID = errors.New("userId is required")

// Searcher 是关键词搜索能力，失败时返回空结果。
type Searcher interface {
	Search(ctx context.Context, query string, count int) []youcom.SearchResult
}

// AnswerService 处理作答的评价、概念补充与保存。
type AnswerService interface {
	Submit(ctx context.Context, req model.SubmitAnswerRequest) *model.SubmitAnswerResponse
	Save(ctx context.Context, req model.SaveAnswerRequest) (string, error)
}

type answerService struct {
	graph        *pipeline.Graph
	searcher     Searcher
	maxConcepts  int
	conceptLimit int
}

// NewAnswerService 创建一个新的 AnswerService 实例。
func NewAnswerService(graph *pipeline.Graph, searcher Searcher, maxConcepts, conceptLimit int) AnswerService {
	if maxConcepts <= 0 {
		maxConcepts = 3
	}
	if conceptLimit <= 0 {
		conceptLimit = concepts.DefaultLimit
	}
	return &answerService{graph: graph, searcher: searcher, maxConcepts: maxConcepts, conceptLimit: conceptLimit}
}

func (s *answerService) Submit(ctx context.Context, req model.SubmitAnswerRequest) *model.SubmitAnswerResponse {
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = model.DefaultDifficulty
	}
	text := strings.TrimSpace(req.SelectedText) + " " + strings.TrimSpace(req.Answer)
	found := concepts.Extract(text, s.conceptLimit)

	n := s.maxConcepts
	if n > len(found) {
		n = len(found)
	}
	enrichment := make([]model.EnrichmentEntry, 0, n)
	for _, c := range found[:n] {
		enrichment = append(enrichment, s.enrich(ctx, c))
	}

	return &model.SubmitAnswerResponse{
		Evaluation: fmt.Sprintf("Your response was marked as '%s'. Keep reflecting on the concepts to strengthen your Neural Trace.", difficulty),
		Concepts:   found,
		Enrichment: enrichment,
	}
}

// enrich 用搜索结果的描述与首条摘录拼出概念摘要，搜索无结果时使用通用句子。
func (s *answerService) enrich(ctx context.Context, concept string) model.EnrichmentEntry {
	var parts []string
	if s.searcher != nil {
		for _, r := range s.searcher.Search(ctx, "definition examples "+concept, enrichmentResults) {
			if r.Description != "" {
				parts = append(parts, prompt.Truncate(r.Description, summaryPartChars, ""))
			}
			if len(r.Snippets) > 0 && r.Snippets[0] != "" {
				parts = append(parts, prompt.Truncate(r.Snippets[0], summaryPartChars, ""))
			}
		}
	}

	summary := fmt.Sprintf("Concept: %s.", concept)
	if len(parts) > 0 {
		summary = prompt.Truncate(strings.Join(parts, " "), summaryChars, "")
	}
	return model.EnrichmentEntry{
		Concept:         concept,
		Summary:         summary,
		Definitions:     []string{},
		Examples:        []string{},
		RelatedConcepts: []string{},
	}
}

func (s *answerService) Save(ctx context.Context, req model.SaveAnswerRequest) (string, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return "", ErrMissingUserID
	}

	st := &pipeline.State{
		DocumentID:   req.Document(),
		PageNumber:   req.PageNumber.Int(),
		SelectedText: req.SelectedText,
		Submission: &pipeline.Submission{
			UserID:     userID,
			Question:   req.Question,
			Answer:     req.Answer,
			Confidence: req.Confidence(),
		},
	}
	if err := s.graph.Resume(ctx, st); err != nil {
		log.Errorf("[AnswerService] 保存作答失败, user: %s, document: %s, page: %d, error: %v",
			userID, st.DocumentID, st.PageNumber, err)
		return "", err
	}
	return st.SavedID, nil
}
