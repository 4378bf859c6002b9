// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"strings"

	"neural-trace-go/internal/model"
	"neural-trace-go/internal/pipeline"
	"neural-trace-go/pkg/log"
)

// QuestionService 生成苏格拉底式问题。两种实现共用同一组阶段函数：
// Generate 走声明式的阶段图，Enhanced 按顺序内联调用各阶段。
type QuestionService interface {
	Generate(ctx context.Context, req model.QuestionRequest) (*model.QuestionResult, error)
	Enhanced(ctx context.Context, req model.QuestionRequest) (*model.QuestionResult, error)
}

type questionService struct {
	graph *pipeline.Graph
	steps *pipeline.Steps
}

// NewQuestionService 创建一个新的 QuestionService 实例。
func NewQuestionService(graph *pipeline.Graph, steps *pipeline.Steps) QuestionService {
	return &questionService{graph: graph, steps: steps}
}

func (s *questionService) Generate(ctx context.Context, req model.QuestionRequest) (*model.QuestionResult, error) {
	st := &pipeline.State{
		DocumentID:   req.Document(),
		PageNumber:   req.PageNumber.Int(),
		SelectedText: strings.TrimSpace(req.SelectedText),
	}
	if err := s.graph.Run(ctx, st); err != nil {
		return nil, fmt.Errorf("question pipeline failed: %w", err)
	}
	if st.Result == nil {
		return nil, fmt.Errorf("question pipeline paused before assembling a result")
	}
	log.Infof("[QuestionService] 问题已生成, document: %s, page: %d, generated: %t, contextUsed: %t",
		st.DocumentID, st.PageNumber, st.Generated, st.ContextUsed)
	return st.Result, nil
}

func (s *questionService) Enhanced(ctx context.Context, req model.QuestionRequest) (*model.QuestionResult, error) {
	documentID := req.Document()
	page := req.PageNumber.Int()
	sel := strings.TrimSpace(req.SelectedText)

	digest, used := s.steps.FetchContext(ctx, documentID, page, sel)
	instruction := s.steps.BuildPrompt(page, sel, digest)
	question, generated := s.steps.Generate(ctx, instruction, sel)
	concepts := s.steps.Concepts(sel)

	log.Infof("[QuestionService] 增强问题已生成, document: %s, page: %d, generated: %t, contextUsed: %t",
		documentID, page, generated, used)
	return &model.QuestionResult{
		Question:      question,
		Concepts:      concepts,
		Anchor:        model.Anchor{PageNumber: page},
		ContextUsed:   used,
		ContextDigest: digest,
	}, nil
}
