package pipeline

import (
	"context"
	"errors"

	"neural-trace-go/internal/model"
	"neural-trace-go/pkg/log"
)

const (
	StageFetchContext  Stage = "fetch_context"
	StageBuildPrompt   Stage = "build_prompt"
	StageGenerate      Stage = "generate"
	StageAssemble      Stage = "assemble"
	StagePersistAnswer Stage = "persist_answer"
)

// ErrNoSubmission 表示恢复执行时状态中缺少作答内容。
var ErrNoSubmission = errors.New("pipeline: no answer submission to persist")

// AnswerStore 持久化作答记录，返回记录 id。
type AnswerStore interface {
	Upsert(ctx context.Context, rec *model.AnswerRecord) (string, error)
}

// Submission 是恢复执行 PERSIST_ANSWER 所需的外部输入。
type Submission struct {
	UserID     string
	Question   string
	Answer     string
	Confidence int
}

// State 在各阶段之间传递。请求之间不保留任何状态，
// 恢复执行时由调用方根据请求重新构造。
type State struct {
	DocumentID   string
	PageNumber   int
	SelectedText string

	ContextDigest string
	ContextUsed   bool
	Prompt        string
	Question      string
	Generated     bool
	Concepts      []string
	Result        *model.QuestionResult

	Submission *Submission
	SavedID    string

	Trace []Stage
}

// NewQuestionGraph 构建 FETCH_CONTEXT → BUILD_PROMPT → GENERATE → ASSEMBLE ‖ PERSIST_ANSWER，
// 在 PERSIST_ANSWER 之前暂停。store 为 nil 时 Resume 返回错误。
func NewQuestionGraph(steps *Steps, store AnswerStore) *Graph {
	g := NewGraph().
		AddNode(StageFetchContext, func(ctx context.Context, st *State) error {
			st.ContextDigest, st.ContextUsed = steps.FetchContext(ctx, st.DocumentID, st.PageNumber, st.SelectedText)
			return nil
		}).
		AddNode(StageBuildPrompt, func(_ context.Context, st *State) error {
			st.Prompt = steps.BuildPrompt(st.PageNumber, st.SelectedText, st.ContextDigest)
			return nil
		}).
		AddNode(StageGenerate, func(ctx context.Context, st *State) error {
			st.Question, st.Generated = steps.Generate(ctx, st.Prompt, st.SelectedText)
			return nil
		}).
		AddNode(StageAssemble, func(_ context.Context, st *State) error {
			st.Concepts = steps.Concepts(st.SelectedText)
			st.Result = &model.QuestionResult{
				Question:      st.Question,
				Concepts:      st.Concepts,
				Anchor:        model.Anchor{PageNumber: st.PageNumber},
				ContextUsed:   st.ContextUsed,
				ContextDigest: st.ContextDigest,
			}
			return nil
		}).
		AddNode(StagePersistAnswer, func(ctx context.Context, st *State) error {
			if st.Submission == nil {
				return ErrNoSubmission
			}
			if store == nil {
				return errors.New("pipeline: no answer store configured")
			}
			sub := st.Submission
			rec := model.NewAnswerRecord(sub.UserID, st.DocumentID, st.PageNumber, sub.Question, sub.Answer, sub.Confidence, st.SelectedText)
			id, err := store.Upsert(ctx, rec)
			if err != nil {
				return err
			}
			st.SavedID = id
			log.Infof("[Pipeline] 作答已保存, id: %s, page: %d", id, st.PageNumber)
			return nil
		})

	g.SetEntry(StageFetchContext).
		AddEdge(StageFetchContext, StageBuildPrompt).
		AddEdge(StageBuildPrompt, StageGenerate).
		AddEdge(StageGenerate, StageAssemble).
		AddEdge(StageAssemble, StagePersistAnswer).
		AddEdge(StagePersistAnswer, End).
		InterruptBefore(StagePersistAnswer)
	return g
}
