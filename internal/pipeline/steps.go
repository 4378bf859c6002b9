package pipeline

import (
	"context"
	"strings"

	"neural-trace-go/internal/concepts"
	"neural-trace-go/internal/prompt"
	"neural-trace-go/internal/retrieval"
	"neural-trace-go/pkg/llm"
	"neural-trace-go/pkg/log"
)

// minUsableAnswer 是模型答案被采用所需的最少字符数（不含）。
const minUsableAnswer = 10

// ContextRetriever 渲染与查询相关的上下文摘要。
type ContextRetriever interface {
	Context(ctx context.Context, query string, topK int) string
}

// Steps 实现问题生成的各个阶段。声明式图与内联调用共用这些函数。
type Steps struct {
	retriever    ContextRetriever
	llm          llm.Client
	topK         int
	conceptLimit int
}

// NewSteps 创建阶段集合。retriever 可以为 nil，此时从不检索上下文。
func NewSteps(retriever ContextRetriever, client llm.Client, topK, conceptLimit int) *Steps {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	if conceptLimit <= 0 {
		conceptLimit = concepts.DefaultLimit
	}
	return &Steps{retriever: retriever, llm: client, topK: topK, conceptLimit: conceptLimit}
}

// FetchContext 在值得检索时查询上下文。返回的 used 仅在得到真实页面内容时为 true。
func (s *Steps) FetchContext(ctx context.Context, documentID string, pageNumber int, selectedText string) (digest string, used bool) {
	if s.retriever == nil || !retrieval.ShouldRetrieve(documentID, selectedText) {
		return "", false
	}
	digest = s.retriever.Context(ctx, retrieval.Query(pageNumber, selectedText), s.topK)
	return digest, digest != "" && !retrieval.IsSentinel(digest)
}

// BuildPrompt 构建模型指令。占位摘要不会写入指令。
func (s *Steps) BuildPrompt(pageNumber int, selectedText, digest string) string {
	if retrieval.IsSentinel(digest) {
		digest = ""
	}
	return prompt.Build(pageNumber, strings.TrimSpace(selectedText), digest, prompt.IsGeneric(selectedText))
}

// Generate 调用模型；答案不可用（错误、panic、过短）时回退到模板问题。
// 第二个返回值表示是否采用了模型答案。
func (s *Steps) Generate(ctx context.Context, instruction, selectedText string) (string, bool) {
	answer := s.ask(ctx, instruction)
	if Usable(answer) {
		return strings.TrimSpace(answer), true
	}
	return prompt.Fallback(strings.TrimSpace(selectedText)), false
}

func (s *Steps) ask(ctx context.Context, instruction string) (answer string) {
	if s.llm == nil {
		return ""
	}
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[Pipeline] 调用模型时发生 panic: %v", r)
			answer = ""
		}
	}()
	answer, err := s.llm.Ask(ctx, instruction)
	if err != nil {
		log.Warnf("[Pipeline] 模型未返回答案, 使用模板问题: %v", err)
		return ""
	}
	return answer
}

// Concepts 从选区中提取概念；选区为空时使用占位文本。
func (s *Steps) Concepts(selectedText string) []string {
	text := strings.TrimSpace(selectedText)
	if text == "" {
		text = prompt.PlaceholderCurrentContent
	}
	return concepts.Extract(text, s.conceptLimit)
}

// Usable 判断模型答案去除首尾空白后是否长于 10 个字符。
func Usable(answer string) bool {
	return len([]rune(strings.TrimSpace(answer))) > minUsableAnswer
}
