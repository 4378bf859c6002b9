// Package prompt 组装发送给语言模型的苏格拉底式提问指令，以及模型不可用时的模板问题。
package prompt

import (
	"fmt"
	"strings"
)

const (
	// PlaceholderActiveLearning 与 PlaceholderCurrentContent 是前端在没有选区时发送的占位文本。
	PlaceholderActiveLearning = "active learning"
	PlaceholderCurrentContent = "the current content"

	// SummarizeQuestion 是没有可用选区时的固定模板问题。
	SummarizeQuestion = "How would you summarize the main point of this section in one or two sentences?"

	maxPassageChars = 2000
	maxQuoteChars   = 80
	replyConstraint = "Reply with only the question, no preamble or quotes."
)

// IsGeneric 判断选区是否缺失或只是占位文本。
func IsGeneric(selectedText string) bool {
	s := strings.TrimSpace(selectedText)
	return s == "" || s == PlaceholderActiveLearning || s == PlaceholderCurrentContent
}

// Build 根据页码、选区与可选的上下文摘要构建指令。
func Build(pageNumber int, selectedText, contextDigest string, isGeneric bool) string {
	var b strings.Builder
	if isGeneric {
		b.WriteString("Generate exactly one short Socratic question for a student reading a textbook. ")
		b.WriteString(fmt.Sprintf("They are on page %d. ", pageNumber))
		if contextDigest != "" {
			b.WriteString("\n\nBROADER CONTEXT (use for background, but focus question on current page):\n")
			b.WriteString(contextDigest)
			b.WriteString("\n\n")
		}
		b.WriteString("Vary the question type: sometimes ask to summarize, ")
		b.WriteString("sometimes to connect to prior knowledge, sometimes to compare or apply, ")
		b.WriteString("sometimes to question assumptions. ")
		b.WriteString(replyConstraint)
		return b.String()
	}

	b.WriteString("Generate exactly one short Socratic question to help a student think deeper ")
	b.WriteString("about this passage. Ask them to explain, compare, or reflect - do not give answers. ")
	if contextDigest != "" {
		b.WriteString("\n\nBROADER PDF CONTEXT (for reference):\n")
		b.WriteString(contextDigest)
		b.WriteString("\n\n")
	}
	b.WriteString("Focus your question on the CURRENT PASSAGE below, but use the broader context ")
	b.WriteString("to make connections if relevant.\n\n")
	b.WriteString(replyConstraint)
	b.WriteString("\n\nCURRENT PASSAGE:\n")
	b.WriteString(Truncate(selectedText, maxPassageChars, ""))
	return b.String()
}

// Fallback 返回模型结果不可用时的确定性模板问题。
func Fallback(selectedText string) string {
	s := strings.TrimSpace(selectedText)
	if s == "" || s == PlaceholderActiveLearning {
		return SummarizeQuestion
	}
	snippet := Truncate(s, maxQuoteChars, "...")
	return fmt.Sprintf(`What do you think the main idea of "%s" is, and how would you explain it in your own words?`, snippet)
}

// Truncate 按字符（rune）截断文本，被截断时追加 suffix。
func Truncate(s string, max int, suffix string) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + suffix
}
