package repository

import (
	"context"
	"fmt"

	"neural-trace-go/internal/model"
	"neural-trace-go/pkg/sanity"
)

// socraticType 是 Sanity 中作答文档的类型名。
const socraticType = "Socratic"

type sanityAnswerRepository struct {
	client sanity.Client
}

// NewSanityAnswerRepository 创建基于 Sanity 的实现。
// 同一次 mutate 请求里先 createIfNotExists 再 patch.set，重复提交不会因 id 冲突失败。
func NewSanityAnswerRepository(client sanity.Client) AnswerRepository {
	return &sanityAnswerRepository{client: client}
}

func (r *sanityAnswerRepository) Upsert(ctx context.Context, rec *model.AnswerRecord) (string, error) {
	fields := map[string]any{
		"user": map[string]any{
			"_type": "reference",
			"_ref":  rec.UserID,
			"_weak": true,
		},
		"title":           rec.Title,
		"question":        rec.Question,
		"userResponse":    rec.UserResponse,
		"confidenceScore": rec.ConfidenceScore,
		"feedback":        rec.Feedback,
		"documentId":      rec.DocumentID,
		"pageNumber":      rec.PageNumber,
		"selectedText":    rec.SelectedText,
	}
	doc := map[string]any{"_id": rec.ID, "_type": socraticType}
	for k, v := range fields {
		doc[k] = v
	}

	res, err := r.client.Mutate(ctx,
		sanity.CreateIfNotExists(doc),
		sanity.PatchSet(rec.ID, fields),
	)
	if err != nil {
		return "", fmt.Errorf("failed to upsert answer %s: %w", rec.ID, err)
	}
	if len(res.Results) > 0 && res.Results[0].ID != "" {
		return res.Results[0].ID, nil
	}
	return rec.ID, nil
}
