package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"neural-trace-go/internal/model"
)

type gormAnswerRepository struct {
	db *gorm.DB
}

// NewGormAnswerRepository 创建基于 MySQL 的实现，写入是一条 INSERT ... ON DUPLICATE KEY UPDATE。
func NewGormAnswerRepository(db *gorm.DB) AnswerRepository {
	return &gormAnswerRepository{db: db}
}

// AutoMigrate 创建或更新作答表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.AnswerRecord{})
}

func (r *gormAnswerRepository) Upsert(ctx context.Context, rec *model.AnswerRecord) (string, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "document_id", "page_number", "title", "question",
			"user_response", "confidence_score", "feedback", "selected_text", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return "", fmt.Errorf("failed to upsert answer %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}
