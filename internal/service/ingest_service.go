package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"neural-trace-go/internal/model"
	"neural-trace-go/pkg/log"
	"neural-trace-go/pkg/tasks"
)

// ErrIngestDisabled 表示没有配置任务队列。
var ErrIngestDisabled = errors.New("textbook ingestion is not configured")

// TaskProducer 把导入任务投递到队列。
type TaskProducer interface {
	ProduceIngestTask(ctx context.Context, task tasks.IngestTask) error
}

// IngestService 负责受理教材导入请求。
type IngestService interface {
	Enqueue(ctx context.Context, req model.IngestRequest) (string, error)
}

type ingestService struct {
	producer TaskProducer
}

// NewIngestService 创建一个新的 IngestService 实例。producer 为 nil 时所有请求返回 ErrIngestDisabled。
func NewIngestService(producer TaskProducer) IngestService {
	return &ingestService{producer: producer}
}

func (s *ingestService) Enqueue(ctx context.Context, req model.IngestRequest) (string, error) {
	if s.producer == nil {
		return "", ErrIngestDisabled
	}
	task := tasks.IngestTask{
		TaskID:        uuid.NewString(),
		TextbookID:    req.TextbookID,
		TextbookTitle: req.TextbookTitle,
		ObjectName:    req.ObjectName,
	}
	if err := s.producer.ProduceIngestTask(ctx, task); err != nil {
		return "", fmt.Errorf("failed to enqueue ingest task: %w", err)
	}
	log.Infof("[IngestService] 导入任务已入队, task: %s, textbook: %s, object: %s", task.TaskID, task.TextbookID, task.ObjectName)
	return task.TaskID, nil
}
