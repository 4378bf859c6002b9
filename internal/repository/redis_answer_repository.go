package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"neural-trace-go/internal/model"
)

type redisAnswerRepository struct {
	redisClient *redis.Client
}

// NewRedisAnswerRepository 创建基于 Redis 的实现，每条记录是一个 JSON 字符串，写入是单条 SET。
func NewRedisAnswerRepository(redisClient *redis.Client) AnswerRepository {
	return &redisAnswerRepository{redisClient: redisClient}
}

func answerKey(id string) string {
	return fmt.Sprintf("answer:%s", id)
}

func (r *redisAnswerRepository) Upsert(ctx context.Context, rec *model.AnswerRecord) (string, error) {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	jsonData, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal answer: %w", err)
	}
	if err := r.redisClient.Set(ctx, answerKey(rec.ID), jsonData, 0).Err(); err != nil {
		return "", fmt.Errorf("failed to set answer %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}
