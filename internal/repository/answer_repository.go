// Package repository 提供了作答记录的数据访问层实现。
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"neural-trace-go/internal/model"
	"neural-trace-go/pkg/sanity"
)

const (
	DriverSanity = "sanity"
	DriverMySQL  = "mysql"
	DriverRedis  = "redis"
)

// AnswerRepository 以确定性 id 保存作答记录：同一 id 的重复写入覆盖旧值，不会产生重复记录。
type AnswerRepository interface {
	Upsert(ctx context.Context, rec *model.AnswerRecord) (string, error)
}

// Backends 持有各存储驱动可能用到的客户端，未使用的可以为 nil。
type Backends struct {
	Sanity sanity.Client
	DB     *gorm.DB
	Redis  *redis.Client
}

// NewAnswerRepository 按驱动名创建对应的实现。
func NewAnswerRepository(driver string, b Backends) (AnswerRepository, error) {
	switch strings.ToLower(driver) {
	case "", DriverSanity:
		if b.Sanity == nil {
			return nil, errors.New("sanity driver requires a sanity client")
		}
		return NewSanityAnswerRepository(b.Sanity), nil
	case DriverMySQL:
		if b.DB == nil {
			return nil, errors.New("mysql driver requires a database connection")
		}
		return NewGormAnswerRepository(b.DB), nil
	case DriverRedis:
		if b.Redis == nil {
			return nil, errors.New("redis driver requires a redis client")
		}
		return NewRedisAnswerRepository(b.Redis), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
