// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"neural-trace-go/internal/config"
	"neural-trace-go/pkg/log"
	"neural-trace-go/pkg/tasks"
)

// 同一任务最多处理 maxAttempts 次，之后提交 offset，不再重试。
const maxAttempts = 3

// TaskProcessor 处理一个导入任务，使消费者与具体的导入实现解耦。
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestTask) error
}

func brokers(cfg config.KafkaConfig) []string {
	parts := strings.Split(cfg.Brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Producer 发送导入任务。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

// ProduceIngestTask 发送一个导入任务到 Kafka，以教材 id 作为消息 key。
func (p *Producer) ProduceIngestTask(ctx context.Context, task tasks.IngestTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.TextbookID),
		Value: taskBytes,
	})
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// attemptCounter 记录任务失败次数；配置了 Redis 时跨进程共享，否则仅在本进程内计数。
type attemptCounter struct {
	rdb   *redis.Client
	mu    sync.Mutex
	local map[string]int64
}

func (a *attemptCounter) incr(ctx context.Context, key string) (int64, error) {
	if a.rdb != nil {
		n, err := a.rdb.Incr(ctx, key).Result()
		if err != nil {
			return 0, err
		}
		_ = a.rdb.Expire(ctx, key, 24*time.Hour).Err()
		return n, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.local[key]++
	return a.local[key], nil
}

func (a *attemptCounter) reset(ctx context.Context, key string) {
	if a.rdb != nil {
		_ = a.rdb.Del(ctx, key).Err()
		return
	}
	a.mu.Lock()
	delete(a.local, key)
	a.mu.Unlock()
}

// messageReader 是 *kafka.Reader 中消费者用到的部分。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// StartConsumer 启动一个 Kafka 消费者来处理导入任务，直到 ctx 被取消。rdb 可以为 nil。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor, rdb *redis.Client) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	consume(ctx, r, processor, &attemptCounter{rdb: rdb, local: make(map[string]int64)})
}

// consume 逐条处理消息。一条消息处理完(成功或重试耗尽)才提交 offset，
// 之后才读取下一条，因此后续消息的提交不会越过失败的任务。
func consume(ctx context.Context, r messageReader, processor TaskProcessor, counter *attemptCounter) {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			log.Error("从 Kafka 读取消息失败", err)
			return
		}

		var task tasks.IngestTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			if err := r.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交错误消息失败: %v", err)
			}
			continue
		}

		log.Infof("开始处理导入任务: task=%s, textbook=%s, object=%s", task.TaskID, task.TextbookID, task.ObjectName)
		err = runTask(ctx, processor, counter, task)
		if ctx.Err() != nil {
			// 停机时不提交，重启后由 Kafka 重新投递
			log.Infof("Kafka 消费者停止，任务未提交: task=%s", task.TaskID)
			return
		}
		if err != nil {
			log.Errorf("导入任务多次失败(>=%d)，提交 offset 终止重试: task=%s, error: %v", maxAttempts, task.TaskID, err)
		} else {
			log.Infof("导入任务处理成功: task=%s", task.TaskID)
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// retryBackoff 是第 n 次失败后等待 n 倍该时长再重试。
var retryBackoff = 2 * time.Second

var errRetriesExhausted = errors.New("ingest task retries exhausted")

// runTask 对同一任务最多执行 maxAttempts 次。计数器配置了 Redis 时，
// 进程重启前已用掉的次数也计算在内。
func runTask(ctx context.Context, processor TaskProcessor, counter *attemptCounter, task tasks.IngestTask) error {
	key := fmt.Sprintf("ingest:attempts:%s", task.TaskID)
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		n, err := counter.incr(ctx, key)
		if err != nil {
			log.Warnf("任务失败计数不可用，按本次循环计数: task=%s, error: %v", task.TaskID, err)
		} else if n > maxAttempts {
			break
		}

		lastErr = processor.Process(ctx, task)
		if lastErr == nil {
			counter.reset(ctx, key)
			return nil
		}
		log.Errorf("处理导入任务失败: task=%s, attempt=%d, error: %v", task.TaskID, attempt, lastErr)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
	counter.reset(ctx, key)
	return errors.Join(errRetriesExhausted, lastErr)
}
