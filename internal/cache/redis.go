package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"TraffixSync/internal/interfaces"
)

// RedisStore Redis 缓存后端（线上默认）
type RedisStore struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisStore 按 redis:// 连接串创建后端，连接是惰性的，首次操作才建立
func NewRedisStore(rawURL string, logger *logrus.Logger) (interfaces.CacheStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("解析 Redis 连接串失败: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts), logger: logger}, nil
}

// Get 读取键值，键不存在返回 (nil, nil)
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取缓存键 %s 失败: %w", key, err)
	}
	return data, nil
}

// Set 写入单个键
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("写入缓存键 %s 失败: %w", key, err)
	}
	return nil
}

// SetAll 用事务管道一次替换一组键
func (s *RedisStore) SetAll(ctx context.Context, entries map[string][]byte) error {
	pipe := s.client.TxPipeline()
	for key, value := range entries {
		pipe.Set(ctx, key, value, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("批量写入缓存失败: %w", err)
	}
	return nil
}

// Ping 探活
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
