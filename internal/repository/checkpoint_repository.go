package repository

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// CheckpointStore 记录每个阶段最后一个已提交的文档 ID，用于断点续跑。
type CheckpointStore interface {
	Get(ctx context.Context, stage string) (string, error)
	Set(ctx context.Context, stage, lastID string) error
	Reset(ctx context.Context, stage string) error
}

type redisCheckpointStore struct {
	redisClient *redis.Client
	prefix      string
}

// NewCheckpointStore 创建基于 Redis 的 CheckpointStore。
func NewCheckpointStore(redisClient *redis.Client, prefix string) CheckpointStore {
	return &redisCheckpointStore{redisClient: redisClient, prefix: prefix}
}

func (r *redisCheckpointStore) key(stage string) string {
	return fmt.Sprintf("%s:checkpoint:%s", r.prefix, stage)
}

// Get 返回阶段的断点，不存在时返回空串。
func (r *redisCheckpointStore) Get(ctx context.Context, stage string) (string, error) {
	val, err := r.redisClient.Get(ctx, r.key(stage)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return val, nil
}

func (r *redisCheckpointStore) Set(ctx context.Context, stage, lastID string) error {
	if err := r.redisClient.Set(ctx, r.key(stage), lastID, 0).Err(); err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}
	return nil
}

func (r *redisCheckpointStore) Reset(ctx context.Context, stage string) error {
	return r.redisClient.Del(ctx, r.key(stage)).Err()
}

// NoopCheckpointStore 在未配置 Redis 时使用，始终从头开始。
type NoopCheckpointStore struct{}

func (NoopCheckpointStore) Get(context.Context, string) (string, error) { return "", nil }
func (NoopCheckpointStore) Set(context.Context, string, string) error   { return nil }
func (NoopCheckpointStore) Reset(context.Context, string) error         { return nil }
