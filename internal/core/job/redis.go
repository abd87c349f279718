package job

import (
	"context"
	"fmt"
	"time"

	"recipe-extractor/internal/infrastructure/config"
	"recipe-extractor/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

const (
	// docKeyPrefix 任務文件的鍵前綴
	docKeyPrefix = "job:"
	// casRetries 樂觀鎖寫入的重試上限
	casRetries = 5
)

// RedisStore Redis 任務儲存
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 建立 Redis 任務儲存
func NewRedisStore(cfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    cfg.TTL,
	}, nil
}

func docKey(key string) string {
	return docKeyPrefix + key
}

// Get 讀取任務
func (s *RedisStore) Get(ctx context.Context, key string) (*Job, error) {
	data, err := s.client.Get(ctx, docKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var j Job
	if err := common.ParseJSONBytes(data, &j); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &j, nil
}

// Upsert 以樂觀鎖套用部分更新，鍵被併發改寫時整筆重試
func (s *RedisStore) Upsert(ctx context.Context, key string, p Patch) (*Job, error) {
	dk := docKey(key)
	var out *Job

	txn := func(tx *redis.Tx) error {
		var current *Job
		data, err := tx.Get(ctx, dk).Bytes()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("failed to get job: %w", err)
		}
		if err == nil {
			var j Job
			if err := common.ParseJSONBytes(data, &j); err != nil {
				return fmt.Errorf("failed to unmarshal job: %w", err)
			}
			current = &j
		}

		next := Apply(current, key, p, time.Now().UTC())
		payload, err := common.ToJSON(next)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, dk, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = next
		return nil
	}

	for i := 0; i < casRetries; i++ {
		err := s.client.Watch(ctx, txn, dk)
		if err == nil {
			return out, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("failed to update job after %d attempts: %w", casRetries, redis.TxFailedErr)
}

// Delete 移除任務
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, docKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// Ping 檢查 Redis 連線
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 關閉 Redis 連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}
