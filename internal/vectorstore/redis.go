package vectorstore

import (
	"context"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
)

const redisKeyPrefix = "cricket:doc:"

// RedisBackend keeps each document as one JSON value. Keys carry no TTL;
// the store has no delete path and operators truncate by flushing the
// keyspace.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(addr, password string, db int) *RedisBackend {
	return &RedisBackend{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Save(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}

	pipe := b.client.Pipeline()
	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		raw, err := sonic.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode document %s: %w", doc.ID, err)
		}
		pipe.Set(ctx, redisKeyPrefix+doc.ID, raw, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline exec: %w", err)
	}
	return nil
}

func (b *RedisBackend) Load(ctx context.Context) ([]document.Document, error) {
	var out []document.Document
	iter := b.client.Scan(ctx, 0, redisKeyPrefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		raw, err := b.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("redis get %s: %w", iter.Val(), err)
		}
		var doc document.Document
		if err := sonic.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode document at %s: %w", iter.Val(), err)
		}
		out = append(out, doc)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return out, nil
}

func (b *RedisBackend) Get(ctx context.Context, id string) (document.Document, error) {
	raw, err := b.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return document.Document{}, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("redis get %s: %w", id, err)
	}

	var doc document.Document
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return document.Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return doc, nil
}

func (b *RedisBackend) Count(ctx context.Context) (int, error) {
	count := 0
	iter := b.client.Scan(ctx, 0, redisKeyPrefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return count, nil
}

func (b *RedisBackend) HealthCheck(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
