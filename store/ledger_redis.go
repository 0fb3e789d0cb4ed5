package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"ragserver/types"
)

const (
	chatCounterKey = "chat_counter"
	chatHistoryKey = "chat_history"
)

// RedisLedger keeps the conversation in Redis: a counter for id
// assignment, one hash per entry, and a list holding append order.
// INCR makes id assignment atomic across concurrent appenders.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(ctx context.Context, addr, password string, db int) (*RedisLedger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisLedger{client: client}, nil
}

func chatKey(id int64) string {
	return fmt.Sprintf("chat:%d", id)
}

func (l *RedisLedger) Append(ctx context.Context, text, role string) (int64, error) {
	id, err := l.client.Incr(ctx, chatCounterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to assign entry id: %w", err)
	}

	if err := l.client.HSet(ctx, chatKey(id), "role", role, "message", text).Err(); err != nil {
		return 0, fmt.Errorf("failed to save entry %d: %w", id, err)
	}
	if err := l.client.RPush(ctx, chatHistoryKey, id).Err(); err != nil {
		return 0, fmt.Errorf("failed to record entry order %d: %w", id, err)
	}
	return id, nil
}

func (l *RedisLedger) Get(ctx context.Context, id int64) (*types.ChatEntry, error) {
	fields, err := l.client.HGetAll(ctx, chatKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &types.ChatEntry{ID: id, Role: fields["role"], Text: fields["message"]}, nil
}

func (l *RedisLedger) ListAll(ctx context.Context) ([]types.ChatEntry, error) {
	ids, err := l.client.LRange(ctx, chatHistoryKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]types.ChatEntry, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		entry, err := l.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (l *RedisLedger) Reset(ctx context.Context) error {
	return l.client.FlushDB(ctx).Err()
}

// Close closes the underlying client.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
