package anonymous

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "explainer:chat_history"

// RedisConfig holds connection settings for RedisBlob.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Key under which the whole document is stored (default: "explainer:chat_history").
	Key string
}

// RedisBlob stores the document under a single Redis key, letting several
// processes share the anonymous collection. SET replaces the value atomically.
type RedisBlob struct {
	client *redis.Client
	key    string
}

// NewRedisBlob connects to Redis and verifies the connection.
func NewRedisBlob(cfg RedisConfig) (*RedisBlob, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisBlobFromClient(client, cfg.Key), nil
}

// NewRedisBlobFromClient wraps an existing client.
func NewRedisBlobFromClient(client *redis.Client, key string) *RedisBlob {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisBlob{client: client, key: key}
}

func (b *RedisBlob) Read(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrBlobNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", b.key, err)
	}
	return data, nil
}

func (b *RedisBlob) Write(ctx context.Context, data []byte) error {
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", b.key, err)
	}
	return nil
}

// Close releases the underlying client.
func (b *RedisBlob) Close() error {
	return b.client.Close()
}
