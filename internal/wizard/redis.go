package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPersister stores states as Redis strings that expire after ttl of
// inactivity.
type RedisPersister struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisPersister(client *redis.Client, prefix string, ttl time.Duration) *RedisPersister {
	if prefix == "" {
		prefix = "wizard:"
	}
	return &RedisPersister{client: client, prefix: prefix, ttl: ttl}
}

func (p *RedisPersister) Load(ctx context.Context, key string) ([]byte, error) {
	b, err := p.client.Get(ctx, p.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

// Save writes data and restarts the expiry.
func (p *RedisPersister) Save(ctx context.Context, key string, data []byte) error {
	if err := p.client.Set(ctx, p.prefix+key, data, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (p *RedisPersister) Delete(ctx context.Context, key string) error {
	if err := p.client.Del(ctx, p.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
