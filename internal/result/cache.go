package result

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openlms/assessment/internal/domain"
)

const defaultTTL = time.Hour

type CacheConfig struct {
	Redis  redis.UniversalClient
	Prefix string
	TTL    time.Duration
}

// Cache keeps assembled results in redis keyed by attempt ID. Attempts are
// immutable once graded, so a cached entry can never go stale; the TTL just
// bounds memory.
type Cache struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewCache(c CacheConfig) *Cache {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    ttl,
	}
}

// Get returns the cached result, or nil on a miss.
func (c *Cache) Get(ctx context.Context, attemptID string) (*domain.ExamResult, error) {
	b, err := c.redis.Get(ctx, c.key(attemptID)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var res domain.ExamResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &res, nil
}

func (c *Cache) Put(ctx context.Context, res domain.ExamResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	if err := c.redis.Set(ctx, c.key(res.Attempt.ID), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *Cache) key(attemptID string) string {
	return fmt.Sprintf("%s:result:%s", c.prefix, attemptID)
}
