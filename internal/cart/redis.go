package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps carts in Redis as JSON values with a sliding TTL, so an
// abandoned cart expires on its own. The TTL gets a small random jitter to
// avoid synchronized expiry of carts created in the same burst.
type RedisStore struct {
	client  *redis.Client
	baseTTL time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client:  client,
		baseTTL: 2 * time.Hour,
	}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Cart, error) {
	data, err := s.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: redis get: %w", err)
	}

	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("cart: unmarshal cart: %w", err)
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("cart: marshal cart: %w", err)
	}

	jitter := time.Duration(rand.Intn(10)) * time.Minute
	if err := s.client.Set(ctx, cartKey(sessionID), data, s.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("cart: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("cart: redis del: %w", err)
	}
	return nil
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("storefront:cart:%s", sessionID)
}
