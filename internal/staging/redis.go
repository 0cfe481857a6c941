// Package staging persists unioned batches under opaque tokens between the
// upload and commit steps of the dedupe pipeline.
package staging

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Techmee-Digital/arkane/internal/dedupe"
)

const keyPrefix = "staging:"

// RedisCache implements dedupe.Cache on a Redis keyed blob slot. Batches are
// stored as JSON with a TTL; after expiry Get reports the batch as missing
// and the caller re-runs the check.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache with the given slot TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Put serializes the batch under a fresh random token. Tokens are 128-bit
// UUIDs rendered as hex, so concurrent uploads never collide.
func (c *RedisCache) Put(ctx context.Context, batch *dedupe.Batch) (string, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return "", fmt.Errorf("serializing batch: %w", err)
	}

	u := uuid.New()
	token := hex.EncodeToString(u[:])

	if err := c.client.Set(ctx, keyPrefix+token, payload, c.ttl).Err(); err != nil {
		return "", fmt.Errorf("writing staged batch: %w", err)
	}

	return token, nil
}

// Get deserializes the staged batch verbatim: same columns, same row order.
func (c *RedisCache) Get(ctx context.Context, token string) (*dedupe.Batch, error) {
	payload, err := c.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, dedupe.ErrBatchNotFound
		}
		return nil, fmt.Errorf("reading staged batch: %w", err)
	}

	var batch dedupe.Batch
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("deserializing batch: %w", err)
	}

	return &batch, nil
}
