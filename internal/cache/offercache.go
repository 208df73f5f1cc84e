// Package cache provides a redis read-through cache for resolved offer bundles.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// OfferCache caches token→offer lookups with a short TTL. Offers are
// read-mostly; staleness is bounded by the TTL alone.
type OfferCache struct {
	rdb redisCmd
	ttl time.Duration
}

type redisCmd interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// NewOfferCache constructs an offer cache over any client implementing the
// get/set subset, *redis.Client included.
func NewOfferCache(rdb redisCmd, ttl time.Duration) *OfferCache {
	return &OfferCache{rdb: rdb, ttl: ttl}
}

type cachedOffer struct {
	ID       string      `json:"id"`
	Token    string      `json:"token"`
	Title    string      `json:"title"`
	Company  string      `json:"company"`
	Deadline time.Time   `json:"deadline"`
	Enabled  bool        `json:"enabled"`
	Test     *model.Test `json:"test,omitempty"`
}

func key(token string) string { return "offer:token:" + token }

// Get returns the cached offer for a token, or (nil, nil) on miss.
// Cache errors degrade to a miss; the caller falls through to storage.
func (c *OfferCache) Get(ctx context.Context, token string) (*model.Offer, error) {
	raw, err := c.rdb.Get(ctx, key(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var co cachedOffer
	if err := json.Unmarshal(raw, &co); err != nil {
		return nil, err
	}
	id, err := uuid.FromString(co.ID)
	if err != nil {
		return nil, err
	}
	o := &model.Offer{
		ID:       id,
		Token:    co.Token,
		Title:    co.Title,
		Company:  co.Company,
		Deadline: co.Deadline,
		Enabled:  co.Enabled,
		Test:     co.Test,
	}
	o.Test.Normalize()
	return o, nil
}

// Set stores the offer under its token. Best-effort: errors are returned for
// logging but resolution proceeds without the cache.
func (c *OfferCache) Set(ctx context.Context, o *model.Offer) error {
	raw, err := json.Marshal(cachedOffer{
		ID:       o.ID.String(),
		Token:    o.Token,
		Title:    o.Title,
		Company:  o.Company,
		Deadline: o.Deadline,
		Enabled:  o.Enabled,
		Test:     o.Test,
	})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(o.Token), raw, c.ttl).Err()
}
