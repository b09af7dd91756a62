package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"primeflip/internal/domain"
)

// currentKey holds the serialized latest opportunity set.
const currentKey = "primeflip:opportunities:current"

// currentTTL bounds staleness: if the scheduler stops writing, the cached
// set expires rather than serving hours-old prices forever.
const currentTTL = 10 * time.Minute

// OpportunityCache implements domain.OpportunityCache on Redis, letting
// server-only replicas answer queries from the last cycle the poller
// wrote.
type OpportunityCache struct {
	rdb *redis.Client
}

// NewOpportunityCache creates an OpportunityCache backed by the given
// Client.
func NewOpportunityCache(c *Client) *OpportunityCache {
	return &OpportunityCache{rdb: c.Underlying()}
}

// SetCurrent replaces the cached opportunity set.
func (oc *OpportunityCache) SetCurrent(ctx context.Context, set *domain.OpportunitySet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("redis: marshal opportunity set: %w", err)
	}
	if err := oc.rdb.Set(ctx, currentKey, data, currentTTL).Err(); err != nil {
		return fmt.Errorf("redis: set current opportunities: %w", err)
	}
	return nil
}

// GetCurrent returns the cached opportunity set, or domain.ErrNotFound
// when no cycle has been written or the entry has expired.
func (oc *OpportunityCache) GetCurrent(ctx context.Context) (*domain.OpportunitySet, error) {
	data, err := oc.rdb.Get(ctx, currentKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get current opportunities: %w", err)
	}

	var set domain.OpportunitySet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("redis: unmarshal opportunity set: %w", err)
	}
	return &set, nil
}

// Compile-time interface check.
var _ domain.OpportunityCache = (*OpportunityCache)(nil)
