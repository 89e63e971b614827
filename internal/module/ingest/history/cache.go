package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CandidatePoolCache fronts the (expensive to assemble) CATEGORISED
// candidate pool query with a Redis cache keyed by run id and lookback days, so a
// categorization run doesn't re-scan the Result Store once per batch.
type CandidatePoolCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCandidatePoolCache(client *redis.Client, ttl time.Duration) *CandidatePoolCache {
	return &CandidatePoolCache{client: client, ttl: ttl}
}

func cacheKey(runID string, lookbackDays int) string {
	return fmt.Sprintf("txledger:history:pool:%s:%d", runID, lookbackDays)
}

// Get returns the cached pool for a run, or ok=false on a cache miss.
func (c *CandidatePoolCache) Get(ctx context.Context, runID string, lookbackDays int) ([]Candidate, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(runID, lookbackDays)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var pool []Candidate
	if err := json.Unmarshal(raw, &pool); err != nil {
		return nil, false, err
	}
	return pool, true, nil
}

// Set populates the cache for the remainder of the run.
func (c *CandidatePoolCache) Set(ctx context.Context, runID string, lookbackDays int, pool []Candidate) error {
	raw, err := json.Marshal(pool)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(runID, lookbackDays), raw, c.ttl).Err()
}
