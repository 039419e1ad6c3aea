package similarity

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Store persists pair scores across runs, keyed by pair checksum and
// scoring model.
type Store interface {
	// GetScore returns a stored score and whether it was present.
	GetScore(key, model string) (float64, bool)

	// PutScore stores a score for later runs.
	PutScore(key, model string, score float64) error
}

// ScoreCache layers an in-memory map over an optional persistent Store and
// collapses concurrent lookups of the same pair into one computation.
type ScoreCache struct {
	mu     sync.RWMutex
	scores map[string]float64
	store  Store
	group  singleflight.Group
}

// NewScoreCache creates a cache; store may be nil for memory-only runs.
func NewScoreCache(store Store) *ScoreCache {
	return &ScoreCache{
		scores: make(map[string]float64),
		store:  store,
	}
}

// GetOrCompute returns the score for key, computing it at most once even
// under concurrent callers. Compute errors are not cached, so a later call
// retries.
func (c *ScoreCache) GetOrCompute(key, model string, compute func() (float64, error)) (float64, error) {
	c.mu.RLock()
	score, ok := c.scores[key]
	c.mu.RUnlock()
	if ok {
		return score, nil
	}

	val, err, _ := c.group.Do(key, func() (any, error) {
		// A queued caller may find the value resolved by the time it runs.
		c.mu.RLock()
		score, ok := c.scores[key]
		c.mu.RUnlock()
		if ok {
			return score, nil
		}

		if c.store != nil {
			if score, ok := c.store.GetScore(key, model); ok {
				c.remember(key, score)
				return score, nil
			}
		}

		score, err := compute()
		if err != nil {
			return 0.0, err
		}

		c.remember(key, score)
		if c.store != nil {
			// Store writes are best effort.
			_ = c.store.PutScore(key, model, score)
		}
		return score, nil
	})
	if err != nil {
		return 0, err
	}

	return val.(float64), nil
}

// Len reports how many scores the in-memory layer holds.
func (c *ScoreCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scores)
}

func (c *ScoreCache) remember(key string, score float64) {
	c.mu.Lock()
	c.scores[key] = score
	c.mu.Unlock()
}
