package cache

import "time"

// SecondTier is either a Disk or a RedisTier: a best-effort backing
// store behind the in-memory LRU.
type SecondTier interface {
	Get(key string) (string, bool)
	Set(key, response string) error
}

// Cache is the contract provider.Mediator depends on.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, response string)
}

// TwoTier layers an in-memory LRU in front of a SecondTier. Get/Set are
// not transactional across tiers (spec.md §4.4): a stale-but-unexpired
// read from the second tier is promoted into the LRU on hit.
type TwoTier struct {
	memory *LRU
	second SecondTier
}

// NewTwoTier builds a cache with an in-memory LRU of the given capacity
// and TTL, backed by second (pass nil to disable the second tier).
func NewTwoTier(capacity int, ttl time.Duration, second SecondTier) *TwoTier {
	return &TwoTier{memory: NewLRU(capacity, ttl), second: second}
}

func (t *TwoTier) Get(key string) (string, bool) {
	if v, ok := t.memory.Get(key); ok {
		return v, true
	}
	if t.second == nil {
		return "", false
	}
	if v, ok := t.second.Get(key); ok {
		t.memory.Set(key, v)
		return v, true
	}
	return "", false
}

func (t *TwoTier) Set(key, response string) {
	t.memory.Set(key, response)
	if t.second != nil {
		_ = t.second.Set(key, response) // best-effort; the error is dropped and not logged
	}
}

// Stats exposes the in-memory tier's hit/miss counters.
func (t *TwoTier) Stats() Stats { return t.memory.Stats() }
