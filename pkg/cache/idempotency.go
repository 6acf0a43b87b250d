package cache

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyCache remembers the message produced by a client-supplied append
// token so a transport-level retry returns the original result instead of
// creating a duplicate.
type IdempotencyCache struct {
	cache *MemoryCache
	ttl   time.Duration
}

// NewIdempotencyCache creates a new idempotency cache
func NewIdempotencyCache(ttl time.Duration, maxSize int) *IdempotencyCache {
	return &IdempotencyCache{
		cache: NewMemoryCache(ttl, maxSize),
		ttl:   ttl,
	}
}

// Remember associates a token with the id of the message it produced
func (ic *IdempotencyCache) Remember(token string, messageID uuid.UUID) {
	if token == "" {
		return
	}
	ic.cache.Set("idem:"+token, messageID, ic.ttl)
}

// Lookup returns the message id previously produced for a token, if any
func (ic *IdempotencyCache) Lookup(token string) (uuid.UUID, bool) {
	if token == "" {
		return uuid.Nil, false
	}
	value, ok := ic.cache.Get("idem:" + token)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}

// StartCleanup starts background expiry of stale tokens
func (ic *IdempotencyCache) StartCleanup(interval time.Duration) func() {
	return ic.cache.StartCleanup(interval)
}
