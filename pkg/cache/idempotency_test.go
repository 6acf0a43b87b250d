package cache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_RememberAndLookup(t *testing.T) {
	c := NewIdempotencyCache(time.Minute, 16)
	messageID := uuid.New()

	c.Remember("token-1", messageID)

	got, ok := c.Lookup("token-1")
	require.True(t, ok)
	assert.Equal(t, messageID, got)

	_, ok = c.Lookup("token-2")
	assert.False(t, ok)
}

func TestIdempotencyCache_EmptyTokenIgnored(t *testing.T) {
	c := NewIdempotencyCache(time.Minute, 16)

	c.Remember("", uuid.New())

	_, ok := c.Lookup("")
	assert.False(t, ok)
}

func TestIdempotencyCache_Expiry(t *testing.T) {
	c := NewIdempotencyCache(10*time.Millisecond, 16)
	c.Remember("short-lived", uuid.New())

	assert.Eventually(t, func() bool {
		_, ok := c.Lookup("short-lived")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryCache_EvictsOldestAtCapacity(t *testing.T) {
	c := NewMemoryCache(time.Minute, 2)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Set("c", 3, time.Minute)

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("c")
	assert.True(t, ok)
}
