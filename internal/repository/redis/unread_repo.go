package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"marketchat-backend/pkg/constants"
)

// UnreadRepository caches per-viewer unread counts in Redis. The cache is
// best-effort: entries carry a short TTL and are invalidated on append and
// mark-read, and every miss or Redis failure falls back to the SQL count.
type UnreadRepository struct {
	client *redis.Client
}

// NewUnreadRepository creates a new UnreadRepository
func NewUnreadRepository(client *redis.Client) *UnreadRepository {
	return &UnreadRepository{client: client}
}

func unreadKey(conversationID, viewerID uuid.UUID) string {
	return fmt.Sprintf("unread:%s:%s", conversationID, viewerID)
}

// Get returns the cached unread count for a viewer, if present
func (r *UnreadRepository) Get(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, bool, error) {
	value, err := r.client.Get(ctx, unreadKey(conversationID, viewerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get unread count: %w", err)
	}

	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// Corrupt entry; treat as a miss.
		return 0, false, nil
	}

	return count, true, nil
}

// Set caches the unread count for a viewer with a bounded TTL
func (r *UnreadRepository) Set(ctx context.Context, conversationID, viewerID uuid.UUID, count int64) error {
	err := r.client.Set(ctx, unreadKey(conversationID, viewerID), count, constants.UnreadCacheTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache unread count: %w", err)
	}
	return nil
}

// Invalidate drops the cached counts for both participants of a conversation.
// Called after an append or a mark-read so the next list poll recomputes.
func (r *UnreadRepository) Invalidate(ctx context.Context, conversationID uuid.UUID, participants ...uuid.UUID) error {
	keys := make([]string, 0, len(participants))
	for _, participant := range participants {
		keys = append(keys, unreadKey(conversationID, participant))
	}
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate unread counts: %w", err)
	}
	return nil
}
