package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation represents the single direct-message channel between two users.
// Maps to the conversations table; the canonicalized participant pair carries
// a unique constraint so a pair of users can never own two rows.
type Conversation struct {
	ConversationID uuid.UUID `json:"conversation_id" db:"conversation_id"`
	ParticipantA   uuid.UUID `json:"participant_a" db:"participant_a"`
	ParticipantB   uuid.UUID `json:"participant_b" db:"participant_b"`
	LastMessageAt  time.Time `json:"last_message_at" db:"last_message_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// OtherParticipant returns the participant that is not the given viewer
func (c *Conversation) OtherParticipant(viewer uuid.UUID) uuid.UUID {
	if c.ParticipantA == viewer {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// HasParticipant reports whether the user occupies either participant slot
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// CanonicalPair orders two user ids lexicographically so the unordered pair
// (u, v) always maps to the same (lo, hi) key regardless of slot order
func CanonicalPair(u, v uuid.UUID) (lo, hi uuid.UUID) {
	if u.String() < v.String() {
		return u, v
	}
	return v, u
}

// LastMessagePreview is the most recent message summary shown in the
// conversation list. Non-text kinds render as a [KIND] placeholder.
type LastMessagePreview struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	SenderID  uuid.UUID `json:"sender_id"`
	IsRead    bool      `json:"is_read"`
}

// ConversationSummary is a conversation enriched for a specific viewer:
// the other participant, the latest message preview, and the unread count.
type ConversationSummary struct {
	ConversationID uuid.UUID           `json:"conversation_id"`
	OtherUserID    uuid.UUID           `json:"other_user_id"`
	LastMessage    *LastMessagePreview `json:"last_message,omitempty"`
	UnreadCount    int64               `json:"unread_count"`
	LastMessageAt  time.Time           `json:"last_message_at"`
}
