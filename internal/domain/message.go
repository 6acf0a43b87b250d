package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// MessageKind is the closed set of message shapes. It determines the
// required content and attachment cardinality of a message.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindAudio MessageKind = "audio"
	KindVideo MessageKind = "video"
	KindImage MessageKind = "image"
	KindFile  MessageKind = "file"
	KindEmoji MessageKind = "emoji"
)

// ParseMessageKind validates a wire-level kind string
func ParseMessageKind(s string) (MessageKind, error) {
	switch MessageKind(s) {
	case KindText, KindAudio, KindVideo, KindImage, KindFile, KindEmoji:
		return MessageKind(s), nil
	}
	return "", fmt.Errorf("unknown message kind %q", s)
}

// AttachmentBounds returns the allowed attachment count range for the kind
func (k MessageKind) AttachmentBounds() (min, max int) {
	switch k {
	case KindText, KindEmoji:
		return 0, 0
	case KindAudio, KindVideo, KindImage:
		return 1, 1
	case KindFile:
		return 1, -1 // unbounded above; capped separately
	}
	return 0, 0
}

// Placeholder renders the conversation-list preview for non-text kinds
func (k MessageKind) Placeholder() string {
	return "[" + strings.ToUpper(string(k)) + "]"
}

// Message represents a single message in a conversation.
// Ordering is by CreatedAt with MessageID as tiebreak; both are
// server-assigned and never client-supplied.
type Message struct {
	MessageID      uuid.UUID      `json:"message_id" db:"message_id"`
	ConversationID uuid.UUID      `json:"conversation_id" db:"conversation_id"`
	SenderID       uuid.UUID      `json:"sender_id" db:"sender_id"`
	Kind           MessageKind    `json:"kind" db:"kind"`
	Content        *string        `json:"content,omitempty" db:"content"`
	Status         DeliveryStatus `json:"status" db:"status"`
	Attachments    []*Attachment  `json:"attachments,omitempty"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// Preview returns the conversation-list preview text for the message
func (m *Message) Preview() string {
	if m.Kind == KindText && m.Content != nil {
		return *m.Content
	}
	if m.Kind == KindEmoji && m.Content != nil {
		return *m.Content
	}
	return m.Kind.Placeholder()
}

// IsSingleEmoji reports whether s is exactly one emoji glyph. A glyph may be
// a multi-rune sequence (base emoji plus skin-tone modifiers, variation
// selectors, ZWJ-joined parts, or a regional-indicator pair).
func IsSingleEmoji(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 || len(runes) > 10 {
		return false
	}

	sawBase := false
	expectJoined := false
	for i, r := range runes {
		switch {
		case isEmojiBase(r):
			if sawBase && !expectJoined && !isRegionalIndicator(r) {
				return false
			}
			sawBase = true
			expectJoined = false
		case r == 0x200D: // zero-width joiner
			if !sawBase {
				return false
			}
			expectJoined = true
		case r == 0xFE0F || r == 0xFE0E: // variation selectors
			if i == 0 {
				return false
			}
		case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
			if !sawBase {
				return false
			}
		default:
			return false
		}
	}

	return sawBase && !expectJoined
}

func isEmojiBase(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, emoticons, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols and dingbats
		return true
	case isRegionalIndicator(r):
		return true
	case r == 0x2764 || r == 0x2B50 || r == 0x203C || r == 0x2049:
		return true
	case unicode.Is(unicode.So, r):
		return true
	}
	return false
}

func isRegionalIndicator(r rune) bool {
	return r >= 0x1F1E6 && r <= 0x1F1FF
}
