package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketchat-backend/internal/domain"
)

// MessageRepository handles message and attachment persistence
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Append persists a message and its attachments as one atomic unit and bumps
// the parent conversation's last_message_at inside the same transaction.
// On any failure the whole write rolls back; a message is never visible
// without its attachments.
func (r *MessageRepository) Append(ctx context.Context, message *domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertMessage := `
		INSERT INTO messages (message_id, conversation_id, sender_id, kind, content, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.Exec(ctx, insertMessage,
		message.MessageID,
		message.ConversationID,
		message.SenderID,
		message.Kind,
		message.Content,
		message.Status,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	insertAttachment := `
		INSERT INTO attachments (attachment_id, message_id, file_url, file_name, file_type, file_size, thumbnail_url, duration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, attachment := range message.Attachments {
		_, err = tx.Exec(ctx, insertAttachment,
			attachment.AttachmentID,
			attachment.MessageID,
			attachment.FileURL,
			attachment.FileName,
			attachment.FileType,
			attachment.FileSize,
			attachment.ThumbnailURL,
			attachment.Duration,
			attachment.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert attachment: %w", err)
		}
	}

	touch := `UPDATE conversations SET last_message_at = $2 WHERE conversation_id = $1`
	if _, err = tx.Exec(ctx, touch, message.ConversationID, message.CreatedAt); err != nil {
		return fmt.Errorf("failed to update conversation activity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit message append: %w", err)
	}

	return nil
}

// GetByID retrieves a message with its attachments
func (r *MessageRepository) GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT message_id, conversation_id, sender_id, kind, content, status, created_at
		FROM messages
		WHERE message_id = $1
	`

	message := &domain.Message{}
	err := r.pool.QueryRow(ctx, query, messageID).Scan(
		&message.MessageID,
		&message.ConversationID,
		&message.SenderID,
		&message.Kind,
		&message.Content,
		&message.Status,
		&message.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	attachments, err := r.attachmentsFor(ctx, []uuid.UUID{messageID})
	if err != nil {
		return nil, err
	}
	message.Attachments = attachments[messageID]

	return message, nil
}

// ListPage returns one page of messages in forward chronological order.
// Page 1 is the most recent window; increasing pages walk backward in time.
// The second return value reports whether an older page exists.
func (r *MessageRepository) ListPage(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, bool, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM messages WHERE conversation_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, conversationID).Scan(&total); err != nil {
		return nil, false, fmt.Errorf("failed to count messages: %w", err)
	}

	// Fetch the window newest-first, then reverse so callers see forward
	// chronological order within the page.
	query := `
		SELECT message_id, conversation_id, sender_id, kind, content, status, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, message_id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []*domain.Message
	var ids []uuid.UUID
	for rows.Next() {
		message := &domain.Message{}
		err := rows.Scan(
			&message.MessageID,
			&message.ConversationID,
			&message.SenderID,
			&message.Kind,
			&message.Content,
			&message.Status,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, false, fmt.Errorf("failed to scan message: %w", err)
		}
		newestFirst = append(newestFirst, message)
		ids = append(ids, message.MessageID)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read messages: %w", err)
	}

	attachments, err := r.attachmentsFor(ctx, ids)
	if err != nil {
		return nil, false, err
	}

	messages := make([]*domain.Message, len(newestFirst))
	for i, message := range newestFirst {
		message.Attachments = attachments[message.MessageID]
		messages[len(newestFirst)-1-i] = message
	}

	hasMore := int64(offset+len(messages)) < total
	return messages, hasMore, nil
}

// attachmentsFor loads attachments for a set of messages in one round-trip
func (r *MessageRepository) attachmentsFor(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID][]*domain.Attachment, error) {
	result := make(map[uuid.UUID][]*domain.Attachment, len(messageIDs))
	if len(messageIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT attachment_id, message_id, file_url, file_name, file_type, file_size, thumbnail_url, duration, created_at
		FROM attachments
		WHERE message_id = ANY($1)
		ORDER BY created_at ASC, attachment_id ASC
	`

	rows, err := r.pool.Query(ctx, query, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		attachment := &domain.Attachment{}
		err := rows.Scan(
			&attachment.AttachmentID,
			&attachment.MessageID,
			&attachment.FileURL,
			&attachment.FileName,
			&attachment.FileType,
			&attachment.FileSize,
			&attachment.ThumbnailURL,
			&attachment.Duration,
			&attachment.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		result[attachment.MessageID] = append(result[attachment.MessageID], attachment)
	}

	return result, rows.Err()
}

// Delete removes a message; attachments cascade via foreign key
func (r *MessageRepository) Delete(ctx context.Context, messageID uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE message_id = $1`, messageID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkConversationRead bulk-transitions every unread incoming message to
// read in a single statement. The status guard makes the operation
// idempotent and keeps the transition monotonic under races with appends.
// Returns how many messages changed state.
func (r *MessageRepository) MarkConversationRead(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error) {
	query := `
		UPDATE messages
		SET status = $3
		WHERE conversation_id = $1
		  AND sender_id <> $2
		  AND status <> $3
	`

	cmdTag, err := r.pool.Exec(ctx, query, conversationID, viewerID, domain.StatusRead)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation read: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}

// UnreadCount counts the viewer's unread incoming messages in one
// conversation. Backed by the (conversation_id, sender_id, status) index.
func (r *MessageRepository) UnreadCount(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = $1
		  AND sender_id <> $2
		  AND status <> $3
	`

	var count int64
	err := r.pool.QueryRow(ctx, query, conversationID, viewerID, domain.StatusRead).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}

	return count, nil
}

// LastMessage returns the most recent message in a conversation, without
// attachments, for conversation-list previews
func (r *MessageRepository) LastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT message_id, conversation_id, sender_id, kind, content, status, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, message_id DESC
		LIMIT 1
	`

	message := &domain.Message{}
	err := r.pool.QueryRow(ctx, query, conversationID).Scan(
		&message.MessageID,
		&message.ConversationID,
		&message.SenderID,
		&message.Kind,
		&message.Content,
		&message.Status,
		&message.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get last message: %w", err)
	}

	return message, nil
}

// Schema documents the persisted state layout. Applied by migration
// tooling outside this package.
//
//	CREATE TABLE conversations (
//	    conversation_id UUID PRIMARY KEY,
//	    participant_a   UUID NOT NULL,
//	    participant_b   UUID NOT NULL,
//	    last_message_at TIMESTAMPTZ NOT NULL,
//	    created_at      TIMESTAMPTZ NOT NULL,
//	    UNIQUE (participant_a, participant_b)
//	);
//
//	CREATE TABLE messages (
//	    message_id      UUID PRIMARY KEY,
//	    conversation_id UUID NOT NULL REFERENCES conversations(conversation_id) ON DELETE CASCADE,
//	    sender_id       UUID NOT NULL,
//	    kind            TEXT NOT NULL,
//	    content         TEXT,
//	    status          TEXT NOT NULL,
//	    created_at      TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_messages_conversation_created ON messages (conversation_id, created_at);
//	CREATE INDEX idx_messages_unread ON messages (conversation_id, sender_id, status);
//
//	CREATE TABLE attachments (
//	    attachment_id UUID PRIMARY KEY,
//	    message_id    UUID NOT NULL REFERENCES messages(message_id) ON DELETE CASCADE,
//	    file_url      TEXT NOT NULL,
//	    file_name     TEXT NOT NULL,
//	    file_type     TEXT NOT NULL,
//	    file_size     BIGINT NOT NULL,
//	    thumbnail_url TEXT,
//	    duration      INT,
//	    created_at    TIMESTAMPTZ NOT NULL
//	);
