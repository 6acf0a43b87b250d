package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"marketchat-backend/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = domain.ErrNotFound

// ConversationRepository handles conversation persistence
type ConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

// GetOrCreate finds the conversation owned by the unordered pair (userA,
// userB), creating it if absent. The pair is canonicalized before insert and
// the (participant_a, participant_b) unique constraint serializes concurrent
// creates; the loser of the race re-reads and returns the winner's row.
// Returns the conversation and whether this call created it.
func (r *ConversationRepository) GetOrCreate(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, bool, error) {
	lo, hi := domain.CanonicalPair(userA, userB)
	now := time.Now().UTC()

	insert := `
		INSERT INTO conversations (conversation_id, participant_a, participant_b, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (participant_a, participant_b) DO NOTHING
		RETURNING conversation_id, participant_a, participant_b, last_message_at, created_at
	`

	conversation := &domain.Conversation{}
	err := r.pool.QueryRow(ctx, insert, uuid.New(), lo, hi, now, now).Scan(
		&conversation.ConversationID,
		&conversation.ParticipantA,
		&conversation.ParticipantB,
		&conversation.LastMessageAt,
		&conversation.CreatedAt,
	)
	if err == nil {
		return conversation, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}

	// Lost the race or the row already existed; read the winner's row.
	existing, err := r.getByPair(ctx, lo, hi)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *ConversationRepository) getByPair(ctx context.Context, lo, hi uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT conversation_id, participant_a, participant_b, last_message_at, created_at
		FROM conversations
		WHERE participant_a = $1 AND participant_b = $2
	`

	conversation := &domain.Conversation{}
	err := r.pool.QueryRow(ctx, query, lo, hi).Scan(
		&conversation.ConversationID,
		&conversation.ParticipantA,
		&conversation.ParticipantB,
		&conversation.LastMessageAt,
		&conversation.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation by pair: %w", err)
	}

	return conversation, nil
}

// GetByID retrieves a conversation by ID
func (r *ConversationRepository) GetByID(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT conversation_id, participant_a, participant_b, last_message_at, created_at
		FROM conversations
		WHERE conversation_id = $1
	`

	conversation := &domain.Conversation{}
	err := r.pool.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ConversationID,
		&conversation.ParticipantA,
		&conversation.ParticipantB,
		&conversation.LastMessageAt,
		&conversation.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conversation, nil
}

// ListForUser retrieves all conversations where the user occupies either
// participant slot, most recently active first
func (r *ConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	query := `
		SELECT conversation_id, participant_a, participant_b, last_message_at, created_at
		FROM conversations
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY last_message_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		conversation := &domain.Conversation{}
		err := rows.Scan(
			&conversation.ConversationID,
			&conversation.ParticipantA,
			&conversation.ParticipantB,
			&conversation.LastMessageAt,
			&conversation.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conversation)
	}

	return conversations, rows.Err()
}

// IsParticipant checks if a user occupies either participant slot
func (r *ConversationRepository) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM conversations
			WHERE conversation_id = $1 AND (participant_a = $2 OR participant_b = $2)
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, conversationID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}

	return exists, nil
}
