// Package conversation implements the conversation registry: exactly one
// conversation per unordered participant pair, plus the enriched listing
// the conversation screen polls.
package conversation

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketchat-backend/internal/domain"
	"marketchat-backend/pkg/errors"
	"marketchat-backend/pkg/logger"
	"marketchat-backend/pkg/metrics"
)

// ConversationRepository is the persistence surface the service needs
type ConversationRepository interface {
	GetOrCreate(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, bool, error)
	GetByID(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
}

// MessageReader supplies the preview and unread data for listings
type MessageReader interface {
	LastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error)
	UnreadCount(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error)
}

// UnreadCache is the best-effort Redis layer in front of UnreadCount
type UnreadCache interface {
	Get(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, bool, error)
	Set(ctx context.Context, conversationID, viewerID uuid.UUID, count int64) error
}

// Service handles conversation business logic
type Service struct {
	conversationRepo ConversationRepository
	messageReader    MessageReader
	unreadCache      UnreadCache
	metrics          *metrics.Metrics
}

// NewService creates a new conversation service. unreadCache may be nil;
// listings then always hit the message store for counts.
func NewService(
	conversationRepo ConversationRepository,
	messageReader MessageReader,
	unreadCache UnreadCache,
	m *metrics.Metrics,
) *Service {
	return &Service{
		conversationRepo: conversationRepo,
		messageReader:    messageReader,
		unreadCache:      unreadCache,
		metrics:          m,
	}
}

// GetOrCreateOutput reports the conversation and whether this call created it
type GetOrCreateOutput struct {
	Conversation *domain.Conversation
	Created      bool
}

// GetOrCreate returns the conversation for the pair (requester, otherUser),
// creating it when absent. The pair is unordered: both call directions land
// on the same conversation, and concurrent first calls converge on one row.
func (s *Service) GetOrCreate(ctx context.Context, requesterID, otherUserID uuid.UUID) (*GetOrCreateOutput, error) {
	if requesterID == otherUserID {
		return nil, errors.InvalidParticipantsError()
	}
	if otherUserID == uuid.Nil {
		return nil, errors.InvalidInputError("other_user_id is required")
	}

	conversation, created, err := s.conversationRepo.GetOrCreate(ctx, requesterID, otherUserID)
	if err != nil {
		return nil, errors.StoreUnavailableError(err)
	}

	if created {
		s.metrics.RecordConversationCreated()
		logger.Info("conversation created",
			zap.String("conversation_id", conversation.ConversationID.String()),
			zap.String("participant_a", conversation.ParticipantA.String()),
			zap.String("participant_b", conversation.ParticipantB.String()))
	}

	return &GetOrCreateOutput{Conversation: conversation, Created: created}, nil
}

// ListForUser returns the viewer's conversations, most recently active
// first, each enriched with the other participant, a last-message preview,
// and the viewer's unread count.
func (s *Service) ListForUser(ctx context.Context, viewerID uuid.UUID) ([]*domain.ConversationSummary, error) {
	conversations, err := s.conversationRepo.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, errors.StoreUnavailableError(err)
	}

	summaries := make([]*domain.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summary := &domain.ConversationSummary{
			ConversationID: conversation.ConversationID,
			OtherUserID:    conversation.OtherParticipant(viewerID),
			LastMessageAt:  conversation.LastMessageAt,
		}

		last, err := s.messageReader.LastMessage(ctx, conversation.ConversationID)
		if err == nil {
			summary.LastMessage = &domain.LastMessagePreview{
				Content:   last.Preview(),
				CreatedAt: last.CreatedAt,
				SenderID:  last.SenderID,
				IsRead:    last.Status == domain.StatusRead,
			}
		}
		// A conversation with no messages yet simply has no preview.

		unread, err := s.unreadCount(ctx, conversation.ConversationID, viewerID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// unreadCount consults the cache first and falls back to the message store.
// Cache failures degrade silently; the SQL count is always authoritative.
func (s *Service) unreadCount(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error) {
	if s.unreadCache != nil {
		count, hit, err := s.unreadCache.Get(ctx, conversationID, viewerID)
		if err == nil && hit {
			s.metrics.RecordUnreadCacheHit()
			return count, nil
		}
		if err != nil {
			logger.Warn("unread cache read failed", zap.Error(err))
		}
		s.metrics.RecordUnreadCacheMiss()
	}

	count, err := s.messageReader.UnreadCount(ctx, conversationID, viewerID)
	if err != nil {
		return 0, errors.StoreUnavailableError(err)
	}

	if s.unreadCache != nil {
		if err := s.unreadCache.Set(ctx, conversationID, viewerID, count); err != nil {
			logger.Warn("unread cache write failed", zap.Error(err))
		}
	}

	return count, nil
}

// RequireParticipant returns the conversation if the viewer belongs to it.
// Missing conversations and non-member access render the same way upstream
// so outsiders cannot probe for conversation existence.
func (s *Service) RequireParticipant(ctx context.Context, conversationID, viewerID uuid.UUID) (*domain.Conversation, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, errors.ConversationNotFoundError()
		}
		return nil, errors.StoreUnavailableError(err)
	}

	if !conversation.HasParticipant(viewerID) {
		return nil, errors.NotParticipantError()
	}

	return conversation, nil
}
