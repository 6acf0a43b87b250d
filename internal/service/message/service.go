// Package message implements the message store operations: atomic append,
// backward-walking pagination, sender-only deletion, and the bulk read
// transition.
package message

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketchat-backend/internal/domain"
	"marketchat-backend/internal/service/attachment"
	"marketchat-backend/pkg/cache"
	"marketchat-backend/pkg/constants"
	"marketchat-backend/pkg/errors"
	"marketchat-backend/pkg/logger"
	"marketchat-backend/pkg/metrics"
	"marketchat-backend/pkg/pagination"
)

// MessageRepository is the persistence surface the service needs
type MessageRepository interface {
	Append(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error)
	ListPage(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, bool, error)
	Delete(ctx context.Context, messageID uuid.UUID) error
	MarkConversationRead(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error)
}

// ParticipantChecker gates every operation on conversation membership
type ParticipantChecker interface {
	RequireParticipant(ctx context.Context, conversationID, viewerID uuid.UUID) (*domain.Conversation, error)
}

// UnreadInvalidator drops cached unread counts after a write
type UnreadInvalidator interface {
	Invalidate(ctx context.Context, conversationID uuid.UUID, participants ...uuid.UUID) error
}

// Service handles message business logic
type Service struct {
	messageRepo  MessageRepository
	participants ParticipantChecker
	idempotency  *cache.IdempotencyCache
	unreadCache  UnreadInvalidator
	metrics      *metrics.Metrics
}

// NewService creates a new message service. idempotency and unreadCache
// may be nil; appends then always create and listings always recount.
func NewService(
	messageRepo MessageRepository,
	participants ParticipantChecker,
	idempotency *cache.IdempotencyCache,
	unreadCache UnreadInvalidator,
	m *metrics.Metrics,
) *Service {
	return &Service{
		messageRepo:  messageRepo,
		participants: participants,
		idempotency:  idempotency,
		unreadCache:  unreadCache,
		metrics:      m,
	}
}

// AppendInput contains a new message. MessageID and CreatedAt are
// server-assigned; clients never supply them.
type AppendInput struct {
	ConversationID   uuid.UUID
	SenderID         uuid.UUID
	Kind             domain.MessageKind
	Content          *string
	Attachments      []*domain.AttachmentInput
	IdempotencyToken string
}

// Append validates and persists a message atomically with its attachments.
// A replayed idempotency token returns the originally created message.
// Messages persist as delivered: acceptance by the store is delivery.
func (s *Service) Append(ctx context.Context, input *AppendInput) (*domain.Message, error) {
	conversation, err := s.participants.RequireParticipant(ctx, input.ConversationID, input.SenderID)
	if err != nil {
		s.metrics.RecordAppendRejected("not_participant")
		return nil, err
	}

	if s.idempotency != nil {
		if messageID, ok := s.idempotency.Lookup(input.IdempotencyToken); ok {
			existing, err := s.messageRepo.GetByID(ctx, messageID)
			if err == nil {
				logger.Debug("idempotent append replay",
					zap.String("message_id", messageID.String()))
				return existing, nil
			}
			// Original row gone (deleted); fall through and create anew.
		}
	}

	if err := s.validate(input); err != nil {
		s.metrics.RecordAppendRejected("invalid_message")
		return nil, err
	}

	now := time.Now().UTC()
	message := &domain.Message{
		MessageID:      uuid.New(),
		ConversationID: conversation.ConversationID,
		SenderID:       input.SenderID,
		Kind:           input.Kind,
		Content:        normalizeContent(input.Content),
		Status:         domain.StatusDelivered,
		CreatedAt:      now,
	}
	for _, in := range input.Attachments {
		message.Attachments = append(message.Attachments, &domain.Attachment{
			AttachmentID: uuid.New(),
			MessageID:    message.MessageID,
			FileURL:      in.FileURL,
			FileName:     in.FileName,
			FileType:     in.FileType,
			FileSize:     in.FileSize,
			ThumbnailURL: in.ThumbnailURL,
			Duration:     in.Duration,
			CreatedAt:    now,
		})
	}

	if err := s.messageRepo.Append(ctx, message); err != nil {
		s.metrics.RecordAppendRejected("store_error")
		return nil, errors.StoreUnavailableError(err)
	}

	if s.idempotency != nil {
		s.idempotency.Remember(input.IdempotencyToken, message.MessageID)
	}
	s.metrics.RecordMessageAppended(string(message.Kind))
	s.invalidateUnread(ctx, conversation)

	return message, nil
}

// validate enforces the kind/content/attachment shape rules
func (s *Service) validate(input *AppendInput) error {
	content := ""
	if input.Content != nil {
		content = strings.TrimSpace(*input.Content)
	}

	switch input.Kind {
	case domain.KindText:
		if content == "" {
			return errors.InvalidMessageError("A text message requires content")
		}
	case domain.KindEmoji:
		if !domain.IsSingleEmoji(content) {
			return errors.InvalidMessageError("An emoji message must be exactly one emoji")
		}
	case domain.KindAudio, domain.KindVideo, domain.KindImage, domain.KindFile:
		// Captions are optional; shape is carried by the attachments.
	default:
		return errors.InvalidMessageError("Unknown message kind")
	}

	if len(content) > constants.MaxMessageLength {
		return errors.InvalidMessageError("Message content exceeds the maximum length")
	}

	min, max := input.Kind.AttachmentBounds()
	count := len(input.Attachments)
	if count < min {
		return errors.InvalidMessageError("This message kind requires an attachment")
	}
	if max >= 0 && count > max {
		return errors.InvalidMessageError("This message kind does not accept attachments")
	}
	if count > constants.MaxAttachmentsPerMessage {
		return errors.InvalidMessageError("Too many attachments")
	}

	// Each attachment must classify to the declared kind within its
	// ceiling, so a video cannot ride on an image message.
	for _, in := range input.Attachments {
		kind, err := attachment.Classify(in.FileType, in.FileSize)
		if err != nil {
			return err
		}
		if kind != input.Kind {
			return errors.InvalidMessageError("Attachment type does not match the message kind")
		}
		if in.ThumbnailURL != nil && kind != domain.KindImage && kind != domain.KindVideo {
			return errors.InvalidMessageError("Only image and video attachments carry a thumbnail")
		}
		if in.Duration != nil && kind != domain.KindAudio && kind != domain.KindVideo {
			return errors.InvalidMessageError("Only audio and video attachments carry a duration")
		}
	}

	return nil
}

// ListPageInput contains history query parameters
type ListPageInput struct {
	ConversationID uuid.UUID
	ViewerID       uuid.UUID
	Page           int
	PageSize       int
}

// ListPageOutput contains one page of history
type ListPageOutput struct {
	Messages []*domain.Message
	Page     int
	PageSize int
	HasMore  bool
}

// ListPage returns one page of history. Page 1 holds the most recent
// messages; higher pages walk backward in time. Within a page messages
// run in forward chronological order.
func (s *Service) ListPage(ctx context.Context, input *ListPageInput) (*ListPageOutput, error) {
	if _, err := s.participants.RequireParticipant(ctx, input.ConversationID, input.ViewerID); err != nil {
		return nil, err
	}

	params := pagination.Normalize(input.Page, input.PageSize)

	messages, hasMore, err := s.messageRepo.ListPage(ctx, input.ConversationID, params.Limit, params.Offset)
	if err != nil {
		return nil, errors.StoreUnavailableError(err)
	}

	s.metrics.RecordPollRequest("messages")

	return &ListPageOutput{
		Messages: messages,
		Page:     params.Page,
		PageSize: params.Limit,
		HasMore:  hasMore,
	}, nil
}

// Delete removes a message. Only the original sender may delete, and the
// caller must still be a participant of the conversation.
func (s *Service) Delete(ctx context.Context, messageID, callerID uuid.UUID) error {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		if err == domain.ErrNotFound {
			return errors.MessageNotFoundError()
		}
		return errors.StoreUnavailableError(err)
	}

	conversation, err := s.participants.RequireParticipant(ctx, message.ConversationID, callerID)
	if err != nil {
		return err
	}
	if message.SenderID != callerID {
		return errors.NotSenderError()
	}

	if err := s.messageRepo.Delete(ctx, messageID); err != nil {
		if err == domain.ErrNotFound {
			// Concurrent delete of the same message; already gone.
			return nil
		}
		return errors.StoreUnavailableError(err)
	}

	s.metrics.RecordMessageDeleted()
	s.invalidateUnread(ctx, conversation)
	logger.Info("message deleted",
		zap.String("message_id", messageID.String()),
		zap.String("sender_id", callerID.String()))

	return nil
}

// MarkConversationRead transitions every unread incoming message to read in
// one bulk operation. Idempotent: repeating it reports zero newly read
// messages. Returns how many messages changed state.
func (s *Service) MarkConversationRead(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error) {
	conversation, err := s.participants.RequireParticipant(ctx, conversationID, viewerID)
	if err != nil {
		return 0, err
	}

	count, err := s.messageRepo.MarkConversationRead(ctx, conversationID, viewerID)
	if err != nil {
		return 0, errors.StoreUnavailableError(err)
	}

	if count > 0 {
		s.metrics.RecordMessagesMarkedRead(count)
		s.invalidateUnread(ctx, conversation)
	}

	return count, nil
}

// invalidateUnread drops both participants' cached unread counts.
// Best-effort: a failed invalidation only delays freshness by the TTL.
func (s *Service) invalidateUnread(ctx context.Context, conversation *domain.Conversation) {
	if s.unreadCache == nil {
		return
	}
	err := s.unreadCache.Invalidate(ctx, conversation.ConversationID,
		conversation.ParticipantA, conversation.ParticipantB)
	if err != nil {
		logger.Warn("unread cache invalidation failed",
			zap.String("conversation_id", conversation.ConversationID.String()),
			zap.Error(err))
	}
}

func normalizeContent(content *string) *string {
	if content == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*content)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
