package message

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketchat-backend/internal/domain"
	"marketchat-backend/pkg/cache"
	"marketchat-backend/pkg/constants"
	"marketchat-backend/pkg/errors"
	"marketchat-backend/pkg/metrics"
)

// Mocks

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Append(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error) {
	args := m.Called(ctx, messageID)
	var message *domain.Message
	if args.Get(0) != nil {
		message = args.Get(0).(*domain.Message)
	}
	return message, args.Error(1)
}

func (m *MockMessageRepository) ListPage(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*domain.Message, bool, error) {
	args := m.Called(ctx, conversationID, limit, offset)
	var messages []*domain.Message
	if args.Get(0) != nil {
		messages = args.Get(0).([]*domain.Message)
	}
	return messages, args.Bool(1), args.Error(2)
}

func (m *MockMessageRepository) Delete(ctx context.Context, messageID uuid.UUID) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MockMessageRepository) MarkConversationRead(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, conversationID, viewerID)
	return args.Get(0).(int64), args.Error(1)
}

type MockParticipantChecker struct {
	mock.Mock
}

func (m *MockParticipantChecker) RequireParticipant(ctx context.Context, conversationID, viewerID uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, viewerID)
	var conversation *domain.Conversation
	if args.Get(0) != nil {
		conversation = args.Get(0).(*domain.Conversation)
	}
	return conversation, args.Error(1)
}

type MockUnreadInvalidator struct {
	mock.Mock
}

func (m *MockUnreadInvalidator) Invalidate(ctx context.Context, conversationID uuid.UUID, participants ...uuid.UUID) error {
	args := m.Called(ctx, conversationID, participants)
	return args.Error(0)
}

type fixture struct {
	repo         *MockMessageRepository
	participants *MockParticipantChecker
	service      *Service

	conversation *domain.Conversation
	sender       uuid.UUID
	other        uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:         new(MockMessageRepository),
		participants: new(MockParticipantChecker),
		sender:       uuid.New(),
		other:        uuid.New(),
	}
	f.conversation = &domain.Conversation{
		ConversationID: uuid.New(),
		ParticipantA:   f.sender,
		ParticipantB:   f.other,
	}
	f.service = NewService(f.repo, f.participants, nil, nil, metrics.NewMetrics("message-test"))
	return f
}

func (f *fixture) allowParticipant(userID uuid.UUID) {
	f.participants.On("RequireParticipant", mock.Anything, f.conversation.ConversationID, userID).
		Return(f.conversation, nil)
}

func strPtr(s string) *string { return &s }

func TestAppend_TextMessage(t *testing.T) {
	f := newFixture(t)
	f.allowParticipant(f.sender)
	f.repo.On("Append", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)

	message, err := f.service.Append(context.Background(), &AppendInput{
		ConversationID: f.conversation.ConversationID,
		SenderID:       f.sender,
		Kind:           domain.KindText,
		Content:        strPtr("hello there"),
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, message.MessageID)
	assert.Equal(t, domain.StatusDelivered, message.Status)
	assert.Equal(t, "hello there", *message.Content)
	assert.Empty(t, message.Attachments)
	assert.False(t, message.CreatedAt.IsZero())
}

func TestAppend_RejectsNonParticipant(t *testing.T) {
	f := newFixture(t)
	outsider := uuid.New()
	f.participants.On("RequireParticipant", mock.Anything, f.conversation.ConversationID, outsider).
		Return(nil, errors.NotParticipantError())

	_, err := f.service.Append(context.Background(), &AppendInput{
		ConversationID: f.conversation.ConversationID,
		SenderID:       outsider,
		Kind:           domain.KindText,
		Content:        strPtr("hi"),
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotParticipant, errors.GetAppError(err).Code)
	f.repo.AssertNotCalled(t, "Append")
}

func TestAppend_TextRequiresContent(t *testing.T) {
	f := newFixture(t)
	f.allowParticipant(f.sender)

	for _, content := range []*string{nil, strPtr(""), strPtr("   ")} {
		_, err := f.service.Append(context.Background(), &AppendInput{
			ConversationID: f.conversation.ConversationID,
			SenderID:       f.sender,
			Kind:           domain.KindText,
			Content:        content,
		})
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidMessage, errors.GetAppError(err).Code)
	}
	f.repo.AssertNotCalled(t, "Append")
}

func TestAppend_ContentLengthCeiling(t *testing.T) {
	f := newFixture(t)
	f.allowParticipant(f.sender)

	tooLong := strings.Repeat("a", constants.MaxMessageLength+1)
	_, err := f.service.Append(context.Background(), &AppendInput{
		ConversationID: f.conversation.ConversationID,
		SenderID:       f.sender,
		Kind:           domain.KindText,
		Content:        &tooLong,
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidMessage, errors.GetAppError(err).Code)
}

func TestAppend_EmojiValidation(t *testing.T) {
	f := newFixture(t)
	f.allowParticipant(f.sender)
	f.repo.On("Append", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)

	message, err := f.service.Append(context.Background(), &AppendInput{
		ConversationID: f.conversation.ConversationID,
		SenderID:       f.sender,
		Kind:           domain.KindEmoji,
		Content:        strPtr("\U0001F44D"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindEmoji, message.Kind)

	_, err = f.service.Append(context.Background(), &AppendInput{
		ConversationID: f.conversation.ConversationID,
		SenderID:       f.sender,
		Kind:           domain.KindEmoji,
		Content:        strPtr("not an emoji"),
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidMessage, errors.GetAppError(err).Code)
}

func TestAppend_AttachmentCardinality(t *testing.T) {
	f := newFixture(t)
	f.allowParticipant(f.sender)

	imageAttachment := &domain.AttachmentInput{
		FileURL:  "https://cdn.example.com/a.png",
		FileName: "a.png",
		FileType: "image/png",
		FileSize: 1024,
	}

	// Image without its attachment.
	_, err := f.service.Append(context.Background(), &AppendInput{
		ConversationID: f.conversation.ConversationID,
		SenderID:       f.sender,
		Kind:           domain.KindImage,
	})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidMessage, errors.GetAppError(err).Code)

	// Image with two attachments.
	_, err = f.service.Append(context.Background(), &AppendInput{
		ConversationID: f.conversation.ConversationID,
		SenderID:       f.sender,
		Kind:           domain.KindImage,
		Attachments:    []*domain.AttachmentInput{imageAttachment, imageAttachment},
	})
	require.Error(t, err)

	// Text with an attachment.
	_, err = f.service.Append(context.Background(), &AppendInput{
		ConversationID: f.conversation.ConversationID,
		SenderID:       f.sender,
		Kind:           domain.KindText,
		Content:        strPtr("hi"),
		Attachments:    []*domain.AttachmentInput{imageAttachment},
	})
	require.Error(t, err)

	f.repo.AssertNotCalled(t, "Append")
}

func TestAppend_AttachmentKindMismatch(t *testing.T) {
	f := newFixture(t)
	f.allowParticipant(f.sender)

	_, err := f.service.Append(context.Background(), &AppendInput{
		ConversationID: f.conversation.ConversationID,
		SenderID:       f.sender,
		Kind:           domain.KindImage,
		Attachments: []*domain.AttachmentInput{{
			FileURL:  "https://cdn.example.com/clip.mp4",
			FileName: "clip.mp4",
			FileType: "video/mp4",
			FileSize: 1024,
		}},
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidMessage, errors.GetAppError(err).Code)
}

func TestAppend_FileMessageWithMultipleAttachments(t *testing.T) {
	f := newFixture(t)
	f.allowParticipant(f.sender)
	f.repo.On("Append", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)

	doc := &domain.AttachmentInput{
		FileURL:  "https://cdn.example.com/report.pdf",
		FileName: "report.pdf",
		FileType: "application/pdf",
		FileSize: 2048,
	}

	message, err := f.service.Append(context.Background(), &AppendInput{
		ConversationID: f.conversation.ConversationID,
		SenderID:       f.sender,
		Kind:           domain.KindFile,
		Attachments:    []*domain.AttachmentInput{doc, doc, doc},
	})

	require.NoError(t, err)
	require.Len(t, message.Attachments, 3)
	for _, a := range message.Attachments {
		assert.Equal(t, message.MessageID, a.MessageID)
		assert.NotEqual(t, uuid.Nil, a.AttachmentID)
	}
}

func TestAppend_IdempotentReplay(t *testing.T) {
	f := newFixture(t)
	idempotency := cache.NewIdempotencyCache(time.Minute, 16)
	f.service = NewService(f.repo, f.participants, idempotency, nil, metrics.NewMetrics("message-test-idem"))
	f.allowParticipant(f.sender)

	var created *domain.Message
	f.repo.On("Append", mock.Anything, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.Message)
		}).Return(nil).Once()

	input := &AppendInput{
		ConversationID:   f.conversation.ConversationID,
		SenderID:         f.sender,
		Kind:             domain.KindText,
		Content:          strPtr("only once"),
		IdempotencyToken: "token-abc",
	}

	first, err := f.service.Append(context.Background(), input)
	require.NoError(t, err)

	f.repo.On("GetByID", mock.Anything, created.MessageID).Return(created, nil)

	second, err := f.service.Append(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, first.MessageID, second.MessageID)
	f.repo.AssertNumberOfCalls(t, "Append", 1)
}

func TestAppend_InvalidatesUnreadCache(t *testing.T) {
	f := newFixture(t)
	invalidator := new(MockUnreadInvalidator)
	f.service = NewService(f.repo, f.participants, nil, invalidator, metrics.NewMetrics("message-test-inv"))
	f.allowParticipant(f.sender)
	f.repo.On("Append", mock.Anything, mock.AnythingOfType("*domain.Message")).Return(nil)
	invalidator.On("Invalidate", mock.Anything, f.conversation.ConversationID,
		[]uuid.UUID{f.sender, f.other}).Return(nil)

	_, err := f.service.Append(context.Background(), &AppendInput{
		ConversationID: f.conversation.ConversationID,
		SenderID:       f.sender,
		Kind:           domain.KindText,
		Content:        strPtr("ping"),
	})

	require.NoError(t, err)
	invalidator.AssertExpectations(t)
}

func TestListPage_ChecksMembership(t *testing.T) {
	f := newFixture(t)
	outsider := uuid.New()
	f.participants.On("RequireParticipant", mock.Anything, f.conversation.ConversationID, outsider).
		Return(nil, errors.NotParticipantError())

	_, err := f.service.ListPage(context.Background(), &ListPageInput{
		ConversationID: f.conversation.ConversationID,
		ViewerID:       outsider,
		Page:           1,
		PageSize:       20,
	})

	require.Error(t, err)
	f.repo.AssertNotCalled(t, "ListPage")
}

func TestListPage_NormalizesParams(t *testing.T) {
	f := newFixture(t)
	f.allowParticipant(f.sender)
	f.repo.On("ListPage", mock.Anything, f.conversation.ConversationID, constants.DefaultPageSize, 0).
		Return([]*domain.Message{}, false, nil)

	output, err := f.service.ListPage(context.Background(), &ListPageInput{
		ConversationID: f.conversation.ConversationID,
		ViewerID:       f.sender,
		Page:           0,
		PageSize:       0,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, output.Page)
	assert.Equal(t, constants.DefaultPageSize, output.PageSize)
	assert.False(t, output.HasMore)
}

func TestListPage_OffsetWalksBackward(t *testing.T) {
	f := newFixture(t)
	f.allowParticipant(f.sender)
	f.repo.On("ListPage", mock.Anything, f.conversation.ConversationID, 20, 40).
		Return([]*domain.Message{{MessageID: uuid.New()}}, true, nil)

	output, err := f.service.ListPage(context.Background(), &ListPageInput{
		ConversationID: f.conversation.ConversationID,
		ViewerID:       f.sender,
		Page:           3,
		PageSize:       20,
	})

	require.NoError(t, err)
	assert.True(t, output.HasMore)
	assert.Equal(t, 3, output.Page)
}

func TestDelete_SenderOnly(t *testing.T) {
	f := newFixture(t)
	messageID := uuid.New()
	f.repo.On("GetByID", mock.Anything, messageID).Return(&domain.Message{
		MessageID:      messageID,
		ConversationID: f.conversation.ConversationID,
		SenderID:       f.sender,
		Kind:           domain.KindText,
	}, nil)
	f.allowParticipant(f.other)

	err := f.service.Delete(context.Background(), messageID, f.other)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotSender, errors.GetAppError(err).Code)
	f.repo.AssertNotCalled(t, "Delete")
}

func TestDelete_BySender(t *testing.T) {
	f := newFixture(t)
	messageID := uuid.New()
	f.repo.On("GetByID", mock.Anything, messageID).Return(&domain.Message{
		MessageID:      messageID,
		ConversationID: f.conversation.ConversationID,
		SenderID:       f.sender,
		Kind:           domain.KindText,
	}, nil)
	f.allowParticipant(f.sender)
	f.repo.On("Delete", mock.Anything, messageID).Return(nil)

	err := f.service.Delete(context.Background(), messageID, f.sender)
	require.NoError(t, err)
}

func TestDelete_MissingMessage(t *testing.T) {
	f := newFixture(t)
	messageID := uuid.New()
	f.repo.On("GetByID", mock.Anything, messageID).Return(nil, domain.ErrNotFound)

	err := f.service.Delete(context.Background(), messageID, f.sender)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMessageNotFound, errors.GetAppError(err).Code)
}

func TestMarkConversationRead(t *testing.T) {
	f := newFixture(t)
	f.allowParticipant(f.other)
	f.repo.On("MarkConversationRead", mock.Anything, f.conversation.ConversationID, f.other).
		Return(int64(5), nil).Once()

	count, err := f.service.MarkConversationRead(context.Background(), f.conversation.ConversationID, f.other)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	// Second call finds nothing left to transition.
	f.repo.On("MarkConversationRead", mock.Anything, f.conversation.ConversationID, f.other).
		Return(int64(0), nil).Once()

	count, err = f.service.MarkConversationRead(context.Background(), f.conversation.ConversationID, f.other)
	require.NoError(t, err)
	assert.Zero(t, count)
}
