package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketchat-backend/internal/domain"
	"marketchat-backend/pkg/errors"
	"marketchat-backend/pkg/metrics"
)

// Mocks

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) GetOrCreate(ctx context.Context, userA, userB uuid.UUID) (*domain.Conversation, bool, error) {
	args := m.Called(ctx, userA, userB)
	var conversation *domain.Conversation
	if args.Get(0) != nil {
		conversation = args.Get(0).(*domain.Conversation)
	}
	return conversation, args.Bool(1), args.Error(2)
}

func (m *MockConversationRepository) GetByID(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conversation *domain.Conversation
	if args.Get(0) != nil {
		conversation = args.Get(0).(*domain.Conversation)
	}
	return conversation, args.Error(1)
}

func (m *MockConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	args := m.Called(ctx, userID)
	var conversations []*domain.Conversation
	if args.Get(0) != nil {
		conversations = args.Get(0).([]*domain.Conversation)
	}
	return conversations, args.Error(1)
}

func (m *MockConversationRepository) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

type MockMessageReader struct {
	mock.Mock
}

func (m *MockMessageReader) LastMessage(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	args := m.Called(ctx, conversationID)
	var message *domain.Message
	if args.Get(0) != nil {
		message = args.Get(0).(*domain.Message)
	}
	return message, args.Error(1)
}

func (m *MockMessageReader) UnreadCount(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, conversationID, viewerID)
	return args.Get(0).(int64), args.Error(1)
}

type MockUnreadCache struct {
	mock.Mock
}

func (m *MockUnreadCache) Get(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, bool, error) {
	args := m.Called(ctx, conversationID, viewerID)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockUnreadCache) Set(ctx context.Context, conversationID, viewerID uuid.UUID, count int64) error {
	args := m.Called(ctx, conversationID, viewerID, count)
	return args.Error(0)
}

func newTestService(repo *MockConversationRepository, reader *MockMessageReader, cache UnreadCache) *Service {
	return NewService(repo, reader, cache, metrics.NewMetrics("conversation-test"))
}

func TestGetOrCreate_RejectsSelfConversation(t *testing.T) {
	repo := new(MockConversationRepository)
	service := newTestService(repo, new(MockMessageReader), nil)

	userID := uuid.New()
	_, err := service.GetOrCreate(context.Background(), userID, userID)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidParticipants, errors.GetAppError(err).Code)
	repo.AssertNotCalled(t, "GetOrCreate")
}

func TestGetOrCreate_CreatesWhenAbsent(t *testing.T) {
	repo := new(MockConversationRepository)
	service := newTestService(repo, new(MockMessageReader), nil)

	userA := uuid.New()
	userB := uuid.New()
	lo, hi := domain.CanonicalPair(userA, userB)
	conversation := &domain.Conversation{
		ConversationID: uuid.New(),
		ParticipantA:   lo,
		ParticipantB:   hi,
	}

	repo.On("GetOrCreate", mock.Anything, userA, userB).Return(conversation, true, nil)

	output, err := service.GetOrCreate(context.Background(), userA, userB)
	require.NoError(t, err)
	assert.True(t, output.Created)
	assert.Equal(t, conversation.ConversationID, output.Conversation.ConversationID)
}

func TestGetOrCreate_ReturnsExisting(t *testing.T) {
	repo := new(MockConversationRepository)
	service := newTestService(repo, new(MockMessageReader), nil)

	userA := uuid.New()
	userB := uuid.New()
	conversation := &domain.Conversation{ConversationID: uuid.New()}

	repo.On("GetOrCreate", mock.Anything, userA, userB).Return(conversation, false, nil)

	output, err := service.GetOrCreate(context.Background(), userA, userB)
	require.NoError(t, err)
	assert.False(t, output.Created)
}

func TestListForUser_BuildsSummaries(t *testing.T) {
	repo := new(MockConversationRepository)
	reader := new(MockMessageReader)
	service := newTestService(repo, reader, nil)

	viewer := uuid.New()
	other := uuid.New()
	conversationID := uuid.New()
	now := time.Now()

	repo.On("ListForUser", mock.Anything, viewer).Return([]*domain.Conversation{
		{
			ConversationID: conversationID,
			ParticipantA:   other,
			ParticipantB:   viewer,
			LastMessageAt:  now,
		},
	}, nil)

	content := "see you tomorrow"
	reader.On("LastMessage", mock.Anything, conversationID).Return(&domain.Message{
		MessageID:      uuid.New(),
		ConversationID: conversationID,
		SenderID:       other,
		Kind:           domain.KindText,
		Content:        &content,
		Status:         domain.StatusDelivered,
		CreatedAt:      now,
	}, nil)
	reader.On("UnreadCount", mock.Anything, conversationID, viewer).Return(int64(3), nil)

	summaries, err := service.ListForUser(context.Background(), viewer)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	summary := summaries[0]
	assert.Equal(t, other, summary.OtherUserID)
	assert.Equal(t, int64(3), summary.UnreadCount)
	require.NotNil(t, summary.LastMessage)
	assert.Equal(t, "see you tomorrow", summary.LastMessage.Content)
	assert.False(t, summary.LastMessage.IsRead)
}

func TestListForUser_NonTextPreviewUsesPlaceholder(t *testing.T) {
	repo := new(MockConversationRepository)
	reader := new(MockMessageReader)
	service := newTestService(repo, reader, nil)

	viewer := uuid.New()
	conversationID := uuid.New()

	repo.On("ListForUser", mock.Anything, viewer).Return([]*domain.Conversation{
		{ConversationID: conversationID, ParticipantA: viewer, ParticipantB: uuid.New()},
	}, nil)
	reader.On("LastMessage", mock.Anything, conversationID).Return(&domain.Message{
		Kind:   domain.KindImage,
		Status: domain.StatusRead,
	}, nil)
	reader.On("UnreadCount", mock.Anything, conversationID, viewer).Return(int64(0), nil)

	summaries, err := service.ListForUser(context.Background(), viewer)
	require.NoError(t, err)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "[IMAGE]", summaries[0].LastMessage.Content)
	assert.True(t, summaries[0].LastMessage.IsRead)
}

func TestListForUser_EmptyConversationHasNoPreview(t *testing.T) {
	repo := new(MockConversationRepository)
	reader := new(MockMessageReader)
	service := newTestService(repo, reader, nil)

	viewer := uuid.New()
	conversationID := uuid.New()

	repo.On("ListForUser", mock.Anything, viewer).Return([]*domain.Conversation{
		{ConversationID: conversationID, ParticipantA: viewer, ParticipantB: uuid.New()},
	}, nil)
	reader.On("LastMessage", mock.Anything, conversationID).Return(nil, domain.ErrNotFound)
	reader.On("UnreadCount", mock.Anything, conversationID, viewer).Return(int64(0), nil)

	summaries, err := service.ListForUser(context.Background(), viewer)
	require.NoError(t, err)
	assert.Nil(t, summaries[0].LastMessage)
}

func TestListForUser_CacheHitSkipsStore(t *testing.T) {
	repo := new(MockConversationRepository)
	reader := new(MockMessageReader)
	cache := new(MockUnreadCache)
	service := newTestService(repo, reader, cache)

	viewer := uuid.New()
	conversationID := uuid.New()

	repo.On("ListForUser", mock.Anything, viewer).Return([]*domain.Conversation{
		{ConversationID: conversationID, ParticipantA: viewer, ParticipantB: uuid.New()},
	}, nil)
	reader.On("LastMessage", mock.Anything, conversationID).Return(nil, domain.ErrNotFound)
	cache.On("Get", mock.Anything, conversationID, viewer).Return(int64(7), true, nil)

	summaries, err := service.ListForUser(context.Background(), viewer)
	require.NoError(t, err)
	assert.Equal(t, int64(7), summaries[0].UnreadCount)
	reader.AssertNotCalled(t, "UnreadCount")
}

func TestListForUser_CacheMissFallsBackAndFills(t *testing.T) {
	repo := new(MockConversationRepository)
	reader := new(MockMessageReader)
	cache := new(MockUnreadCache)
	service := newTestService(repo, reader, cache)

	viewer := uuid.New()
	conversationID := uuid.New()

	repo.On("ListForUser", mock.Anything, viewer).Return([]*domain.Conversation{
		{ConversationID: conversationID, ParticipantA: viewer, ParticipantB: uuid.New()},
	}, nil)
	reader.On("LastMessage", mock.Anything, conversationID).Return(nil, domain.ErrNotFound)
	cache.On("Get", mock.Anything, conversationID, viewer).Return(int64(0), false, nil)
	reader.On("UnreadCount", mock.Anything, conversationID, viewer).Return(int64(2), nil)
	cache.On("Set", mock.Anything, conversationID, viewer, int64(2)).Return(nil)

	summaries, err := service.ListForUser(context.Background(), viewer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summaries[0].UnreadCount)
	cache.AssertCalled(t, "Set", mock.Anything, conversationID, viewer, int64(2))
}

func TestRequireParticipant(t *testing.T) {
	repo := new(MockConversationRepository)
	service := newTestService(repo, new(MockMessageReader), nil)

	viewer := uuid.New()
	outsider := uuid.New()
	conversation := &domain.Conversation{
		ConversationID: uuid.New(),
		ParticipantA:   viewer,
		ParticipantB:   uuid.New(),
	}

	repo.On("GetByID", mock.Anything, conversation.ConversationID).Return(conversation, nil)

	got, err := service.RequireParticipant(context.Background(), conversation.ConversationID, viewer)
	require.NoError(t, err)
	assert.Equal(t, conversation.ConversationID, got.ConversationID)

	_, err = service.RequireParticipant(context.Background(), conversation.ConversationID, outsider)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotParticipant, errors.GetAppError(err).Code)
}

func TestRequireParticipant_NotFound(t *testing.T) {
	repo := new(MockConversationRepository)
	service := newTestService(repo, new(MockMessageReader), nil)

	missing := uuid.New()
	repo.On("GetByID", mock.Anything, missing).Return(nil, domain.ErrNotFound)

	_, err := service.RequireParticipant(context.Background(), missing, uuid.New())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConversationNotFound, errors.GetAppError(err).Code)
}
