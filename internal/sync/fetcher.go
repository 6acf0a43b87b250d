package sync

import (
	"context"

	"github.com/google/uuid"

	"marketchat-backend/internal/domain"
	"marketchat-backend/internal/service/message"
)

// ServiceFetcher adapts the message service to the Fetcher surface so a
// poller can run in-process, for embedded clients and integration tests.
type ServiceFetcher struct {
	messages *message.Service
	viewerID uuid.UUID
}

// NewServiceFetcher creates a fetcher acting as the given viewer
func NewServiceFetcher(messages *message.Service, viewerID uuid.UUID) *ServiceFetcher {
	return &ServiceFetcher{messages: messages, viewerID: viewerID}
}

// FetchLatest returns the newest history page
func (f *ServiceFetcher) FetchLatest(ctx context.Context, conversationID uuid.UUID, pageSize int) ([]*domain.Message, bool, error) {
	output, err := f.messages.ListPage(ctx, &message.ListPageInput{
		ConversationID: conversationID,
		ViewerID:       f.viewerID,
		Page:           1,
		PageSize:       pageSize,
	})
	if err != nil {
		return nil, false, err
	}
	return output.Messages, output.HasMore, nil
}

// FetchPage returns an arbitrary history page for backward loading
func (f *ServiceFetcher) FetchPage(ctx context.Context, conversationID uuid.UUID, page, pageSize int) ([]*domain.Message, bool, error) {
	output, err := f.messages.ListPage(ctx, &message.ListPageInput{
		ConversationID: conversationID,
		ViewerID:       f.viewerID,
		Page:           page,
		PageSize:       pageSize,
	})
	if err != nil {
		return nil, false, err
	}
	return output.Messages, output.HasMore, nil
}

// MarkRead transitions the viewer's unread incoming messages to read
func (f *ServiceFetcher) MarkRead(ctx context.Context, conversationID uuid.UUID) error {
	_, err := f.messages.MarkConversationRead(ctx, conversationID, f.viewerID)
	return err
}
