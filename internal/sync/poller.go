package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketchat-backend/internal/domain"
	"marketchat-backend/pkg/constants"
	"marketchat-backend/pkg/logger"
)

// Fetcher is the message-store surface the poller drives
type Fetcher interface {
	// FetchLatest returns the newest history page for the conversation
	FetchLatest(ctx context.Context, conversationID uuid.UUID, pageSize int) ([]*domain.Message, bool, error)
	// MarkRead transitions the viewer's unread incoming messages to read
	MarkRead(ctx context.Context, conversationID uuid.UUID) error
}

// Poller drives a timeline by fetching the newest page at a fixed
// interval. Read marking is fire-and-forget: a failed attempt is simply
// retried on the next cycle because the unread state still reports it.
type Poller struct {
	fetcher  Fetcher
	timeline *Timeline
	interval time.Duration
	pageSize int
}

// NewPoller creates a poller for one timeline. Intervals below the
// minimum are clamped; zero means the default.
func NewPoller(fetcher Fetcher, timeline *Timeline, interval time.Duration, pageSize int) *Poller {
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}
	if interval < constants.MinPollInterval {
		interval = constants.MinPollInterval
	}
	if pageSize <= 0 {
		pageSize = constants.DefaultPageSize
	}
	return &Poller{
		fetcher:  fetcher,
		timeline: timeline,
		interval: interval,
		pageSize: pageSize,
	}
}

// Run polls until the context is cancelled. The first poll fires
// immediately so the view is never blank for a full interval. Fetch
// failures are logged and retried next tick; the loop never dies on a
// transient store error.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// Poll runs one fetch-and-merge cycle
func (p *Poller) Poll(ctx context.Context) {
	p.poll(ctx)
}

func (p *Poller) poll(ctx context.Context) {
	conversationID := p.timeline.conversationID

	messages, hasMore, err := p.fetcher.FetchLatest(ctx, conversationID, p.pageSize)
	if err != nil {
		logger.Warn("poll fetch failed",
			zap.String("conversation_id", conversationID.String()),
			zap.Error(err))
		return
	}

	p.timeline.ApplyLatest(messages, hasMore)

	if p.timeline.UnreadIncoming() {
		p.markRead(ctx, conversationID)
	}
}

// markRead tells the store, then applies the transition locally so the
// view updates without waiting for the next fetch. On failure the local
// state is left untouched; the next poll still sees unread incoming
// messages and tries again.
func (p *Poller) markRead(ctx context.Context, conversationID uuid.UUID) {
	if err := p.fetcher.MarkRead(ctx, conversationID); err != nil {
		logger.Warn("mark-read failed, will retry on next poll",
			zap.String("conversation_id", conversationID.String()),
			zap.Error(err))
		return
	}

	p.timeline.MarkIncomingRead()
}

// LoadOlder fetches and merges the next unloaded history page via the
// given page fetch. No-op when the backward walk is complete.
func (p *Poller) LoadOlder(ctx context.Context, fetchPage func(ctx context.Context, page, pageSize int) ([]*domain.Message, bool, error)) error {
	page, ok := p.timeline.NextOlderPage()
	if !ok {
		return nil
	}

	messages, hasMore, err := fetchPage(ctx, page, p.pageSize)
	if err != nil {
		return err
	}

	p.timeline.MergeOlder(page, messages, hasMore)
	return nil
}
