// Package sync implements the poll-based reconciliation a conversation
// view runs against the message store: optimistic provisional messages,
// confirmation against polled server state, and backward page loading
// that never re-requests a page it already holds.
package sync

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketchat-backend/internal/domain"
	"marketchat-backend/pkg/constants"
)

// EntryState is the lifecycle of a timeline entry
type EntryState int

const (
	// StatePending marks a provisional message awaiting server confirmation
	StatePending EntryState = iota
	// StateConfirmed marks a message the server has acknowledged
	StateConfirmed
	// StateFailed marks a provisional message whose send failed; it stays
	// visible until retried or discarded
	StateFailed
)

// String renders the state for logs
func (s EntryState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Entry is one message slot in the timeline. Provisional entries carry a
// local id in their own namespace so they can never collide with
// server-assigned ids.
type Entry struct {
	LocalID string
	Message *domain.Message
	State   EntryState
}

// Provisional reports whether the entry still lacks a server identity
func (e *Entry) Provisional() bool {
	return e.State != StateConfirmed
}

// Timeline is the reconciled, ordered view of one conversation.
// Safe for concurrent use by a poller and a sending caller.
type Timeline struct {
	mu sync.Mutex

	conversationID uuid.UUID
	viewerID       uuid.UUID

	entries    []*Entry
	byServerID map[uuid.UUID]*Entry
	byLocalID  map[string]*Entry

	// loadedPages tracks which history pages have been merged so a page
	// is requested at most once per timeline lifetime.
	loadedPages map[int]bool
	hasOlder    bool
	localSeq    uint64
}

// NewTimeline creates an empty timeline for one conversation and viewer
func NewTimeline(conversationID, viewerID uuid.UUID) *Timeline {
	return &Timeline{
		conversationID: conversationID,
		viewerID:       viewerID,
		byServerID:     make(map[uuid.UUID]*Entry),
		byLocalID:      make(map[string]*Entry),
		loadedPages:    make(map[int]bool),
		hasOlder:       true,
	}
}

// AppendProvisional records an optimistic local message and returns its
// entry. The message renders immediately with status sent; confirmation
// or failure arrives later.
func (t *Timeline) AppendProvisional(kind domain.MessageKind, content *string, attachments []*domain.Attachment) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.localSeq++
	entry := &Entry{
		LocalID: fmt.Sprintf("local-%s-%d", t.viewerID, t.localSeq),
		State:   StatePending,
		Message: &domain.Message{
			ConversationID: t.conversationID,
			SenderID:       t.viewerID,
			Kind:           kind,
			Content:        content,
			Attachments:    attachments,
			Status:         domain.StatusSent,
			CreatedAt:      time.Now().UTC(),
		},
	}

	t.byLocalID[entry.LocalID] = entry
	t.entries = append(t.entries, entry)
	return entry
}

// Confirm replaces a provisional entry's message with the server's
// authoritative row. The entry keeps its timeline position; identity and
// ordering now come from the server.
func (t *Timeline) Confirm(localID string, server *domain.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.confirmLocked(localID, server)
}

func (t *Timeline) confirmLocked(localID string, server *domain.Message) bool {
	entry, ok := t.byLocalID[localID]
	if !ok || entry.State == StateConfirmed {
		return false
	}

	entry.Message = server
	entry.State = StateConfirmed
	t.byServerID[server.MessageID] = entry
	t.resortLocked()
	return true
}

// Fail marks a provisional entry as failed. The entry stays in the
// timeline so the viewer can retry or discard it.
func (t *Timeline) Fail(localID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.byLocalID[localID]
	if !ok || entry.State == StateConfirmed {
		return false
	}
	entry.State = StateFailed
	return true
}

// Retry moves a failed entry back to pending and returns its message so
// the caller can re-submit it. Returns nil for unknown or non-failed ids.
func (t *Timeline) Retry(localID string) *domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.byLocalID[localID]
	if !ok || entry.State != StateFailed {
		return nil
	}
	entry.State = StatePending
	return entry.Message
}

// Discard removes a failed provisional entry
func (t *Timeline) Discard(localID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.byLocalID[localID]
	if !ok || entry.State != StateFailed {
		return false
	}

	delete(t.byLocalID, localID)
	for i, e := range t.entries {
		if e == entry {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			break
		}
	}
	return true
}

// ApplyLatest merges the newest history page from a poll. Known server
// messages are refreshed in place (statuses only move forward), unknown
// ones are first matched against pending provisionals before being
// inserted as new. Marks page 1 as loaded.
func (t *Timeline) ApplyLatest(messages []*domain.Message, hasMore bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.loadedPages[1] = true
	if len(t.loadedPages) == 1 {
		// First poll establishes whether older history exists at all.
		t.hasOlder = hasMore
	}
	t.mergeLocked(messages)
}

// MergeOlder merges one older history page and records the pagination
// position. hasMore=false closes the backward walk.
func (t *Timeline) MergeOlder(page int, messages []*domain.Message, hasMore bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.loadedPages[page] = true
	if !hasMore {
		t.hasOlder = false
	}
	t.mergeLocked(messages)
}

// NextOlderPage returns the next page to request when the viewer scrolls
// back, and whether older history remains. A page already merged is never
// handed out again.
func (t *Timeline) NextOlderPage() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.hasOlder {
		return 0, false
	}
	page := 1
	for t.loadedPages[page] {
		page++
	}
	return page, true
}

func (t *Timeline) mergeLocked(messages []*domain.Message) {
	changed := false
	for _, server := range messages {
		if entry, ok := t.byServerID[server.MessageID]; ok {
			// Refresh in place; a poll can only move status forward.
			server.Status = entry.Message.Status.Advance(server.Status)
			entry.Message = server
			continue
		}

		if localID, ok := t.matchProvisionalLocked(server); ok {
			t.confirmLocked(localID, server)
			continue
		}

		entry := &Entry{Message: server, State: StateConfirmed}
		t.byServerID[server.MessageID] = entry
		t.entries = append(t.entries, entry)
		changed = true
	}
	if changed {
		t.resortLocked()
	}
}

// matchProvisionalLocked finds a pending provisional that the server
// message confirms: same sender, same kind and content, created within
// the dedupe window. Prevents a poll racing an append response from
// rendering the same send twice.
func (t *Timeline) matchProvisionalLocked(server *domain.Message) (string, bool) {
	if server.SenderID != t.viewerID {
		return "", false
	}

	for localID, entry := range t.byLocalID {
		if entry.State != StatePending {
			continue
		}
		if entry.Message.Kind != server.Kind {
			continue
		}
		if !contentEqual(entry.Message.Content, server.Content) {
			continue
		}
		delta := server.CreatedAt.Sub(entry.Message.CreatedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta <= constants.ProvisionalDedupeWindow {
			return localID, true
		}
	}
	return "", false
}

func contentEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// resortLocked restores forward chronological order. Confirmed entries
// order by server timestamp with message id as tiebreak; provisionals sort
// by local creation time and always after a confirmed entry with the same
// timestamp.
func (t *Timeline) resortLocked() {
	sort.SliceStable(t.entries, func(i, j int) bool {
		a, b := t.entries[i], t.entries[j]
		if !a.Message.CreatedAt.Equal(b.Message.CreatedAt) {
			return a.Message.CreatedAt.Before(b.Message.CreatedAt)
		}
		if a.Provisional() != b.Provisional() {
			return !a.Provisional()
		}
		return a.Message.MessageID.String() < b.Message.MessageID.String()
	})
}

// Entries returns a snapshot of the timeline in forward chronological order
func (t *Timeline) Entries() []*Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make([]*Entry, len(t.entries))
	copy(snapshot, t.entries)
	return snapshot
}

// UnreadIncoming reports whether the timeline holds confirmed messages from
// the other participant that the viewer has not read yet
func (t *Timeline) UnreadIncoming() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range t.entries {
		if entry.State != StateConfirmed {
			continue
		}
		if entry.Message.SenderID != t.viewerID && entry.Message.Status != domain.StatusRead {
			return true
		}
	}
	return false
}

// MarkIncomingRead applies the local side of a read transition so the view
// updates without waiting for the next poll
func (t *Timeline) MarkIncomingRead() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, entry := range t.entries {
		if entry.State == StateConfirmed && entry.Message.SenderID != t.viewerID {
			entry.Message.Status = entry.Message.Status.Advance(domain.StatusRead)
		}
	}
}
