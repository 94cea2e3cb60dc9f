// Package store provides MessageStore adapters: the persistence
// collaborator holding messages and append-only classification audits.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
	"github.com/arjun/sms-guard/internal/utils"
)

// MemoryStore is an in-memory MessageStore, used for tests and for
// hosts that persist messages themselves. Rows are keyed by the
// normalized sender form.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string]*core.Message
	bySender map[string][]string // normalized sender -> message ids, insertion order
	audits   map[string][]*core.ClassificationAudit
	text     *utils.TextProcessor
	logger   *zap.Logger
}

// NewMemoryStore creates a new in-memory message store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		messages: make(map[string]*core.Message),
		bySender: make(map[string][]string),
		audits:   make(map[string][]*core.ClassificationAudit),
		text:     utils.NewTextProcessor(logger),
		logger:   logger,
	}
}

// InsertMessage stores the message and returns its generated id.
func (s *MemoryStore) InsertMessage(ctx context.Context, msg *core.Message, category core.Category) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	copied := *msg
	copied.Sender = s.text.NormalizeSender(msg.Sender)
	s.messages[id] = &copied
	s.bySender[copied.Sender] = append(s.bySender[copied.Sender], id)
	return id, nil
}

// GetMessageByID returns the stored message, or ErrNotFound.
func (s *MemoryStore) GetMessageByID(ctx context.Context, id string) (*core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	copied := *msg
	return &copied, nil
}

// RecentFromSender returns up to limit messages from sender, newest
// first by timestamp.
func (s *MemoryStore) RecentFromSender(ctx context.Context, sender string, limit int) ([]*core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bySender[s.text.NormalizeSender(sender)]
	msgs := make([]*core.Message, 0, len(ids))
	for _, id := range ids {
		copied := *s.messages[id]
		msgs = append(msgs, &copied)
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].TimestampMillis > msgs[j].TimestampMillis
	})
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

// InsertAudit appends an audit record for the message.
func (s *MemoryStore) InsertAudit(ctx context.Context, audit *core.ClassificationAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *audit
	copied.Reasons = append([]string(nil), audit.Reasons...)
	s.audits[audit.MessageID] = append(s.audits[audit.MessageID], &copied)
	return nil
}

// LatestAuditForMessage returns the newest audit record for the
// message, or ErrNotFound.
func (s *MemoryStore) LatestAuditForMessage(ctx context.Context, id string) (*core.ClassificationAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.audits[id]
	if len(records) == 0 {
		return nil, core.ErrNotFound
	}
	copied := *records[len(records)-1]
	return &copied, nil
}
