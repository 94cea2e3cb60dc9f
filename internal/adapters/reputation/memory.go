// Package reputation provides SenderReputation store adapters. All
// mutations are saturating, O(1), and atomic per row.
package reputation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
)

const scoreCeiling = 0.95

// MemoryStore is an in-memory ReputationStore. Lock granularity is per
// row: the outer lock only guards the map, so mutations for different
// senders do not serialize each other.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[string]*row
	logger *zap.Logger
	now    func() int64
}

type row struct {
	mu  sync.Mutex
	rep core.SenderReputation
}

// NewMemoryStore creates a new in-memory reputation store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		rows:   make(map[string]*row),
		logger: logger,
		now:    func() int64 { return time.Now().UnixMilli() },
	}
}

// Get returns the learned state for sender, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, sender string) (*core.SenderReputation, error) {
	s.mu.RLock()
	r, ok := s.rows[sender]
	s.mu.RUnlock()
	if !ok {
		return nil, core.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rep := r.rep
	return &rep, nil
}

// LearnFromImportanceMarking pins the sender and raises importance.
func (s *MemoryStore) LearnFromImportanceMarking(ctx context.Context, sender string) error {
	s.mutate(sender, func(rep *core.SenderReputation) {
		rep.PinnedToInbox = true
		rep.ImportanceScore = saturate(rep.ImportanceScore + 0.3)
	})
	return nil
}

// LearnFromSpamMarking flags the sender auto-spam and raises spam score.
func (s *MemoryStore) LearnFromSpamMarking(ctx context.Context, sender string) error {
	s.mutate(sender, func(rep *core.SenderReputation) {
		rep.AutoSpam = true
		rep.SpamScore = saturate(rep.SpamScore + 0.5)
	})
	return nil
}

// LearnFromInboxMove nudges importance up and spam down.
func (s *MemoryStore) LearnFromInboxMove(ctx context.Context, sender string) error {
	s.mutate(sender, func(rep *core.SenderReputation) {
		rep.ImportanceScore = saturate(rep.ImportanceScore + 0.1)
		rep.SpamScore = rep.SpamScore - 0.1
		if rep.SpamScore < 0 {
			rep.SpamScore = 0
		}
		// An explicit inbox move clears the auto-spam flag.
		rep.AutoSpam = false
	})
	return nil
}

// Len returns the number of learned senders.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *MemoryStore) mutate(sender string, apply func(*core.SenderReputation)) {
	r := s.rowFor(sender)
	r.mu.Lock()
	defer r.mu.Unlock()

	apply(&r.rep)
	now := s.now()
	r.rep.MessageCount++
	r.rep.LastSeenMillis = now
	r.rep.LastUpdatedMillis = now
}

func (s *MemoryStore) rowFor(sender string) *row {
	s.mu.RLock()
	r, ok := s.rows[sender]
	s.mu.RUnlock()
	if ok {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok = s.rows[sender]; ok {
		return r
	}
	r = &row{rep: core.SenderReputation{Sender: sender}}
	s.rows[sender] = r
	return r
}

func saturate(score float32) float32 {
	if score > scoreCeiling {
		return scoreCeiling
	}
	return score
}
