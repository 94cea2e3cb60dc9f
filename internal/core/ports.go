package core

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrModelDisabled is returned by the no-op model classifier.
	ErrModelDisabled = errors.New("model classifier disabled")
)

// RuleEvaluator is the deterministic keyword/regex classification path.
type RuleEvaluator interface {
	// Evaluate classifies by priority-ordered rules. It always
	// terminates and never fails; malformed content scores zero.
	Evaluate(sender, content string, prefs Preferences) RuleResult
}

// ContextualClassifier refines a rule result using recent history from
// the same sender and produces the ordered reasons list.
type ContextualClassifier interface {
	// Classify must be a pure function of its inputs when mutate is
	// false; repeated calls return identical output.
	Classify(msg *Message, rule RuleResult, history []*Message, prefs Preferences, mutate bool) *ClassificationResult

	// Reinforce strengthens the learned weight of category for sender.
	Reinforce(sender string, category Category)
}

// ModelClassifier is a pluggable statistical classifier. Implementations
// must respect ctx cancellation; the orchestrator enforces a hard
// deadline and discards late results.
type ModelClassifier interface {
	Classify(ctx context.Context, content string) (*ModelPrediction, error)
	Name() string
}

// ReputationStore holds learned per-sender state. The three learning
// mutations are saturating, O(1), and atomic per row.
type ReputationStore interface {
	// Get returns ErrNotFound for senders never learned.
	Get(ctx context.Context, sender string) (*SenderReputation, error)

	// LearnFromImportanceMarking pins the sender to the inbox and
	// raises the importance score.
	LearnFromImportanceMarking(ctx context.Context, sender string) error

	// LearnFromSpamMarking flags the sender auto-spam and raises the
	// spam score.
	LearnFromSpamMarking(ctx context.Context, sender string) error

	// LearnFromInboxMove nudges importance up and spam down without
	// setting either hard flag.
	LearnFromInboxMove(ctx context.Context, sender string) error
}

// ResultCache is a bounded LRU of classification results with per-entry
// TTL. Lost updates under concurrent stores for the same key are
// acceptable; corruption is not.
type ResultCache interface {
	Lookup(fingerprint string) (*ClassificationResult, bool)
	Store(fingerprint string, result *ClassificationResult, ttl time.Duration)
	Delete(fingerprint string)
}

// MessageStore is the persistence collaborator. The engine uses it for
// recent-history queries, audit records, and correction/explain lookups.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *Message, category Category) (string, error)
	GetMessageByID(ctx context.Context, id string) (*Message, error)
	RecentFromSender(ctx context.Context, sender string, limit int) ([]*Message, error)
	InsertAudit(ctx context.Context, audit *ClassificationAudit) error
	LatestAuditForMessage(ctx context.Context, id string) (*ClassificationAudit, error)
}
