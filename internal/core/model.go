package core

import (
	"time"
)

// Category is the closed set of classification outcomes. Every
// classification produces exactly one of these.
type Category string

const (
	CategoryInbox       Category = "INBOX"
	CategorySpam        Category = "SPAM"
	CategoryNeedsReview Category = "NEEDS_REVIEW"
)

// FilteringMode controls how aggressively the rule evaluator flags spam.
type FilteringMode string

const (
	FilteringStrict   FilteringMode = "strict"
	FilteringModerate FilteringMode = "moderate"
	FilteringLenient  FilteringMode = "lenient"
)

// SpamTolerance is the user's tolerance for promotional content.
type SpamTolerance string

const (
	ToleranceLow      SpamTolerance = "low"
	ToleranceModerate SpamTolerance = "moderate"
	ToleranceHigh     SpamTolerance = "high"
)

// MessageType identifies a category of message the user considers important.
type MessageType string

const (
	TypeOTP       MessageType = "otp"
	TypeBanking   MessageType = "banking"
	TypeEcommerce MessageType = "ecommerce"
	TypeTravel    MessageType = "travel"
	TypeUtilities MessageType = "utilities"
	TypePersonal  MessageType = "personal"
)

// Preferences is the fixed user configuration passed by value into the
// rule evaluator.
type Preferences struct {
	FilteringMode     FilteringMode
	SpamTolerance     SpamTolerance
	ImportantTypes    map[MessageType]bool
	LearnFromFeedback bool
}

// DefaultPreferences returns moderate filtering with all important
// message types enabled.
func DefaultPreferences() Preferences {
	return Preferences{
		FilteringMode: FilteringModerate,
		SpamTolerance: ToleranceModerate,
		ImportantTypes: map[MessageType]bool{
			TypeOTP:       true,
			TypeBanking:   true,
			TypeEcommerce: true,
			TypeTravel:    true,
			TypeUtilities: true,
			TypePersonal:  true,
		},
		LearnFromFeedback: true,
	}
}

// Message represents an incoming SMS. Immutable per classification call;
// supplied by the caller each time.
type Message struct {
	Sender          string
	Content         string
	TimestampMillis int64
}

// RuleResult is the output of the deterministic rule evaluator.
type RuleResult struct {
	Category  Category
	SpamScore int // 0..100
	Signals   []string
}

// ClassificationResult is the final decision for a message.
type ClassificationResult struct {
	Category   Category
	Confidence float32
	// Reasons is ordered: guardrail reasons first, then sender-override
	// reasons, then contextual/rule reasons.
	Reasons    []string
	ModelUsed  string
	AnalyzedAt time.Time
}

// ModelPrediction is the output contract of a pluggable model classifier.
type ModelPrediction struct {
	Category    Category
	Confidence  float32
	Explanation string
}

// SenderReputation holds learned per-sender flags and decaying scores.
// Keyed by normalized sender; exactly one row per sender.
type SenderReputation struct {
	Sender            string
	PinnedToInbox     bool
	AutoSpam          bool
	ImportanceScore   float32 // [0,1]
	SpamScore         float32 // [0,1]
	MessageCount      int64
	LastSeenMillis    int64
	LastUpdatedMillis int64
}

// CacheEntry is a cached classification keyed by content fingerprint.
type CacheEntry struct {
	Fingerprint string
	Result      ClassificationResult
	ExpiresAt   time.Time
}

// ClassificationAudit is an append-only record of a decision.
type ClassificationAudit struct {
	MessageID  string
	Category   Category
	Confidence float32
	Reasons    []string
	CreatedAt  time.Time
}

// BlendConfig holds the thresholds used when combining model and
// rule/contextual confidence.
type BlendConfig struct {
	HighConfidence     float32
	ModerateConfidence float32
	ModelWeight        float32
	AgreementBoost     float32
}

// DefaultBlendConfig returns the contract thresholds.
func DefaultBlendConfig() BlendConfig {
	return BlendConfig{
		HighConfidence:     0.85,
		ModerateConfidence: 0.6,
		ModelWeight:        0.6,
		AgreementBoost:     0.1,
	}
}
