// Package contextual refines rule results with recent conversation
// history for the same sender and maintains transient per-sender
// category weights learned from feedback.
package contextual

import (
	"sync"

	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
)

const (
	alpha       = 0.1  // EMA learning rate
	decay       = 0.95 // applied to non-reinforced categories
	agreeBoost  = 0.05 // per agreeing recent message
	agreeCap    = 0.15
	weightBoost = 0.05 // applied when the learned weight is strong
	weightFloor = 0.6
	maxHistory  = 5
)

// Classifier adjusts rule confidence using sender history and learned
// weights. The weight state is shared; all access goes through mu.
type Classifier struct {
	rules  core.RuleEvaluator
	logger *zap.Logger

	mu      sync.RWMutex
	weights map[string]map[core.Category]float64
}

// NewClassifier creates a contextual classifier that re-evaluates
// history through the given rule evaluator.
func NewClassifier(rules core.RuleEvaluator, logger *zap.Logger) *Classifier {
	return &Classifier{
		rules:   rules,
		logger:  logger,
		weights: make(map[string]map[core.Category]float64),
	}
}

// Classify produces the final rule-path result. When mutate is false
// the call is a pure function of its inputs: no counter, cache, or
// weight is touched, and repeated calls return identical output.
func (c *Classifier) Classify(msg *core.Message, rule core.RuleResult, history []*core.Message, prefs core.Preferences, mutate bool) *core.ClassificationResult {
	confidence := baseConfidence(rule)
	reasons := make([]string, 0, len(rule.Signals)+2)
	reasons = append(reasons, rule.Signals...)
	if len(rule.Signals) == 0 {
		reasons = append(reasons, "No strong signals, needs review")
	}

	if agree := c.historyAgreement(msg.Sender, rule, history, prefs); agree > 0 {
		boost := float32(agree) * agreeBoost
		if boost > agreeCap {
			boost = agreeCap
		}
		confidence += boost
		reasons = append(reasons, "Consistent with recent messages from sender")
	}

	if c.weightFor(msg.Sender, rule.Category) >= weightFloor {
		confidence += weightBoost
		reasons = append(reasons, "Learned sender preference")
	}

	if confidence > 0.99 {
		confidence = 0.99
	}

	if mutate {
		c.reinforce(msg.Sender, rule.Category, alpha)
	}

	return &core.ClassificationResult{
		Category:   rule.Category,
		Confidence: confidence,
		Reasons:    reasons,
		ModelUsed:  "rules",
	}
}

// Reinforce strengthens the learned weight of category for sender.
// Used by the correction flow; applies the same EMA rule at full signal.
func (c *Classifier) Reinforce(sender string, category core.Category) {
	c.reinforce(sender, category, 3*alpha)
}

// WeightFor exposes the current learned weight, mainly for tests and
// the CLI summary.
func (c *Classifier) WeightFor(sender string, category core.Category) float64 {
	return c.weightFor(sender, category)
}

func (c *Classifier) historyAgreement(sender string, rule core.RuleResult, history []*core.Message, prefs core.Preferences) int {
	agree := 0
	for i, prev := range history {
		if i >= maxHistory {
			break
		}
		prevRule := c.rules.Evaluate(sender, prev.Content, prefs)
		if prevRule.Category == rule.Category {
			agree++
		}
	}
	return agree
}

func (c *Classifier) weightFor(sender string, category core.Category) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.weights[sender][category]
}

// reinforce applies newWeight = oldWeight*(1-rate) + rate to the given
// category and decays the weights of all other categories.
func (c *Classifier) reinforce(sender string, category core.Category, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byCat, ok := c.weights[sender]
	if !ok {
		byCat = make(map[core.Category]float64, 3)
		c.weights[sender] = byCat
	}
	for _, cat := range []core.Category{core.CategoryInbox, core.CategorySpam, core.CategoryNeedsReview} {
		if cat == category {
			byCat[cat] = byCat[cat]*(1-rate) + rate
		} else {
			byCat[cat] *= decay
		}
	}
}

func baseConfidence(rule core.RuleResult) float32 {
	switch rule.Category {
	case core.CategoryInbox:
		return 0.85
	case core.CategorySpam:
		conf := 0.6 + float32(rule.SpamScore)/400
		if conf > 0.85 {
			conf = 0.85
		}
		return conf
	default:
		return 0.45
	}
}
