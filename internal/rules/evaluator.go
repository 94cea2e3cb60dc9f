// Package rules implements the deterministic classification path:
// priority-ordered checks over the static pattern library, first match
// wins, followed by additive spam scoring against a preference-derived
// threshold.
package rules

import (
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
	"github.com/arjun/sms-guard/internal/patterns"
)

const (
	spamKeywordPoints  = 25
	promoKeywordPoints = 15
	suspiciousPoints   = 30
	uppercasePoints    = 20
	exclamationPoints  = 15
	maxScore           = 100
	thresholdFloor     = 10
)

var baseThresholds = map[core.SpamTolerance]int{
	core.ToleranceLow:      30,
	core.ToleranceModerate: 50,
	core.ToleranceHigh:     70,
}

var modeAdjustments = map[core.FilteringMode]int{
	core.FilteringStrict:   -10,
	core.FilteringModerate: 0,
	core.FilteringLenient:  15,
}

// Evaluator is the stateless rule classifier. Safe for concurrent use.
type Evaluator struct {
	lib    *patterns.Library
	logger *zap.Logger
}

// NewEvaluator creates an evaluator over the default pattern library.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	return &Evaluator{
		lib:    patterns.Default(),
		logger: logger,
	}
}

// Evaluate classifies a message by priority-ordered rules:
//  1. trusted-service sender -> INBOX
//  2. known spam-sender prefix -> SPAM
//  3. user-enabled important type keyword match -> INBOX
//  4. additive spam score vs the preference-derived threshold.
//
// Empty or malformed content matches nothing and falls through to
// scoring with score 0.
func (e *Evaluator) Evaluate(sender, content string, prefs core.Preferences) core.RuleResult {
	if e.lib.IsTrustedSender(sender) {
		return core.RuleResult{
			Category: core.CategoryInbox,
			Signals:  []string{"Trusted service sender"},
		}
	}

	if e.lib.HasSpamSenderPrefix(sender) {
		return core.RuleResult{
			Category:  core.CategorySpam,
			SpamScore: maxScore,
			Signals:   []string{"Known spam sender pattern"},
		}
	}

	lower := strings.ToLower(content)
	if cat, signal := e.matchImportantType(sender, lower, prefs); cat != "" {
		return core.RuleResult{
			Category: core.CategoryInbox,
			Signals:  []string{signal},
		}
	}

	score, signals := e.spamScore(sender, content, lower)
	threshold := SpamThreshold(prefs)
	if score >= threshold {
		return core.RuleResult{
			Category:  core.CategorySpam,
			SpamScore: score,
			Signals:   signals,
		}
	}
	return core.RuleResult{
		Category:  core.CategoryNeedsReview,
		SpamScore: score,
		Signals:   signals,
	}
}

// SpamThreshold derives the spam cutoff from the user preferences:
// base threshold by tolerance, adjusted by filtering mode, floored.
func SpamThreshold(prefs core.Preferences) int {
	base, ok := baseThresholds[prefs.SpamTolerance]
	if !ok {
		base = baseThresholds[core.ToleranceModerate]
	}
	adj, ok := modeAdjustments[prefs.FilteringMode]
	if !ok {
		adj = 0
	}
	threshold := base + adj
	if threshold < thresholdFloor {
		threshold = thresholdFloor
	}
	return threshold
}

func (e *Evaluator) matchImportantType(sender, lower string, prefs core.Preferences) (core.MessageType, string) {
	ordered := []core.MessageType{
		core.TypeOTP, core.TypeBanking, core.TypeEcommerce,
		core.TypeTravel, core.TypeUtilities,
	}
	for _, t := range ordered {
		if !prefs.ImportantTypes[t] {
			continue
		}
		for _, kw := range e.lib.CategoryKeywords[string(t)] {
			if strings.Contains(lower, kw) {
				return t, fmt.Sprintf("Matches important type: %s", t)
			}
		}
	}
	// Personal-contact heuristic: a plain phone number with no
	// promotional vocabulary reads as a person, not a campaign.
	if prefs.ImportantTypes[core.TypePersonal] && e.lib.IsPhoneNumber(sender) {
		for _, kw := range e.lib.PromoKeywords {
			if strings.Contains(lower, kw) {
				return "", ""
			}
		}
		return core.TypePersonal, "Personal contact heuristic"
	}
	return "", ""
}

func (e *Evaluator) spamScore(sender, content, lower string) (int, []string) {
	score := 0
	var signals []string

	for _, kw := range e.lib.SpamKeywords {
		if strings.Contains(lower, kw) {
			score += spamKeywordPoints
			signals = append(signals, "Spam keyword: "+kw)
		}
	}
	if e.lib.HasShortLink(lower) {
		score += spamKeywordPoints
		signals = append(signals, "Shortened link")
	}
	for _, kw := range e.lib.PromoKeywords {
		if strings.Contains(lower, kw) {
			score += promoKeywordPoints
			signals = append(signals, "Promotional keyword: "+kw)
		}
	}
	if e.lib.IsSuspiciousSender(sender) {
		score += suspiciousPoints
		signals = append(signals, "Suspicious sender")
	}
	if upper, total := caseCounts(content); len(content) > 10 && total > 0 && float64(upper)/float64(total) > 0.7 {
		score += uppercasePoints
		signals = append(signals, "Excessive uppercase")
	}
	if strings.Count(content, "!") > 2 {
		score += exclamationPoints
		signals = append(signals, "Excessive exclamation marks")
	}

	if score > maxScore {
		score = maxScore
	}
	return score, signals
}

// caseCounts returns the number of uppercase letters in s and the
// total character count. The ratio is over all characters, so
// digit-heavy content does not read as shouting.
func caseCounts(s string) (upper, total int) {
	for _, r := range s {
		total++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return upper, total
}
