package utils

import (
	"hash/fnv"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// TextProcessor normalizes senders and content and derives cache
// fingerprints. Normalization is idempotent: applying it twice yields
// the same value, so repeated lookups never create duplicate keys.
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// NormalizeSender canonicalizes a sender identity: trimmed, uppercased,
// inner whitespace collapsed to a single space.
func (tp *TextProcessor) NormalizeSender(sender string) string {
	return collapseSpaces(strings.ToUpper(strings.TrimSpace(sender)))
}

// NormalizeContent canonicalizes message content for fingerprinting:
// trimmed, lowercased, whitespace runs collapsed.
func (tp *TextProcessor) NormalizeContent(content string) string {
	return collapseSpaces(strings.ToLower(strings.TrimSpace(content)))
}

// Fingerprint returns a stable hash over the normalized sender and
// content, used as the result cache key.
func (tp *TextProcessor) Fingerprint(sender, content string) string {
	h := fnv.New64a()
	h.Write([]byte(tp.NormalizeSender(sender)))
	h.Write([]byte{0})
	h.Write([]byte(tp.NormalizeContent(content)))
	return strconv.FormatUint(h.Sum64(), 16)
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
