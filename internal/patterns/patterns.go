// Package patterns holds the static, versioned signal tables used by
// the rule evaluator: OTP regexes, keyword sets per category, short-link
// domains, and sender-name patterns. Pure data, no state; changes here
// are data updates, not logic changes.
package patterns

import (
	"regexp"
	"strings"
)

// Version of the static pattern tables.
const Version = "2025.08"

// Library bundles the compiled pattern tables.
type Library struct {
	OTP                []*regexp.Regexp
	ShortLinkDomains   []string
	SpamKeywords       []string
	PromoKeywords      []string
	CategoryKeywords   map[string][]string
	TrustedSenders     []*regexp.Regexp
	SpamSenderPrefixes []string
	SuspiciousSenders  []*regexp.Regexp
	PhoneNumber        *regexp.Regexp
}

var defaultLibrary = &Library{
	// Digit runs of 4-8 co-located with verification vocabulary,
	// either order.
	OTP: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d{4,8}\b.{0,40}\b(otp|one[- ]?time|verification|verify|auth(entication)? code|passcode|security code)`),
		regexp.MustCompile(`(?i)\b(otp|one[- ]?time password|verification code|security code|passcode)\b.{0,40}\b\d{4,8}\b`),
		regexp.MustCompile(`(?i)\b\d{4,8}\s+is your\b`),
	},

	ShortLinkDomains: []string{
		"bit.ly", "tinyurl.com", "goo.gl", "t.co", "cutt.ly",
		"rb.gy", "tiny.cc", "is.gd", "ow.ly",
	},

	SpamKeywords: []string{
		"winner", "congratulations", "prize", "lottery", "jackpot",
		"claim", "won", "win", "selected", "lucky", "reward",
		"free", "urgent", "guaranteed", "risk-free", "click here",
		"act now", "limited time", "last chance", "cash prize",
		"earn money", "double your",
	},

	PromoKeywords: []string{
		"offer", "sale", "discount", "deal", "cashback", "coupon",
		"promo", "% off", "flat off", "subscribe", "unsubscribe",
		"buy now", "shop now", "exclusive", "mega", "bumper", "hurry",
		"new collection",
	},

	CategoryKeywords: map[string][]string{
		"otp": {
			"otp", "one time password", "verification code",
			"security code", "passcode", "do not share",
		},
		"banking": {
			"credited", "debited", "a/c", "acct", "account balance",
			"txn", "transaction", "upi", "neft", "imps", "rtgs",
			"withdrawn", "deposited", "available balance", "emi due",
		},
		"ecommerce": {
			"order", "delivered", "shipped", "out for delivery",
			"dispatched", "tracking", "refund initiated", "return pickup",
		},
		"travel": {
			"pnr", "flight", "train", "boarding", "departure",
			"check-in", "ticket confirmed", "seat", "gate",
		},
		"utilities": {
			"bill", "recharge", "electricity", "broadband", "data pack",
			"due date", "validity", "plan expires", "meter reading",
		},
	},

	// Official and trusted-service sender headers; matched against the
	// normalized sender, optional two-letter route prefix.
	TrustedSenders: []*regexp.Regexp{
		regexp.MustCompile(`^([A-Z]{2}-)?(HDFCBK|ICICIB|SBIINB|AXISBK|KOTAKB|PNBSMS)\b`),
		regexp.MustCompile(`^([A-Z]{2}-)?(UIDAI|EPFOHO|INCTAX|NSDLEG|GOVTIN|COWINI)\b`),
		regexp.MustCompile(`^([A-Z]{2}-)?(IRCTCS|AIRIND|INDIGO)\b`),
	},

	// Header bodies that identify known junk routes (checked after the
	// route prefix is stripped).
	SpamSenderPrefixes: []string{
		"PROMO", "OFFER", "WIN", "LOTTO", "LUCKY", "CASHWN", "DEALS",
	},

	// Numeric junk headers and non-local international numbers.
	SuspiciousSenders: []*regexp.Regexp{
		regexp.MustCompile(`^[A-Z]{2}-\d+$`),
		regexp.MustCompile(`^\+\d{8,15}$`),
	},

	// Plain local phone numbers, used by the personal-contact heuristic.
	PhoneNumber: regexp.MustCompile(`^(\+91)?[6-9]\d{9}$`),
}

// Default returns the shared pattern library.
func Default() *Library {
	return defaultLibrary
}

// MatchesOTP reports whether content contains an OTP-style code.
func (l *Library) MatchesOTP(content string) bool {
	for _, re := range l.OTP {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

// IsTrustedSender reports whether sender matches a trusted-service or
// official pattern. Sender must already be normalized.
func (l *Library) IsTrustedSender(sender string) bool {
	for _, re := range l.TrustedSenders {
		if re.MatchString(sender) {
			return true
		}
	}
	return false
}

// HasSpamSenderPrefix reports whether the sender header, with any
// two-letter route prefix stripped, starts with a known junk prefix.
func (l *Library) HasSpamSenderPrefix(sender string) bool {
	body := sender
	if len(body) > 3 && body[2] == '-' {
		body = body[3:]
	}
	for _, p := range l.SpamSenderPrefixes {
		if strings.HasPrefix(body, p) {
			return true
		}
	}
	return false
}

// IsSuspiciousSender reports whether the sender looks like a junk route
// or a non-local international number.
func (l *Library) IsSuspiciousSender(sender string) bool {
	if l.PhoneNumber.MatchString(sender) {
		return false
	}
	for _, re := range l.SuspiciousSenders {
		if re.MatchString(sender) {
			return true
		}
	}
	return false
}

// HasShortLink reports whether content references a link-shortener domain.
func (l *Library) HasShortLink(content string) bool {
	lower := strings.ToLower(content)
	for _, d := range l.ShortLinkDomains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

// IsPhoneNumber reports whether sender is a plain local phone number.
func (l *Library) IsPhoneNumber(sender string) bool {
	return l.PhoneNumber.MatchString(sender)
}
