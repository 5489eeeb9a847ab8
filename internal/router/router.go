// Package router classifies incoming chat messages and picks exactly one
// handling branch for each.
package router

import (
	"regexp"
	"strings"

	"wellness-companion/internal/orchestrator"
)

// Consent is the classification of a reply against the consent whitelist.
type Consent int

const (
	ConsentUnrecognized Consent = iota
	ConsentAffirmative
	ConsentNegative
)

// Branch names the single handler a message is routed to.
type Branch int

const (
	BranchDayConsent Branch = iota
	BranchBatchConsent
	BranchConsentRetry
	BranchPlanning
	BranchSupport
)

// Decision is the routing outcome for one message.
type Decision struct {
	Branch  Branch
	Consent Consent
}

var (
	affirmativeWords = map[string]bool{
		"y": true, "yes": true, "approve": true, "ok": true, "okay": true, "sure": true,
	}
	negativeWords = map[string]bool{
		"n": true, "no": true, "cancel": true, "skip": true,
	}
	schedulingIntentRe = regexp.MustCompile(`(?i)\b(plan|schedule|add|block|book|insert)\b`)
)

// ClassifyConsent matches a reply against the consent whitelist: exact,
// case-insensitive, surrounding whitespace ignored. Anything else is
// unrecognized. Pure.
func ClassifyConsent(text string) Consent {
	word := strings.ToLower(strings.TrimSpace(text))
	switch {
	case affirmativeWords[word]:
		return ConsentAffirmative
	case negativeWords[word]:
		return ConsentNegative
	default:
		return ConsentUnrecognized
	}
}

// IsSchedulingIntent reports whether the message lexically asks for
// planning (word-boundary, case-insensitive keyword match). Pure.
func IsSchedulingIntent(text string) bool {
	return schedulingIntentRe.MatchString(text)
}

// Route picks the handling branch for a message given the current review
// state. Priority is fixed: an awaited day decision first, then the legacy
// batch consent, then scheduling intent, then general support. A scheduling
// keyword inside an awaited consent reply never escapes to planning.
func Route(status orchestrator.Status, text string) Decision {
	switch status {
	case orchestrator.StatusDayReview:
		c := ClassifyConsent(text)
		if c == ConsentUnrecognized {
			return Decision{Branch: BranchConsentRetry}
		}
		return Decision{Branch: BranchDayConsent, Consent: c}
	case orchestrator.StatusBatchConsent:
		c := ClassifyConsent(text)
		if c == ConsentUnrecognized {
			return Decision{Branch: BranchConsentRetry}
		}
		return Decision{Branch: BranchBatchConsent, Consent: c}
	}

	if IsSchedulingIntent(text) {
		return Decision{Branch: BranchPlanning}
	}
	return Decision{Branch: BranchSupport}
}
