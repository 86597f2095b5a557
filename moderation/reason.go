package moderation

import (
	"strings"

	"github.com/Rhejna/missing-person-app/apperr"
)

// Reason is why a community member reported a case or comment
type Reason string

// Report reasons
const (
	ReasonFakeOrMisleading   Reason = "fake_or_misleading"
	ReasonAlreadyFound       Reason = "already_found"
	ReasonWrongInformation   Reason = "wrong_information"
	ReasonSuspiciousActivity Reason = "suspicious_activity"
	ReasonOther              Reason = "other"
)

// Reasons lists every accepted reason in display order
var Reasons = []Reason{
	ReasonFakeOrMisleading,
	ReasonAlreadyFound,
	ReasonWrongInformation,
	ReasonSuspiciousActivity,
	ReasonOther,
}

// ParseReason accepts either the reason code or the label shown in the
// report dialog ("Fake or misleading", "Already found", ...).
func ParseReason(s string) (Reason, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return "", apperr.Validation("report reason is required")
	}
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, r := range Reasons {
		if Reason(norm) == r {
			return r, nil
		}
	}
	return "", apperr.Validation("unknown report reason %q", s)
}
