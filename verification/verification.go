// Package verification owns the case trust lifecycle: attestations from
// family, police and NGOs, explicit resolutions, sightings and the single
// rule that derives a case status from those facts.
package verification

import (
	"time"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/models"
)

// Source is an attestation origin
type Source string

// Attestation sources
const (
	SourceFamily Source = "family"
	SourcePolice Source = "police"
	SourceNGO    Source = "ngo"
)

// ParseSource validates a client supplied source
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceFamily, SourcePolice, SourceNGO:
		return Source(s), nil
	}
	return "", apperr.Validation("unknown attestation source %q", s)
}

// Privileged reports whether the source needs an authenticated officer or NGO
func (s Source) Privileged() bool {
	return s == SourcePolice || s == SourceNGO
}

func (s Source) field() string {
	switch s {
	case SourcePolice:
		return "policeConfirmed"
	case SourceNGO:
		return "ngoConfirmed"
	default:
		return "familyAttestation"
	}
}

// Recompute derives the status of c. An explicit resolution wins, then the
// moderation flag, then any attestation.
func Recompute(c models.Case) models.Status {
	switch c.Resolution {
	case models.ResolutionClosed:
		return models.StatusClosed
	case models.ResolutionFound:
		return models.StatusFound
	}
	if c.Moderation.Flagged {
		return models.StatusFlagged
	}
	if c.Verification.Any() {
		return models.StatusVerified
	}
	return models.StatusUnverified
}

// Attest sets the flag for source. It returns false when the flag was
// already set, in which case c is left untouched.
func Attest(c *models.Case, source Source, actor string, at time.Time) (bool, error) {
	if c.Resolution == models.ResolutionClosed {
		return false, apperr.Transition("attest", string(models.StatusClosed))
	}

	flag := &c.Verification.FamilyAttestation
	switch source {
	case SourcePolice:
		flag = &c.Verification.PoliceConfirmed
	case SourceNGO:
		flag = &c.Verification.NgoConfirmed
	case SourceFamily:
	default:
		return false, apperr.Validation("unknown attestation source %q", source)
	}
	if *flag {
		return false, nil
	}
	*flag = true

	c.Timeline = append(c.Timeline, models.TimelineEvent{
		At:    at,
		Type:  models.EventAttested,
		Field: source.field(),
		From:  "false",
		To:    "true",
		Actor: actor,
	})
	return true, nil
}

// MarkFound records that the person was found. Cases already resolved
// cannot be marked found again.
func MarkFound(c *models.Case, actor, note string, at time.Time) error {
	if c.Resolution != models.ResolutionNone {
		return apperr.Transition("mark found", string(Recompute(*c)))
	}
	c.Resolution = models.ResolutionFound
	c.SubStatus = ""
	c.Timeline = append(c.Timeline, models.TimelineEvent{
		At:    at,
		Type:  models.EventMarkedFound,
		Field: "resolution",
		To:    string(models.ResolutionFound),
		Actor: actor,
		Note:  note,
	})
	return nil
}

// MarkClosed closes the case. A found case may still be closed.
func MarkClosed(c *models.Case, actor, note string, at time.Time) error {
	if c.Resolution == models.ResolutionClosed {
		return apperr.Transition("close", string(models.StatusClosed))
	}
	from := c.Resolution
	c.Resolution = models.ResolutionClosed
	c.SubStatus = ""
	c.Timeline = append(c.Timeline, models.TimelineEvent{
		At:    at,
		Type:  models.EventMarkedClosed,
		Field: "resolution",
		From:  string(from),
		To:    string(models.ResolutionClosed),
		Actor: actor,
		Note:  note,
	})
	return nil
}

// RecordSighting notes a reported sighting on an open case
func RecordSighting(c *models.Case, location, note, actor string, at time.Time) error {
	if c.Resolution != models.ResolutionNone {
		return apperr.Transition("report a sighting on", string(Recompute(*c)))
	}
	c.SubStatus = models.StatusSighting
	c.Timeline = append(c.Timeline, models.TimelineEvent{
		At:    at,
		Type:  models.EventSighting,
		Field: "lastSeenLocation",
		To:    location,
		Actor: actor,
		Note:  note,
	})
	return nil
}
