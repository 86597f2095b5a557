// Package store persists cases and comments. Every case write goes through
// Update, which runs the caller's mutation on a private copy, re-derives the
// status and only then publishes the new version.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Rhejna/missing-person-app/models"
	"github.com/Rhejna/missing-person-app/verification"
)

// ErrNoChange may be returned by an update callback to abandon the write
// without error; Update then returns the stored value unchanged.
var ErrNoChange = errors.New("no change")

// CaseStore persists cases
type CaseStore interface {
	Create(ctx context.Context, draft models.CaseDraft) (models.Case, error)
	Get(ctx context.Context, id string) (models.Case, error)
	Update(ctx context.Context, id string, fn func(*models.Case) error) (models.Case, error)
	List(ctx context.Context, filter models.CaseFilter) ([]models.Case, error)
}

// CaseGetter is the read side of a CaseStore
type CaseGetter interface {
	Get(ctx context.Context, id string) (models.Case, error)
}

// CommentStore persists comments
type CommentStore interface {
	Add(ctx context.Context, caseID, author, content string, isOfficer bool) (models.Comment, error)
	Get(ctx context.Context, id string) (models.Comment, error)
	Update(ctx context.Context, id string, fn func(*models.Comment) error) (models.Comment, error)
	List(ctx context.Context, caseID string, includeModerated bool) ([]models.Comment, error)
	Count(ctx context.Context, caseID string) (int, error)
}

// Sequencer hands out the next number for a key
type Sequencer interface {
	Next(ctx context.Context, key string) (int64, error)
}

// Options configures id and case number assignment
type Options struct {
	Prefix string
	// Year overrides the year used in case numbers; zero uses the creation date
	Year int
	Now  func() time.Time
	IDs  func() string
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = "MISS"
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.IDs == nil {
		o.IDs = uuid.NewString
	}
	return o
}

func (o Options) year(at time.Time) int {
	if o.Year > 0 {
		return o.Year
	}
	return at.Year()
}

// CaseNumber formats a case number like MISS-2026-0042
func CaseNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}

func sequenceKey(prefix string, year int) string {
	return fmt.Sprintf("%s-%d", prefix, year)
}

// newCase builds the initial record for a draft
func newCase(o Options, draft models.CaseDraft, number string, at time.Time) models.Case {
	c := models.Case{
		ID:          o.IDs(),
		CaseNumber:  number,
		FullName:    draft.FullName,
		Age:         draft.Age,
		Description: draft.Description,
		LastSeen:    draft.LastSeen,
		LastSeenAt:  draft.LastSeenAt,
		PhotoRef:    draft.PhotoRef,
		Reporter:    draft.Reporter,
		Moderation:  models.Moderation{Reasons: []string{}},
		Timeline: []models.TimelineEvent{{
			At:    at,
			Type:  models.EventSubmitted,
			To:    string(models.StatusUnverified),
			Actor: draft.Reporter.Name,
		}},
		CreatedAt: at,
		UpdatedAt: at,
		Version:   1,
	}
	if draft.Point != nil {
		p := *draft.Point
		c.Point = &p
	}
	c.Status = verification.Recompute(c)
	return c
}

// finalize re-derives the status after a mutation and bumps the version
func finalize(c *models.Case, prev models.Status, at time.Time) {
	next := verification.Recompute(*c)
	if next != prev {
		c.Timeline = append(c.Timeline, models.TimelineEvent{
			At:    at,
			Type:  models.EventStatusChanged,
			Field: "status",
			From:  string(prev),
			To:    string(next),
		})
	}
	c.Status = next
	c.UpdatedAt = at
	c.Version++
}
