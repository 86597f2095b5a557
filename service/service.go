// Package service is the boundary API over the case and comment stores, the
// verification and moderation engines and the authority resolver. Every
// case mutation runs under a per-case lock and is announced to the live
// feed and, when the status moved, to the reporter.
package service

import (
	"context"
	"time"

	"github.com/Rhejna/missing-person-app/logging"
	"github.com/Rhejna/missing-person-app/models"
	"github.com/Rhejna/missing-person-app/moderation"
	"github.com/Rhejna/missing-person-app/proximity"
	"github.com/Rhejna/missing-person-app/store"
)

// Notifier keeps the reporter of a case informed
type Notifier interface {
	CaseSubmitted(ctx context.Context, c models.Case) error
	StatusChanged(ctx context.Context, c models.Case, from models.Status) error
}

// Publisher fans timeline events out to live subscribers
type Publisher interface {
	Publish(caseID string, ev models.TimelineEvent)
}

// Refresher reloads the authority directory
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Deps are the collaborators of a Service. Notifier, Publisher and
// Directory are optional.
type Deps struct {
	Cases      store.CaseStore
	Comments   store.CommentStore
	Moderation *moderation.Engine
	Resolver   *proximity.Resolver
	Directory  Refresher
	Notifier   Notifier
	Publisher  Publisher
	Now        func() time.Time
}

// Service implements the case operations exposed over HTTP
type Service struct {
	cases      store.CaseStore
	comments   store.CommentStore
	moderation *moderation.Engine
	resolver   *proximity.Resolver
	directory  Refresher
	notifier   Notifier
	publisher  Publisher
	now        func() time.Time
	locks      *keyedMutex
}

// New returns a Service over d
func New(d Deps) *Service {
	if d.Moderation == nil {
		d.Moderation = moderation.NewEngine(0, 0, nil)
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cases:      d.Cases,
		comments:   d.Comments,
		moderation: d.Moderation,
		resolver:   d.Resolver,
		directory:  d.Directory,
		notifier:   d.Notifier,
		publisher:  d.Publisher,
		now:        d.Now,
		locks:      newKeyedMutex(),
	}
}

// mutate applies fn to the case under its lock and announces whatever the
// write appended to the timeline once the lock is released
func (s *Service) mutate(ctx context.Context, id string, fn func(*models.Case) error) (models.Case, error) {
	before, after, err := s.locked(ctx, id, nil, fn)
	if err != nil {
		return models.Case{}, err
	}
	s.announce(ctx, before, after)
	return after, nil
}

// locked reads the case, runs pre against it and then updates it with fn,
// all while holding the case lock
func (s *Service) locked(ctx context.Context, id string, pre func(models.Case) error, fn func(*models.Case) error) (models.Case, models.Case, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	before, err := s.cases.Get(ctx, id)
	if err != nil {
		return models.Case{}, models.Case{}, err
	}
	if pre != nil {
		if err := pre(before); err != nil {
			return models.Case{}, models.Case{}, err
		}
	}
	after, err := s.cases.Update(ctx, id, fn)
	if err != nil {
		return models.Case{}, models.Case{}, err
	}
	return before, after, nil
}

func (s *Service) announce(ctx context.Context, before, after models.Case) {
	if len(after.Timeline) <= len(before.Timeline) {
		return
	}
	if s.publisher != nil {
		for _, ev := range after.Timeline[len(before.Timeline):] {
			s.publisher.Publish(after.ID, ev)
		}
	}
	if s.notifier != nil && before.Status != after.Status {
		if err := s.notifier.StatusChanged(ctx, after, before.Status); err != nil {
			logging.FromContext(ctx).Warnw("failed to notify reporter",
				"caseId", after.ID,
				"status", after.Status,
				"error", err)
		}
	}
}

// PublicView hides what anonymous viewers must not see. The photo of a
// flagged case is withheld until a moderator clears it.
func PublicView(c models.Case) models.Case {
	if c.Status == models.StatusFlagged {
		c.PhotoRef = ""
	}
	return c
}
