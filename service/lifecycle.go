package service

import (
	"context"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/models"
	"github.com/Rhejna/missing-person-app/moderation"
	"github.com/Rhejna/missing-person-app/store"
	"github.com/Rhejna/missing-person-app/verification"
)

// Attest records an attestation from source. Repeating one is a no-op.
func (s *Service) Attest(ctx context.Context, id string, source verification.Source, actor string) (models.Case, error) {
	return s.mutate(ctx, id, func(c *models.Case) error {
		changed, err := verification.Attest(c, source, actor, s.now())
		if err != nil {
			return err
		}
		if !changed {
			return store.ErrNoChange
		}
		return nil
	})
}

// ReportCase counts a community report against the case. A session that
// already reported the case gets the case back unchanged.
func (s *Service) ReportCase(ctx context.Context, id, reason, session string) (models.Case, error) {
	r, err := moderation.ParseReason(reason)
	if err != nil {
		return models.Case{}, err
	}
	if session == "" {
		return models.Case{}, apperr.Validation("reporter session is required")
	}

	admitted := false
	before, after, err := s.locked(ctx, id,
		func(models.Case) error {
			ok, err := s.moderation.AdmitCaseReport(ctx, id, session)
			admitted = ok
			return err
		},
		func(c *models.Case) error {
			if !admitted {
				return store.ErrNoChange
			}
			s.moderation.ApplyCaseReport(c, r, s.now())
			return nil
		})
	if err != nil {
		if admitted {
			s.moderation.RetractCaseReport(ctx, id, session)
		}
		return models.Case{}, err
	}
	s.announce(ctx, before, after)
	return after, nil
}

// ClearFlag lifts the moderation flag, keeping the report count
func (s *Service) ClearFlag(ctx context.Context, id, actor string) (models.Case, error) {
	return s.mutate(ctx, id, func(c *models.Case) error {
		if !s.moderation.ClearFlag(c, actor, s.now()) {
			return store.ErrNoChange
		}
		return nil
	})
}

// OverrideCase flags or clears the case regardless of reports
func (s *Service) OverrideCase(ctx context.Context, id string, decision moderation.Decision, actor, note string) (models.Case, error) {
	return s.mutate(ctx, id, func(c *models.Case) error {
		return s.moderation.OverrideCase(c, decision, actor, note, s.now())
	})
}

// MarkFound resolves the case as found
func (s *Service) MarkFound(ctx context.Context, id, actor, note string) (models.Case, error) {
	return s.mutate(ctx, id, func(c *models.Case) error {
		return verification.MarkFound(c, actor, note, s.now())
	})
}

// MarkClosed closes the case for good
func (s *Service) MarkClosed(ctx context.Context, id, actor, note string) (models.Case, error) {
	return s.mutate(ctx, id, func(c *models.Case) error {
		return verification.MarkClosed(c, actor, note, s.now())
	})
}

// RecordSighting adds a possible sighting to an open case
func (s *Service) RecordSighting(ctx context.Context, id, location, note, actor string) (models.Case, error) {
	location = store.Sanitize(location)
	note = store.Sanitize(note)
	if location == "" && note == "" {
		return models.Case{}, apperr.Validation("location or note is required")
	}
	return s.mutate(ctx, id, func(c *models.Case) error {
		return verification.RecordSighting(c, location, note, actor, s.now())
	})
}
