package service

import (
	"context"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/logging"
	"github.com/Rhejna/missing-person-app/models"
	"github.com/Rhejna/missing-person-app/moderation"
)

// AddComment attaches a comment to the case
func (s *Service) AddComment(ctx context.Context, caseID, author, content string, isOfficer bool) (models.Comment, error) {
	return s.comments.Add(ctx, caseID, author, content, isOfficer)
}

// ListComments returns the comments of the case, newest first
func (s *Service) ListComments(ctx context.Context, caseID string, includeModerated bool) ([]models.Comment, error) {
	if _, err := s.cases.Get(ctx, caseID); err != nil {
		return nil, err
	}
	return s.comments.List(ctx, caseID, includeModerated)
}

// CountComments returns the number of visible comments on the case
func (s *Service) CountComments(ctx context.Context, caseID string) (int, error) {
	return s.comments.Count(ctx, caseID)
}

// ReportComment counts a community report against the comment. A session
// that already reported it gets the comment back unchanged.
func (s *Service) ReportComment(ctx context.Context, commentID, reason, session string) (models.Comment, error) {
	r, err := moderation.ParseReason(reason)
	if err != nil {
		return models.Comment{}, err
	}
	if session == "" {
		return models.Comment{}, apperr.Validation("reporter session is required")
	}
	cm, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return models.Comment{}, err
	}

	unlock := s.locks.Lock(cm.CaseID)
	admitted, err := s.moderation.AdmitCommentReport(ctx, commentID, session)
	if err != nil {
		unlock()
		return models.Comment{}, err
	}
	if !admitted {
		unlock()
		return s.comments.Get(ctx, commentID)
	}
	hidden := false
	updated, err := s.comments.Update(ctx, commentID, func(c *models.Comment) error {
		hidden = s.moderation.ApplyCommentReport(c, r)
		return nil
	})
	unlock()
	if err != nil {
		s.moderation.RetractCommentReport(ctx, commentID, session)
		return models.Comment{}, err
	}
	if hidden {
		s.recordCommentEvent(ctx, updated, models.EventCommentHidden, "")
	}
	return updated, nil
}

// OverrideComment hides or restores the comment regardless of reports
func (s *Service) OverrideComment(ctx context.Context, commentID string, decision moderation.Decision, actor string) (models.Comment, error) {
	cm, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return models.Comment{}, err
	}

	unlock := s.locks.Lock(cm.CaseID)
	changed := false
	updated, err := s.comments.Update(ctx, commentID, func(c *models.Comment) error {
		was := c.IsModerated
		if err := s.moderation.OverrideComment(c, decision, actor); err != nil {
			return err
		}
		changed = was != c.IsModerated
		return nil
	})
	unlock()
	if err != nil {
		return models.Comment{}, err
	}
	if changed {
		ev := models.EventCommentVisible
		if updated.IsModerated {
			ev = models.EventCommentHidden
		}
		s.recordCommentEvent(ctx, updated, ev, actor)
	}
	return updated, nil
}

// recordCommentEvent notes a visibility change on the parent case timeline.
// The comment itself is already stored, so a failure here is only logged.
func (s *Service) recordCommentEvent(ctx context.Context, cm models.Comment, typ models.EventType, actor string) {
	_, err := s.mutate(ctx, cm.CaseID, func(c *models.Case) error {
		c.Timeline = append(c.Timeline, models.TimelineEvent{
			At:    s.now(),
			Type:  typ,
			Field: "comment:" + cm.ID,
			To:    boolString(cm.IsModerated, "hidden", "visible"),
			Actor: actor,
		})
		return nil
	})
	if err != nil {
		logging.FromContext(ctx).Warnw("failed to record comment moderation",
			"commentId", cm.ID,
			"caseId", cm.CaseID,
			"error", err)
	}
}

func boolString(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}
