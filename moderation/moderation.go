// Package moderation turns community reports into moderation state: report
// counting with per-session dedup, threshold based flagging of cases and
// hiding of comments, and moderator overrides.
package moderation

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/models"
)

// Default thresholds
const (
	DefaultCaseThreshold    = 3
	DefaultCommentThreshold = 2
)

// Decision is a moderator override
type Decision string

// Override decisions
const (
	DecisionFlag   Decision = "flag"
	DecisionClear  Decision = "clear"
	DecisionHide   Decision = "hide"
	DecisionUnhide Decision = "unhide"
)

// Engine applies report and override rules
type Engine struct {
	CaseThreshold    int
	CommentThreshold int
	Ledger           Ledger
}

// NewEngine returns an Engine, falling back to the default thresholds for
// non-positive values and to an in-memory ledger when none is given
func NewEngine(caseThreshold, commentThreshold int, ledger Ledger) *Engine {
	if caseThreshold <= 0 {
		caseThreshold = DefaultCaseThreshold
	}
	if commentThreshold <= 0 {
		commentThreshold = DefaultCommentThreshold
	}
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	return &Engine{
		CaseThreshold:    caseThreshold,
		CommentThreshold: commentThreshold,
		Ledger:           ledger,
	}
}

func caseSubject(id string) string    { return "case:" + id }
func commentSubject(id string) string { return "comment:" + id }

// AdmitCaseReport records session as a reporter of the case. It returns false
// when the session already reported it.
func (e *Engine) AdmitCaseReport(ctx context.Context, caseID, session string) (bool, error) {
	return e.Ledger.Add(ctx, caseSubject(caseID), session)
}

// RetractCaseReport undoes AdmitCaseReport
func (e *Engine) RetractCaseReport(ctx context.Context, caseID, session string) {
	if err := e.Ledger.Remove(ctx, caseSubject(caseID), session); err != nil {
		zap.S().Warnw("failed to retract case report", "caseId", caseID, "error", err)
	}
}

// AdmitCommentReport records session as a reporter of the comment
func (e *Engine) AdmitCommentReport(ctx context.Context, commentID, session string) (bool, error) {
	return e.Ledger.Add(ctx, commentSubject(commentID), session)
}

// RetractCommentReport undoes AdmitCommentReport
func (e *Engine) RetractCommentReport(ctx context.Context, commentID, session string) {
	if err := e.Ledger.Remove(ctx, commentSubject(commentID), session); err != nil {
		zap.S().Warnw("failed to retract comment report", "commentId", commentID, "error", err)
	}
}

// ApplyCaseReport counts an admitted report against c and flags it once the
// count reaches the threshold. It returns true when this report flagged it.
func (e *Engine) ApplyCaseReport(c *models.Case, reason Reason, at time.Time) bool {
	m := &c.Moderation
	m.ReportCount++
	if !m.HasReason(string(reason)) {
		m.Reasons = append(m.Reasons, string(reason))
	}
	c.Timeline = append(c.Timeline, models.TimelineEvent{
		At:    at,
		Type:  models.EventReported,
		Field: "moderation.reportCount",
		From:  strconv.Itoa(m.ReportCount - 1),
		To:    strconv.Itoa(m.ReportCount),
		Note:  string(reason),
	})

	if m.Flagged || m.ReportCount < e.CaseThreshold {
		return false
	}
	m.Flagged = true
	zap.S().Infow("case flagged for review",
		"caseId", c.ID,
		"reportCount", m.ReportCount,
		"threshold", e.CaseThreshold)
	return true
}

// ClearFlag removes the moderation flag, leaving the report count alone. It
// returns false when the case was not flagged.
func (e *Engine) ClearFlag(c *models.Case, actor string, at time.Time) bool {
	if !c.Moderation.Flagged {
		return false
	}
	c.Moderation.Flagged = false
	c.Timeline = append(c.Timeline, models.TimelineEvent{
		At:    at,
		Type:  models.EventFlagCleared,
		Field: "moderation.flagged",
		From:  "true",
		To:    "false",
		Actor: actor,
	})
	return true
}

// OverrideCase flags or clears c regardless of the report count
func (e *Engine) OverrideCase(c *models.Case, decision Decision, actor, note string, at time.Time) error {
	var flagged bool
	switch decision {
	case DecisionFlag:
		flagged = true
	case DecisionClear:
	default:
		return apperr.Validation("unknown case decision %q", decision)
	}

	from := c.Moderation.Flagged
	c.Moderation.Flagged = flagged
	c.Timeline = append(c.Timeline, models.TimelineEvent{
		At:    at,
		Type:  models.EventModeratorAct,
		Field: "moderation.flagged",
		From:  strconv.FormatBool(from),
		To:    strconv.FormatBool(flagged),
		Actor: actor,
		Note:  note,
	})
	zap.S().Infow("moderator override",
		"caseId", c.ID,
		"decision", decision,
		"actor", actor,
		"reportCount", c.Moderation.ReportCount)
	return nil
}

// ApplyCommentReport counts an admitted report against cm and hides it once
// the count reaches the threshold. It returns true when this report hid it.
func (e *Engine) ApplyCommentReport(cm *models.Comment, reason Reason) bool {
	cm.ReportCount++
	seen := false
	for _, r := range cm.Reasons {
		if r == string(reason) {
			seen = true
			break
		}
	}
	if !seen {
		cm.Reasons = append(cm.Reasons, string(reason))
	}
	if cm.IsModerated || cm.ReportCount < e.CommentThreshold {
		return false
	}
	cm.IsModerated = true
	zap.S().Infow("comment hidden for review",
		"commentId", cm.ID,
		"caseId", cm.CaseID,
		"reportCount", cm.ReportCount)
	return true
}

// OverrideComment hides or restores cm regardless of the report count
func (e *Engine) OverrideComment(cm *models.Comment, decision Decision, actor string) error {
	switch decision {
	case DecisionHide:
		cm.IsModerated = true
	case DecisionUnhide:
		cm.IsModerated = false
	default:
		return apperr.Validation("unknown comment decision %q", decision)
	}
	zap.S().Infow("moderator override",
		"commentId", cm.ID,
		"caseId", cm.CaseID,
		"decision", decision,
		"actor", actor,
		"reportCount", cm.ReportCount)
	return nil
}
