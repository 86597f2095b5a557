package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/models"
)

var at = time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)

func TestParseReason(t *testing.T) {
	tests := []struct {
		in   string
		want Reason
	}{
		{"fake_or_misleading", ReasonFakeOrMisleading},
		{"Fake or misleading", ReasonFakeOrMisleading},
		{"Already found", ReasonAlreadyFound},
		{" wrong-information ", ReasonWrongInformation},
		{"Suspicious activity", ReasonSuspiciousActivity},
		{"other", ReasonOther},
	}
	for _, tt := range tests {
		got, err := ParseReason(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseReason("")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = ParseReason("spam")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestApplyCaseReportFlagsAtThreshold(t *testing.T) {
	e := NewEngine(3, 2, nil)
	c := models.Case{ID: "c1"}

	assert.False(t, e.ApplyCaseReport(&c, ReasonFakeOrMisleading, at))
	assert.False(t, e.ApplyCaseReport(&c, ReasonFakeOrMisleading, at))
	assert.False(t, c.Moderation.Flagged)
	assert.Equal(t, []string{"fake_or_misleading"}, c.Moderation.Reasons)

	assert.True(t, e.ApplyCaseReport(&c, ReasonOther, at))
	assert.True(t, c.Moderation.Flagged)
	assert.Equal(t, 3, c.Moderation.ReportCount)
	assert.Equal(t, []string{"fake_or_misleading", "other"}, c.Moderation.Reasons)
	assert.Len(t, c.Timeline, 3)
	assert.Equal(t, models.EventReported, c.Timeline[2].Type)

	// already flagged: count still grows but nothing new happens
	assert.False(t, e.ApplyCaseReport(&c, ReasonOther, at))
	assert.Equal(t, 4, c.Moderation.ReportCount)
}

func TestClearFlagKeepsCountAndCanReflag(t *testing.T) {
	e := NewEngine(3, 2, nil)
	c := models.Case{ID: "c1"}
	for i := 0; i < 3; i++ {
		e.ApplyCaseReport(&c, ReasonOther, at)
	}
	require.True(t, c.Moderation.Flagged)

	assert.True(t, e.ClearFlag(&c, "admin", at))
	assert.False(t, c.Moderation.Flagged)
	assert.Equal(t, 3, c.Moderation.ReportCount)
	assert.Equal(t, models.EventFlagCleared, c.Timeline[len(c.Timeline)-1].Type)

	assert.False(t, e.ClearFlag(&c, "admin", at))

	assert.True(t, e.ApplyCaseReport(&c, ReasonOther, at))
	assert.True(t, c.Moderation.Flagged)
}

func TestOverrideCase(t *testing.T) {
	e := NewEngine(0, 0, nil)
	assert.Equal(t, DefaultCaseThreshold, e.CaseThreshold)

	c := models.Case{ID: "c1"}
	require.NoError(t, e.OverrideCase(&c, DecisionFlag, "admin", "duplicate listing", at))
	assert.True(t, c.Moderation.Flagged)
	assert.Equal(t, 0, c.Moderation.ReportCount)
	last := c.Timeline[len(c.Timeline)-1]
	assert.Equal(t, models.EventModeratorAct, last.Type)
	assert.Equal(t, "admin", last.Actor)

	require.NoError(t, e.OverrideCase(&c, DecisionClear, "admin", "", at))
	assert.False(t, c.Moderation.Flagged)
	assert.Len(t, c.Timeline, 2)

	assert.ErrorIs(t, e.OverrideCase(&c, DecisionHide, "admin", "", at), apperr.ErrValidation)
}

func TestApplyCommentReport(t *testing.T) {
	e := NewEngine(3, 2, nil)
	cm := models.Comment{ID: "m1", CaseID: "c1"}

	assert.False(t, e.ApplyCommentReport(&cm, ReasonOther))
	assert.False(t, cm.IsModerated)
	assert.True(t, e.ApplyCommentReport(&cm, ReasonWrongInformation))
	assert.True(t, cm.IsModerated)
	assert.Equal(t, 2, cm.ReportCount)
	assert.ElementsMatch(t, []string{"other", "wrong_information"}, cm.Reasons)
}

func TestOverrideComment(t *testing.T) {
	e := NewEngine(3, 2, nil)
	cm := models.Comment{ID: "m1"}
	require.NoError(t, e.OverrideComment(&cm, DecisionHide, "admin"))
	assert.True(t, cm.IsModerated)
	require.NoError(t, e.OverrideComment(&cm, DecisionUnhide, "admin"))
	assert.False(t, cm.IsModerated)
	assert.ErrorIs(t, e.OverrideComment(&cm, DecisionFlag, "admin"), apperr.ErrValidation)
}

func TestMemoryLedgerDedupPerSubject(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(3, 2, NewMemoryLedger())
	s1, s2 := SessionKey("10.0.0.1"), SessionKey("10.0.0.2")

	ok, err := e.AdmitCaseReport(ctx, "c1", s1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = e.AdmitCaseReport(ctx, "c1", s1)
	assert.False(t, ok)

	ok, _ = e.AdmitCaseReport(ctx, "c1", s2)
	assert.True(t, ok)

	// same session, different subject
	ok, _ = e.AdmitCaseReport(ctx, "c2", s1)
	assert.True(t, ok)
	ok, _ = e.AdmitCommentReport(ctx, "c1", s1)
	assert.True(t, ok)

	e.RetractCaseReport(ctx, "c1", s1)
	ok, _ = e.AdmitCaseReport(ctx, "c1", s1)
	assert.True(t, ok)
}

func TestSessionKeyIsStable(t *testing.T) {
	assert.Equal(t, SessionKey("abc"), SessionKey("abc"))
	assert.NotEqual(t, SessionKey("abc"), SessionKey("abd"))
	assert.NotContains(t, SessionKey("192.168.1.7"), "192")
}

type fakeSets struct {
	sets map[string]map[string]bool
	err  error
}

func (f *fakeSets) SAdd(_ context.Context, key string, members ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	if f.sets[key] == nil {
		f.sets[key] = map[string]bool{}
	}
	var added int64
	for _, m := range members {
		s := m.(string)
		if !f.sets[key][s] {
			f.sets[key][s] = true
			added++
		}
	}
	return redis.NewIntResult(added, nil)
}

func (f *fakeSets) SRem(_ context.Context, key string, members ...interface{}) *redis.IntCmd {
	var removed int64
	for _, m := range members {
		if f.sets[key][m.(string)] {
			delete(f.sets[key], m.(string))
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func TestRedisLedger(t *testing.T) {
	ctx := context.Background()
	fake := &fakeSets{sets: map[string]map[string]bool{}}
	l := NewRedisLedger(fake)

	ok, err := l.Add(ctx, "case:c1", "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, fake.sets["reports:case:c1"]["s1"])

	ok, err = l.Add(ctx, "case:c1", "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Remove(ctx, "case:c1", "s1"))
	ok, _ = l.Add(ctx, "case:c1", "s1")
	assert.True(t, ok)

	fake.err = errors.New("connection refused")
	_, err = l.Add(ctx, "case:c1", "s2")
	assert.ErrorIs(t, err, apperr.ErrStorage)
}
