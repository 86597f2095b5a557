package verification

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/models"
)

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newCase() models.Case {
	return models.Case{ID: "c1", Status: models.StatusUnverified}
}

func TestRecompute(t *testing.T) {
	tests := []struct {
		name string
		mod  func(c *models.Case)
		want models.Status
	}{
		{"fresh", func(c *models.Case) {}, models.StatusUnverified},
		{"family", func(c *models.Case) { c.Verification.FamilyAttestation = true }, models.StatusVerified},
		{"ngo", func(c *models.Case) { c.Verification.NgoConfirmed = true }, models.StatusVerified},
		{"flagged beats verified", func(c *models.Case) {
			c.Verification.PoliceConfirmed = true
			c.Moderation.Flagged = true
		}, models.StatusFlagged},
		{"found beats flagged", func(c *models.Case) {
			c.Moderation.Flagged = true
			c.Resolution = models.ResolutionFound
		}, models.StatusFound},
		{"closed", func(c *models.Case) { c.Resolution = models.ResolutionClosed }, models.StatusClosed},
		{"sighting never surfaces", func(c *models.Case) { c.SubStatus = models.StatusSighting }, models.StatusUnverified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCase()
			tt.mod(&c)
			assert.Equal(t, tt.want, Recompute(c))
		})
	}
}

func TestAttestIsIdempotent(t *testing.T) {
	c := newCase()

	changed, err := Attest(&c, SourcePolice, "officer-1", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, c.Verification.PoliceConfirmed)
	require.Len(t, c.Timeline, 1)
	assert.Equal(t, models.EventAttested, c.Timeline[0].Type)
	assert.Equal(t, "policeConfirmed", c.Timeline[0].Field)
	assert.Equal(t, "officer-1", c.Timeline[0].Actor)

	changed, err = Attest(&c, SourcePolice, "officer-2", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, c.Timeline, 1)
}

func TestAttestationsAreIndependent(t *testing.T) {
	c := newCase()
	_, err := Attest(&c, SourceFamily, "", now)
	require.NoError(t, err)
	_, err = Attest(&c, SourceNGO, "ngo-1", now)
	require.NoError(t, err)

	assert.True(t, c.Verification.FamilyAttestation)
	assert.True(t, c.Verification.NgoConfirmed)
	assert.False(t, c.Verification.PoliceConfirmed)
	assert.Equal(t, models.StatusVerified, Recompute(c))
}

func TestAttestClosedCase(t *testing.T) {
	c := newCase()
	c.Resolution = models.ResolutionClosed

	_, err := Attest(&c, SourceFamily, "", now)
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
	assert.False(t, c.Verification.FamilyAttestation)
	assert.Empty(t, c.Timeline)
}

func TestAttestFoundCaseKeepsFound(t *testing.T) {
	c := newCase()
	require.NoError(t, MarkFound(&c, "admin", "", now))

	changed, err := Attest(&c, SourceNGO, "ngo-1", now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StatusFound, Recompute(c))
}

func TestMarkFoundThenClosed(t *testing.T) {
	c := newCase()
	c.SubStatus = models.StatusSighting

	require.NoError(t, MarkFound(&c, "admin", "reunited with family", now))
	assert.Equal(t, models.StatusFound, Recompute(c))
	assert.Empty(t, c.SubStatus)

	err := MarkFound(&c, "admin", "", now)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	require.NoError(t, MarkClosed(&c, "admin", "", now))
	assert.Equal(t, models.StatusClosed, Recompute(c))
	last := c.Timeline[len(c.Timeline)-1]
	assert.Equal(t, models.EventMarkedClosed, last.Type)
	assert.Equal(t, "found", last.From)

	assert.ErrorIs(t, MarkClosed(&c, "admin", "", now), apperr.ErrInvalidTransition)
	assert.ErrorIs(t, MarkFound(&c, "admin", "", now), apperr.ErrInvalidTransition)
}

func TestRecordSighting(t *testing.T) {
	c := newCase()
	require.NoError(t, RecordSighting(&c, "Akwa Market", "seen near the taxi rank", "", now))
	assert.Equal(t, models.StatusSighting, c.SubStatus)
	assert.Equal(t, models.StatusUnverified, Recompute(c))
	assert.Equal(t, models.EventSighting, c.Timeline[0].Type)

	c.Resolution = models.ResolutionFound
	assert.ErrorIs(t, RecordSighting(&c, "x", "", "", now), apperr.ErrInvalidTransition)
}

func TestParseSource(t *testing.T) {
	s, err := ParseSource("ngo")
	require.NoError(t, err)
	assert.Equal(t, SourceNGO, s)
	assert.True(t, s.Privileged())
	assert.False(t, SourceFamily.Privileged())

	_, err = ParseSource("neighbour")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStatusLabelCoversEveryStatus(t *testing.T) {
	for _, s := range models.Statuses {
		l := StatusLabel(s)
		assert.Equal(t, s, l.Status)
		assert.NotEmpty(t, l.Text)
		assert.NotEmpty(t, l.Color)
	}
	assert.Equal(t, "Possible Sighting", StatusLabel(models.StatusSighting).Text)
}

func TestDisplayStatus(t *testing.T) {
	c := newCase()
	c.Status = models.StatusVerified
	c.SubStatus = models.StatusSighting
	assert.Equal(t, models.StatusSighting, DisplayStatus(c))

	c.Status = models.StatusFlagged
	assert.Equal(t, models.StatusFlagged, DisplayStatus(c))
}
