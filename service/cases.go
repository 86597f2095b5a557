package service

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/logging"
	"github.com/Rhejna/missing-person-app/models"
	"github.com/Rhejna/missing-person-app/proximity"
	"github.com/Rhejna/missing-person-app/store"
)

// MaxAge is the oldest accepted age
const MaxAge = 150

const maxNameLength = 200

// Review queues shown on the admin panel
const (
	ViewPending  = "pending"
	ViewVerified = "verified"
	ViewFlagged  = "flagged"
)

// Nearby orders a listing by distance to Point. Cases further than RadiusKm
// are dropped when RadiusKm is positive; cases without a point go last.
type Nearby struct {
	Point    models.Coordinate
	RadiusKm float64
}

func (s *Service) cleanDraft(d models.CaseDraft) (models.CaseDraft, error) {
	d.FullName = store.Sanitize(d.FullName)
	d.Description = store.Sanitize(d.Description)
	d.LastSeen = store.Sanitize(d.LastSeen)
	d.Reporter.Name = store.Sanitize(d.Reporter.Name)
	d.Reporter.Phone = strings.TrimSpace(d.Reporter.Phone)
	d.Reporter.Email = strings.TrimSpace(d.Reporter.Email)
	d.Reporter.Relationship = store.Sanitize(d.Reporter.Relationship)
	d.PhotoRef = strings.TrimSpace(d.PhotoRef)

	switch {
	case d.FullName == "":
		return d, apperr.Validation("fullName is required")
	case utf8.RuneCountInString(d.FullName) > maxNameLength:
		return d, apperr.Validation("fullName must be at most %d characters", maxNameLength)
	case d.Age < 0 || d.Age > MaxAge:
		return d, apperr.Validation("age must be between 0 and %d", MaxAge)
	case d.LastSeen == "":
		return d, apperr.Validation("lastSeenLocation is required")
	case d.Reporter.Name == "":
		return d, apperr.Validation("reporter name is required")
	case d.Reporter.Phone == "":
		return d, apperr.Validation("reporter phone is required")
	case d.Point != nil && !proximity.ValidCoordinate(*d.Point):
		return d, apperr.Validation("point is out of range")
	}
	now := s.now()
	if d.LastSeenAt.IsZero() {
		d.LastSeenAt = now
	}
	if d.LastSeenAt.After(now) {
		return d, apperr.Validation("lastSeenAt cannot be in the future")
	}
	return d, nil
}

// CreateCase validates draft and stores it as a new unverified case
func (s *Service) CreateCase(ctx context.Context, draft models.CaseDraft) (models.Case, error) {
	clean, err := s.cleanDraft(draft)
	if err != nil {
		return models.Case{}, err
	}
	c, err := s.cases.Create(ctx, clean)
	if err != nil {
		return models.Case{}, err
	}
	if s.publisher != nil {
		s.publisher.Publish(c.ID, c.Timeline[0])
	}
	if s.notifier != nil {
		if err := s.notifier.CaseSubmitted(ctx, c); err != nil {
			logging.FromContext(ctx).Warnw("failed to confirm submission", "caseId", c.ID, "error", err)
		}
	}
	return c, nil
}

// GetCase returns the case with id
func (s *Service) GetCase(ctx context.Context, id string) (models.Case, error) {
	return s.cases.Get(ctx, id)
}

// ListCases returns the cases matching f, newest first, or nearest first
// when near is given
func (s *Service) ListCases(ctx context.Context, f models.CaseFilter, near *Nearby) ([]models.Case, error) {
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, apperr.Validation("unknown status %q", st)
		}
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, apperr.Validation("from must not be after to")
	}
	if near == nil {
		return s.cases.List(ctx, f)
	}
	if !proximity.ValidCoordinate(near.Point) {
		return nil, apperr.Validation("coordinate out of range")
	}

	all := f
	all.Limit, all.Page = 0, 0
	cases, err := s.cases.List(ctx, all)
	if err != nil {
		return nil, err
	}
	return store.Paginate(orderByDistance(cases, *near), f.Limit, f.Page), nil
}

func orderByDistance(cases []models.Case, near Nearby) []models.Case {
	type ranked struct {
		c models.Case
		d float64
	}
	located := []ranked{}
	rest := []models.Case{}
	for _, c := range cases {
		if c.Point == nil {
			rest = append(rest, c)
			continue
		}
		d := proximity.DistanceKm(near.Point, *c.Point)
		if near.RadiusKm > 0 && d > near.RadiusKm {
			continue
		}
		located = append(located, ranked{c: c, d: d})
	}
	sort.SliceStable(located, func(i, j int) bool { return located[i].d < located[j].d })

	out := make([]models.Case, 0, len(located)+len(rest))
	for _, r := range located {
		out = append(out, r.c)
	}
	return append(out, rest...)
}

// ReporterCases lists every case submitted with phone, including flagged ones
func (s *Service) ReporterCases(ctx context.Context, phone string) ([]models.Case, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, apperr.Validation("phone is required")
	}
	return s.cases.List(ctx, models.CaseFilter{ReporterPhone: phone, IncludeFlagged: true})
}

// ReviewQueue lists the cases of an admin panel tab
func (s *Service) ReviewQueue(ctx context.Context, view string) ([]models.Case, error) {
	f := models.CaseFilter{IncludeFlagged: true}
	switch view {
	case ViewPending, "":
		f.Statuses = []models.Status{models.StatusUnverified}
	case ViewVerified:
		f.Statuses = []models.Status{models.StatusVerified}
	case ViewFlagged:
		f.Statuses = []models.Status{models.StatusFlagged}
	default:
		return nil, apperr.Validation("unknown review view %q", view)
	}
	return s.cases.List(ctx, f)
}

// Stats counts every case by state
func (s *Service) Stats(ctx context.Context) (models.CaseStats, error) {
	cases, err := s.cases.List(ctx, models.CaseFilter{IncludeFlagged: true})
	if err != nil {
		return models.CaseStats{}, err
	}
	stats := models.CaseStats{ByStatus: map[models.Status]int{}}
	for _, st := range models.Statuses {
		stats.ByStatus[st] = 0
	}
	for _, c := range cases {
		stats.Total++
		stats.ByStatus[c.Status]++
		if c.SubStatus == models.StatusSighting {
			stats.ByStatus[models.StatusSighting]++
		}
		if c.Moderation.ReportCount > 0 {
			stats.Reported++
		}
		if c.PhotoRef != "" {
			stats.WithPhotos++
		}
	}
	stats.Pending = stats.ByStatus[models.StatusUnverified]
	stats.Verified = stats.ByStatus[models.StatusVerified]
	stats.Flagged = stats.ByStatus[models.StatusFlagged]
	stats.Resolved = stats.ByStatus[models.StatusFound] + stats.ByStatus[models.StatusClosed]
	return stats, nil
}
