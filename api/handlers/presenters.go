package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/Rhejna/missing-person-app/models"
	"github.com/Rhejna/missing-person-app/proximity"
	"github.com/Rhejna/missing-person-app/service"
	"github.com/Rhejna/missing-person-app/verification"
)

// PhotoResolver turns a stored photo reference into a delivery URL
type PhotoResolver interface {
	PhotoURL(ref string) string
}

// CommentCounter counts the visible comments of a case
type CommentCounter interface {
	CountComments(ctx context.Context, caseID string) (int, error)
}

// CaseResponse is a case as served to clients
type CaseResponse struct {
	models.Case
	Label        verification.Label `json:"label"`
	PhotoURL     string             `json:"photoUrl,omitempty"`
	DistanceKm   *float64           `json:"distanceKm,omitempty"`
	Distance     string             `json:"distance,omitempty"`
	CommentCount int                `json:"commentCount"`
}

// CreateCaseResponse is returned once a case is stored. ReporterToken opens
// the reporter dashboard and is only shown once.
type CreateCaseResponse struct {
	ID            string `json:"id"`
	CaseNumber    string `json:"caseNumber"`
	ReporterToken string `json:"reporterToken,omitempty"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// presentCase shapes c for the caller. Public views withhold what anonymous
// viewers must not see; from, when given, annotates the distance.
func presentCase(c models.Case, photos PhotoResolver, public bool, from *models.Coordinate) CaseResponse {
	if public {
		c = service.PublicView(c)
		c.Reporter.Email = ""
	}
	resp := CaseResponse{
		Case:  c,
		Label: verification.StatusLabel(verification.DisplayStatus(c)),
	}
	if c.PhotoRef != "" {
		if photos != nil {
			resp.PhotoURL = photos.PhotoURL(c.PhotoRef)
		} else {
			resp.PhotoURL = c.PhotoRef
		}
	}
	if from != nil && c.Point != nil {
		d := proximity.DistanceKm(*from, *c.Point)
		resp.DistanceKm = &d
		resp.Distance = proximity.FormatKm(d)
	}
	return resp
}

func presentCases(cases []models.Case, photos PhotoResolver, public bool, from *models.Coordinate) []CaseResponse {
	out := make([]CaseResponse, 0, len(cases))
	for _, c := range cases {
		out = append(out, presentCase(c, photos, public, from))
	}
	return out
}

// countComments fills CommentCount on every response. A failed count is
// logged and leaves zero.
func countComments(ctx context.Context, counter CommentCounter, resps []CaseResponse) {
	if counter == nil {
		return
	}
	for i := range resps {
		n, err := counter.CountComments(ctx, resps[i].ID)
		if err != nil {
			zap.S().Warnw("failed to count comments", "caseId", resps[i].ID, "error", err)
			continue
		}
		resps[i].CommentCount = n
	}
}

func presentComments(comments []models.Comment) []models.Comment {
	if comments == nil {
		return []models.Comment{}
	}
	return comments
}
