package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Rhejna/missing-person-app/api"
	"github.com/Rhejna/missing-person-app/api/live"
	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/config"
	"github.com/Rhejna/missing-person-app/models"
	"github.com/Rhejna/missing-person-app/service"
	"github.com/Rhejna/missing-person-app/verification"
)

// ReporterTokenIssuer mints the token returned to whoever submits a case
type ReporterTokenIssuer interface {
	IssueReporterToken(phone, name string) (string, error)
}

// Case exported for testing purposes
type Case struct {
	Svc      *service.Service
	Photos   PhotoResolver
	Validate *validator.Validate
	Hub      *live.Hub
	Tokens   ReporterTokenIssuer
}

type reporterRequest struct {
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
	Relationship string `json:"relationship"`
}

type createCaseRequest struct {
	FullName         string             `json:"fullName" validate:"required,max=200"`
	Age              int                `json:"age" validate:"min=0,max=150"`
	Description      string             `json:"description"`
	LastSeenLocation string             `json:"lastSeenLocation" validate:"required"`
	LastSeenAt       *time.Time         `json:"lastSeenAt"`
	Point            *models.Coordinate `json:"point"`
	Photo            string             `json:"photo"`
	Reporter         reporterRequest    `json:"reporter"`
}

type attestRequest struct {
	Source string `json:"source" validate:"required"`
}

type reportRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type sightingRequest struct {
	Location string `json:"location"`
	Note     string `json:"note"`
}

// CreateCaseHandler stores a new unverified case
func (h Case) CreateCaseHandler(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if err := decodeJSON(r, &req, h.Validate); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	draft := models.CaseDraft{
		FullName:    req.FullName,
		Age:         req.Age,
		Description: req.Description,
		LastSeen:    req.LastSeenLocation,
		Point:       req.Point,
		PhotoRef:    req.Photo,
		Reporter: models.Reporter{
			Name:         req.Reporter.Name,
			Phone:        req.Reporter.Phone,
			Email:        req.Reporter.Email,
			Relationship: req.Reporter.Relationship,
		},
	}
	if req.LastSeenAt != nil {
		draft.LastSeenAt = req.LastSeenAt.UTC()
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := h.Svc.CreateCase(ctx, draft)
	if err != nil {
		config.WriteError("failed to create case", w, err)
		return
	}
	zap.S().Infow("case submitted", "caseId", c.ID, "caseNumber", c.CaseNumber)
	resp := CreateCaseResponse{ID: c.ID, CaseNumber: c.CaseNumber}
	if h.Tokens != nil {
		token, err := h.Tokens.IssueReporterToken(c.Reporter.Phone, c.Reporter.Name)
		if err != nil {
			zap.S().Warnw("failed to issue reporter token", "caseId", c.ID, "error", err)
		}
		resp.ReporterToken = token
	}
	api.WriteJSON(w, http.StatusCreated, resp)
}

// CasesHandler lists public cases. Flagged cases never appear here.
func (h Case) CasesHandler(w http.ResponseWriter, r *http.Request) {
	from, err := queryTime(r, "from", false)
	if err != nil {
		config.WriteError("invalid from", w, err)
		return
	}
	to, err := queryTime(r, "to", true)
	if err != nil {
		config.WriteError("invalid to", w, err)
		return
	}
	point, err := queryCoordinate(r)
	if err != nil {
		config.WriteError("invalid coordinate", w, err)
		return
	}
	radius, _, err := queryFloat(r, "radius")
	if err != nil || radius < 0 {
		config.ErrorStatus("invalid radius", http.StatusBadRequest, w, apperr.Validation("radius must be a positive number"))
		return
	}

	f := models.CaseFilter{
		Statuses: queryStatuses(r),
		Query:    strings.TrimSpace(r.URL.Query().Get("q")),
		From:     from,
		To:       to,
		Limit:    getLimit(r),
		Page:     getPage(r),
	}
	var near *service.Nearby
	if point != nil {
		near = &service.Nearby{Point: *point, RadiusKm: radius}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cases, err := h.Svc.ListCases(ctx, f, near)
	if err != nil {
		config.WriteError("failed to get cases", w, err)
		return
	}
	resps := presentCases(cases, h.Photos, true, point)
	countComments(ctx, h.Svc, resps)
	api.WriteJSON(w, http.StatusOK, resps)
}

// CaseByIDHandler returns a single case
func (h Case) CaseByIDHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]
	zap.S().Debugf("case_id: %v", caseID)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := h.Svc.GetCase(ctx, caseID)
	if err != nil {
		config.WriteError("failed to get case by ID", w, err)
		return
	}
	resp := []CaseResponse{presentCase(c, h.Photos, true, nil)}
	countComments(ctx, h.Svc, resp)
	api.WriteJSON(w, http.StatusOK, resp[0])
}

// AttestHandler records a family, police or NGO attestation. Police
// attestations need an officer and NGO attestations an NGO account.
func (h Case) AttestHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var req attestRequest
	if err := decodeJSON(r, &req, h.Validate); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	source, err := verification.ParseSource(strings.ToLower(strings.TrimSpace(req.Source)))
	if err != nil {
		config.WriteError("invalid attestation source", w, err)
		return
	}
	if source.Privileged() {
		p, ok := api.PrincipalFrom(r.Context())
		if !ok {
			config.ErrorStatus("authentication required", http.StatusUnauthorized, w, apperr.ErrUnauthorized)
			return
		}
		if !p.HasRole(attestRoles(source)...) {
			config.ErrorStatus("insufficient role", http.StatusForbidden, w, apperr.ErrForbidden)
			return
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := h.Svc.Attest(ctx, caseID, source, actor(r))
	if err != nil {
		config.WriteError("failed to attest case", w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, presentCase(c, h.Photos, true, nil))
}

func attestRoles(source verification.Source) []string {
	if source == verification.SourceNGO {
		return []string{api.RoleNGO, api.RoleAdmin}
	}
	return []string{api.RoleOfficer, api.RoleAdmin}
}

// ReportCaseHandler counts a community report against a case
func (h Case) ReportCaseHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var req reportRequest
	if err := decodeJSON(r, &req, h.Validate); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := h.Svc.ReportCase(ctx, caseID, req.Reason, sessionKey(r))
	if err != nil {
		config.WriteError("failed to report case", w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, presentCase(c, h.Photos, true, nil))
}

// SightingHandler records a possible sighting of the missing person
func (h Case) SightingHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	var req sightingRequest
	if err := decodeJSON(r, &req, h.Validate); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	c, err := h.Svc.RecordSighting(ctx, caseID, req.Location, req.Note, actor(r))
	if err != nil {
		config.WriteError("failed to record sighting", w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, presentCase(c, h.Photos, true, nil))
}

// ReporterCasesHandler is the reporter dashboard. A reporter token only
// ever sees the cases filed under its own phone; admins pick the phone with
// the query string.
func (h Case) ReporterCasesHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := api.PrincipalFrom(r.Context())
	if !ok {
		config.ErrorStatus("authentication required", http.StatusUnauthorized, w, apperr.ErrUnauthorized)
		return
	}
	var phone string
	switch {
	case p.HasRole(api.RoleAdmin):
		phone = r.URL.Query().Get("phone")
	case p.HasRole(api.RoleReporter):
		phone = p.ID
	default:
		config.ErrorStatus("insufficient role", http.StatusForbidden, w, apperr.ErrForbidden)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	cases, err := h.Svc.ReporterCases(ctx, phone)
	if err != nil {
		config.WriteError("failed to get reporter cases", w, err)
		return
	}
	resps := presentCases(cases, h.Photos, false, nil)
	countComments(ctx, h.Svc, resps)
	api.WriteJSON(w, http.StatusOK, resps)
}

// LiveHandler streams the timeline of a case over a websocket
func (h Case) LiveHandler(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["case_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	_, err := h.Svc.GetCase(ctx, caseID)
	cancel()
	if err != nil {
		config.WriteError("failed to get case by ID", w, err)
		return
	}
	if h.Hub == nil {
		config.ErrorStatus("live feed unavailable", http.StatusServiceUnavailable, w, nil)
		return
	}
	h.Hub.Serve(w, r, caseID)
}
