package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rhejna/missing-person-app/api"
	"github.com/Rhejna/missing-person-app/api/handlers"
	"github.com/Rhejna/missing-person-app/models"
	"github.com/Rhejna/missing-person-app/moderation"
)

type prefixPhotos struct{}

func (prefixPhotos) PhotoURL(ref string) string { return "https://cdn.example.com/" + ref }

func TestCase_CreateCaseHandler(t *testing.T) {
	svc := newTestService(t)
	h := handlers.Case{Svc: svc, Validate: api.NewValidator()}

	req := newRequest(t, "POST", "/api/v1/cases", map[string]interface{}{
		"fullName":         "Jean Mbarga",
		"age":              9,
		"description":      "Blue school uniform",
		"lastSeenLocation": "Akwa, Douala",
		"point":            map[string]float64{"lat": 4.05, "lng": 9.70},
		"reporter": map[string]string{
			"name":         "Paul Mbarga",
			"phone":        "+237699000000",
			"relationship": "father",
		},
	}, nil)
	rr := serve(h.CreateCaseHandler, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decodeBody[handlers.CreateCaseResponse](t, rr)
	assert.NotEmpty(t, resp.ID)
	assert.Regexp(t, regexp.MustCompile(`^MISS-\d{4}-0001$`), resp.CaseNumber)

	stored, err := svc.GetCase(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnverified, stored.Status)
	assert.Equal(t, "Jean Mbarga", stored.FullName)
}

type tokenIssuerMock struct {
	mock.Mock
}

func (m *tokenIssuerMock) IssueReporterToken(phone, name string) (string, error) {
	args := m.Called(phone, name)
	return args.String(0), args.Error(1)
}

func TestCase_CreateCaseHandlerIssuesReporterToken(t *testing.T) {
	tokens := &tokenIssuerMock{}
	tokens.On("IssueReporterToken", "+237699000000", "Paul Mbarga").Return("signed-token", nil).Once()
	tokens.On("IssueReporterToken", "+237699000000", "Paul Mbarga").Return("", errors.New("mocked-error")).Once()
	h := handlers.Case{Svc: newTestService(t), Validate: api.NewValidator(), Tokens: tokens}

	body := map[string]interface{}{
		"fullName":         "Jean Mbarga",
		"lastSeenLocation": "Akwa, Douala",
		"reporter":         map[string]string{"name": "Paul Mbarga", "phone": "+237699000000"},
	}
	rr := serve(h.CreateCaseHandler, newRequest(t, "POST", "/api/v1/cases", body, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "signed-token", decodeBody[handlers.CreateCaseResponse](t, rr).ReporterToken)

	// the case is still stored when no token can be minted
	rr = serve(h.CreateCaseHandler, newRequest(t, "POST", "/api/v1/cases", body, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decodeBody[handlers.CreateCaseResponse](t, rr)
	assert.NotEmpty(t, resp.ID)
	assert.Empty(t, resp.ReporterToken)
	assert.NotContains(t, rr.Body.String(), "reporterToken")
	tokens.AssertExpectations(t)
}

func TestCase_CreateCaseHandlerMalformedJSON(t *testing.T) {
	h := handlers.Case{Svc: newTestService(t), Validate: api.NewValidator()}

	rr := serve(h.CreateCaseHandler, newRequest(t, "POST", "/api/v1/cases", "{", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, errorBody("failed to decode request", "validation error: malformed JSON: unexpected end of JSON input"), rr.Body.String())
}

func TestCase_CreateCaseHandlerMissingName(t *testing.T) {
	h := handlers.Case{Svc: newTestService(t), Validate: api.NewValidator()}

	req := newRequest(t, "POST", "/api/v1/cases", map[string]interface{}{
		"age":              9,
		"lastSeenLocation": "Akwa",
		"reporter":         map[string]string{"name": "Paul", "phone": "+237699000000"},
	}, nil)
	rr := serve(h.CreateCaseHandler, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "FullName failed required")
}

func TestCase_CreateCaseHandlerBadCoordinate(t *testing.T) {
	h := handlers.Case{Svc: newTestService(t), Validate: api.NewValidator()}

	req := newRequest(t, "POST", "/api/v1/cases", map[string]interface{}{
		"fullName":         "Jean",
		"lastSeenLocation": "Akwa",
		"point":            map[string]float64{"lat": 95, "lng": 9.7},
		"reporter":         map[string]string{"name": "Paul", "phone": "+237699000000"},
	}, nil)
	rr := serve(h.CreateCaseHandler, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Lat failed lat")
}

func TestCase_CasesHandlerExcludesFlagged(t *testing.T) {
	svc := newTestService(t)
	visible := seedCase(t, svc, "Visible", nil)
	flagged := seedCase(t, svc, "Flagged", nil)
	flagCase(t, svc, flagged.ID)

	h := handlers.Case{Svc: svc, Photos: prefixPhotos{}}
	rr := serve(h.CasesHandler, newRequest(t, "GET", "/api/v1/cases", nil, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	cases := decodeBody[[]handlers.CaseResponse](t, rr)
	require.Len(t, cases, 1)
	assert.Equal(t, visible.ID, cases[0].ID)
	assert.Equal(t, "https://cdn.example.com/missing-persons/cases/visible", cases[0].PhotoURL)
	assert.Equal(t, "Pending Verification", cases[0].Label.Text)
	assert.Empty(t, cases[0].Reporter.Email)
	assert.Equal(t, "+237600000001", cases[0].Reporter.Phone)
}

func TestCase_CasesHandlerNearestFirst(t *testing.T) {
	svc := newTestService(t)
	far := seedCase(t, svc, "Far", &models.Coordinate{Lat: 4.20, Lng: 9.7679})
	near := seedCase(t, svc, "Near", &models.Coordinate{Lat: 4.06, Lng: 9.7679})
	unplaced := seedCase(t, svc, "Unplaced", nil)

	h := handlers.Case{Svc: svc}
	rr := serve(h.CasesHandler, newRequest(t, "GET", "/api/v1/cases?lat=4.0511&lng=9.7679", nil, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	cases := decodeBody[[]handlers.CaseResponse](t, rr)
	require.Len(t, cases, 3)
	assert.Equal(t, []string{near.ID, far.ID, unplaced.ID}, []string{cases[0].ID, cases[1].ID, cases[2].ID})
	require.NotNil(t, cases[0].DistanceKm)
	assert.Equal(t, "1.0 km", cases[0].Distance)
	assert.Nil(t, cases[2].DistanceKm)
}

func TestCase_CasesHandlerRadius(t *testing.T) {
	svc := newTestService(t)
	seedCase(t, svc, "Far", &models.Coordinate{Lat: 4.20, Lng: 9.7679})
	near := seedCase(t, svc, "Near", &models.Coordinate{Lat: 4.06, Lng: 9.7679})

	h := handlers.Case{Svc: svc}
	rr := serve(h.CasesHandler, newRequest(t, "GET", "/api/v1/cases?lat=4.0511&lng=9.7679&radius=5", nil, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	cases := decodeBody[[]handlers.CaseResponse](t, rr)
	require.Len(t, cases, 1)
	assert.Equal(t, near.ID, cases[0].ID)
}

func TestCase_CasesHandlerInvalidQuery(t *testing.T) {
	h := handlers.Case{Svc: newTestService(t)}

	for name, target := range map[string]string{
		"status":        "/api/v1/cases?status=lost",
		"lat only":      "/api/v1/cases?lat=4.05",
		"negative":      "/api/v1/cases?lat=4.05&lng=9.7&radius=-1",
		"bad date":      "/api/v1/cases?from=yesterday",
		"inverted span": "/api/v1/cases?from=2026-03-10&to=2026-03-01",
	} {
		t.Run(name, func(t *testing.T) {
			rr := serve(h.CasesHandler, newRequest(t, "GET", target, nil, nil))
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
}

func TestCase_CasesHandlerDateOnlyUpperBound(t *testing.T) {
	svc := newTestService(t)
	c := seedCase(t, svc, "Amina", nil)
	h := handlers.Case{Svc: svc}
	day := c.CreatedAt.UTC().Format("2006-01-02")

	rr := serve(h.CasesHandler, newRequest(t, "GET", "/api/v1/cases?from="+day+"&to="+day, nil, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cases := decodeBody[[]handlers.CaseResponse](t, rr)
	require.Len(t, cases, 1)
	assert.Equal(t, c.ID, cases[0].ID)

	before := c.CreatedAt.UTC().AddDate(0, 0, -1).Format("2006-01-02")
	rr = serve(h.CasesHandler, newRequest(t, "GET", "/api/v1/cases?to="+before, nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[[]handlers.CaseResponse](t, rr))
}

func TestCase_CommentCounts(t *testing.T) {
	svc := newTestService(t)
	c := seedCase(t, svc, "Amina", nil)
	seedCase(t, svc, "Bello", nil)
	ctx := context.Background()
	_, err := svc.AddComment(ctx, c.ID, "Ali", "seen at the bus station", false)
	require.NoError(t, err)
	hidden, err := svc.AddComment(ctx, c.ID, "Spam", "buy now", false)
	require.NoError(t, err)
	_, err = svc.OverrideComment(ctx, hidden.ID, moderation.DecisionHide, "root")
	require.NoError(t, err)
	h := handlers.Case{Svc: svc}

	rr := serve(h.CaseByIDHandler, newRequest(t, "GET", "/api/v1/cases/"+c.ID, nil, map[string]string{"case_id": c.ID}))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decodeBody[handlers.CaseResponse](t, rr).CommentCount)

	rr = serve(h.CasesHandler, newRequest(t, "GET", "/api/v1/cases", nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	counts := map[string]int{}
	for _, cr := range decodeBody[[]handlers.CaseResponse](t, rr) {
		counts[cr.FullName] = cr.CommentCount
	}
	assert.Equal(t, map[string]int{"Amina": 1, "Bello": 0}, counts)
	assert.Contains(t, rr.Body.String(), `"commentCount":0`)
}

func TestCase_CaseByIDHandlerNotFound(t *testing.T) {
	h := handlers.Case{Svc: newTestService(t)}

	rr := serve(h.CaseByIDHandler, newRequest(t, "GET", "/api/v1/cases/1234", nil, map[string]string{"case_id": "1234"}))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, errorBody("failed to get case by ID", "get case 1234: not found"), rr.Body.String())
}

func TestCase_CaseByIDHandlerWithholdsFlaggedPhoto(t *testing.T) {
	svc := newTestService(t)
	c := seedCase(t, svc, "Flagged", nil)
	flagCase(t, svc, c.ID)

	h := handlers.Case{Svc: svc, Photos: prefixPhotos{}}
	rr := serve(h.CaseByIDHandler, newRequest(t, "GET", "/api/v1/cases/"+c.ID, nil, map[string]string{"case_id": c.ID}))

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeBody[handlers.CaseResponse](t, rr)
	assert.Equal(t, models.StatusFlagged, resp.Status)
	assert.Empty(t, resp.PhotoRef)
	assert.Empty(t, resp.PhotoURL)
	assert.Equal(t, "Under Review", resp.Label.Text)
}

func TestCase_AttestHandlerFamily(t *testing.T) {
	svc := newTestService(t)
	c := seedCase(t, svc, "Amina", nil)
	h := handlers.Case{Svc: svc, Validate: api.NewValidator()}

	req := newRequest(t, "POST", "/api/v1/cases/"+c.ID+"/attest", map[string]string{"source": "family"}, map[string]string{"case_id": c.ID})
	rr := serve(h.AttestHandler, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody[handlers.CaseResponse](t, rr)
	assert.Equal(t, models.StatusVerified, resp.Status)
	assert.True(t, resp.Verification.FamilyAttestation)
}

func TestCase_AttestHandlerPrivilegedSources(t *testing.T) {
	tests := []struct {
		name   string
		source string
		roles  []string
		anon   bool
		status int
	}{
		{name: "police anonymous", source: "police", anon: true, status: http.StatusUnauthorized},
		{name: "police by ngo", source: "police", roles: []string{api.RoleNGO}, status: http.StatusForbidden},
		{name: "police by officer", source: "police", roles: []string{api.RoleOfficer}, status: http.StatusOK},
		{name: "ngo by officer", source: "ngo", roles: []string{api.RoleOfficer}, status: http.StatusForbidden},
		{name: "ngo by ngo", source: "ngo", roles: []string{api.RoleNGO}, status: http.StatusOK},
		{name: "ngo by admin", source: "ngo", roles: []string{api.RoleAdmin}, status: http.StatusOK},
		{name: "unknown source", source: "neighbour", anon: true, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			c := seedCase(t, svc, "Amina", nil)
			h := handlers.Case{Svc: svc, Validate: api.NewValidator()}

			req := newRequest(t, "POST", "/api/v1/cases/"+c.ID+"/attest", map[string]string{"source": tt.source}, map[string]string{"case_id": c.ID})
			if !tt.anon {
				req = withPrincipal(req, "Insp. Fouda", tt.roles...)
			}
			rr := serve(h.AttestHandler, req)
			assert.Equal(t, tt.status, rr.Code, rr.Body.String())
		})
	}
}

func TestCase_AttestHandlerClosedCase(t *testing.T) {
	svc := newTestService(t)
	c := seedCase(t, svc, "Amina", nil)
	_, err := svc.MarkClosed(context.Background(), c.ID, "admin", "")
	require.NoError(t, err)
	h := handlers.Case{Svc: svc, Validate: api.NewValidator()}

	req := newRequest(t, "POST", "/api/v1/cases/"+c.ID+"/attest", map[string]string{"source": "family"}, map[string]string{"case_id": c.ID})
	rr := serve(h.AttestHandler, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCase_ReportCaseHandler(t *testing.T) {
	svc := newTestService(t)
	c := seedCase(t, svc, "Amina", nil)
	h := handlers.Case{Svc: svc, Validate: api.NewValidator()}
	vars := map[string]string{"case_id": c.ID}

	report := func(remote, reason string) *handlers.CaseResponse {
		req := newRequest(t, "POST", "/api/v1/cases/"+c.ID+"/report", map[string]string{"reason": reason}, vars)
		req.RemoteAddr = remote + ":40000"
		rr := serve(h.ReportCaseHandler, req)
		if rr.Code != http.StatusOK {
			return nil
		}
		resp := decodeBody[handlers.CaseResponse](t, rr)
		return &resp
	}

	first := report("198.51.100.1", "Fake or misleading")
	require.NotNil(t, first)
	assert.Equal(t, 1, first.Moderation.ReportCount)

	again := report("198.51.100.1", "wrong_information")
	require.NotNil(t, again)
	assert.Equal(t, 1, again.Moderation.ReportCount, "same session is counted once")

	report("198.51.100.2", "already_found")
	last := report("198.51.100.3", "other")
	require.NotNil(t, last)
	assert.Equal(t, 3, last.Moderation.ReportCount)
	assert.Equal(t, models.StatusFlagged, last.Status)
}

func TestCase_ReportCaseHandlerIgnoresClientChosenIdentity(t *testing.T) {
	svc := newTestService(t)
	c := seedCase(t, svc, "Amina", nil)
	h := handlers.Case{Svc: svc, Validate: api.NewValidator()}
	vars := map[string]string{"case_id": c.ID}

	for i := 0; i < 3; i++ {
		req := newRequest(t, "POST", "/api/v1/cases/"+c.ID+"/report", map[string]string{"reason": "other"}, vars)
		req.RemoteAddr = "198.51.100.9:40000"
		req.Header.Set("X-Session-ID", fmt.Sprintf("rotated-%d", i))
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.Header.Set("User-Agent", fmt.Sprintf("agent-%d", i))
		rr := serve(h.ReportCaseHandler, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	got, err := svc.GetCase(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Moderation.ReportCount)
	assert.Equal(t, models.StatusUnverified, got.Status)
}

func TestCase_ReportCaseHandlerSignedInReporters(t *testing.T) {
	svc := newTestService(t)
	c := seedCase(t, svc, "Amina", nil)
	h := handlers.Case{Svc: svc, Validate: api.NewValidator()}
	vars := map[string]string{"case_id": c.ID}

	// two officers behind the same address are distinct reporters
	for _, name := range []string{"officer-1", "officer-2", "officer-1"} {
		req := withPrincipal(newRequest(t, "POST", "/api/v1/cases/"+c.ID+"/report", map[string]string{"reason": "other"}, vars), name, api.RoleOfficer)
		req.RemoteAddr = "198.51.100.9:40000"
		rr := serve(h.ReportCaseHandler, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	got, err := svc.GetCase(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Moderation.ReportCount)
}

func TestCase_ReportCaseHandlerUnknownReason(t *testing.T) {
	svc := newTestService(t)
	c := seedCase(t, svc, "Amina", nil)
	h := handlers.Case{Svc: svc, Validate: api.NewValidator()}

	req := newRequest(t, "POST", "/api/v1/cases/"+c.ID+"/report", map[string]string{"reason": "boring"}, map[string]string{"case_id": c.ID})
	rr := serve(h.ReportCaseHandler, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, errorBody("failed to report case", `validation error: unknown report reason "boring"`), rr.Body.String())
}

func TestCase_SightingHandler(t *testing.T) {
	svc := newTestService(t)
	c := seedCase(t, svc, "Amina", nil)
	h := handlers.Case{Svc: svc, Validate: api.NewValidator()}

	req := newRequest(t, "POST", "/api/v1/cases/"+c.ID+"/sightings",
		map[string]string{"location": "Bonabéri bridge", "note": "near the bus stop"},
		map[string]string{"case_id": c.ID})
	rr := serve(h.SightingHandler, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody[handlers.CaseResponse](t, rr)
	assert.Equal(t, models.StatusSighting, resp.SubStatus)
	assert.Equal(t, "Possible Sighting", resp.Label.Text)
	assert.Equal(t, models.EventSighting, resp.Timeline[len(resp.Timeline)-1].Type)
}

func TestCase_SightingHandlerEmpty(t *testing.T) {
	svc := newTestService(t)
	c := seedCase(t, svc, "Amina", nil)
	h := handlers.Case{Svc: svc, Validate: api.NewValidator()}

	req := newRequest(t, "POST", "/api/v1/cases/"+c.ID+"/sightings", map[string]string{}, map[string]string{"case_id": c.ID})
	rr := serve(h.SightingHandler, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCase_ReporterCasesHandler(t *testing.T) {
	svc := newTestService(t)
	c := seedCase(t, svc, "Amina", nil)
	flagCase(t, svc, c.ID)
	h := handlers.Case{Svc: svc}

	asReporter := func(target, phone string) *http.Request {
		return withPrincipal(newRequest(t, "GET", target, nil, nil), phone, api.RoleReporter)
	}

	rr := serve(h.ReporterCasesHandler, asReporter("/api/v1/reporter/cases", "+237600000001"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cases := decodeBody[[]handlers.CaseResponse](t, rr)
	require.Len(t, cases, 1)
	assert.Equal(t, "marie@example.com", cases[0].Reporter.Email)

	// the query string cannot widen a reporter token
	rr = serve(h.ReporterCasesHandler, asReporter("/api/v1/reporter/cases?phone=%2B237600000001", "+237699999999"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[[]handlers.CaseResponse](t, rr))

	rr = serve(h.ReporterCasesHandler, withPrincipal(newRequest(t, "GET", "/api/v1/reporter/cases?phone=%2B237600000001", nil, nil), "root", api.RoleAdmin))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]handlers.CaseResponse](t, rr), 1)

	rr = serve(h.ReporterCasesHandler, withPrincipal(newRequest(t, "GET", "/api/v1/reporter/cases", nil, nil), "root", api.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCase_ReporterCasesHandlerRequiresToken(t *testing.T) {
	svc := newTestService(t)
	seedCase(t, svc, "Amina", nil)
	h := handlers.Case{Svc: svc}

	rr := serve(h.ReporterCasesHandler, newRequest(t, "GET", "/api/v1/reporter/cases?phone=%2B237600000001", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotContains(t, rr.Body.String(), "marie@example.com")

	rr = serve(h.ReporterCasesHandler, withPrincipal(newRequest(t, "GET", "/api/v1/reporter/cases?phone=%2B237600000001", nil, nil), "officer-17", api.RoleOfficer))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCase_LiveHandlerUnknownCase(t *testing.T) {
	h := handlers.Case{Svc: newTestService(t)}

	rr := serve(h.LiveHandler, newRequest(t, "GET", "/api/v1/cases/nope/live", nil, map[string]string{"case_id": "nope"}))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
