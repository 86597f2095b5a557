// Package docs Missing Persons API.
//
// Documentation of the Missing Persons case API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//     - bearer
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/Rhejna/missing-person-app/api/handlers"
	"github.com/Rhejna/missing-person-app/media"
	"github.com/Rhejna/missing-person-app/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/cases cases createCase
// Submits a new missing person case. It starts unverified. The response
// carries a reporter token for the reporter dashboard.
// responses:
//   201: createCaseResponse
//   400: errorResponse

// The id, case number and reporter token of the stored case
// swagger:response createCaseResponse
type createCaseResponseWrapper struct {
	// in:body
	Body handlers.CreateCaseResponse
}

// swagger:route GET /api/v1/cases cases listCases
// Lists public cases. Flagged cases are excluded. With lat and lng, cases
// are ordered nearest first.
// responses:
//   200: casesResponse
//   400: errorResponse

// A page of cases
// swagger:response casesResponse
type casesResponseWrapper struct {
	// in:body
	Body []handlers.CaseResponse
}

// swagger:route GET /api/v1/cases/{case_id} cases caseByID
// Gets a single case by ID.
// responses:
//   200: caseResponse
//   404: errorResponse

// swagger:route POST /api/v1/cases/{case_id}/attest cases attestCase
// Records a family, police or NGO attestation. Police and NGO attestations
// need an officer or NGO bearer token.
// responses:
//   200: caseResponse
//   401: errorResponse
//   403: errorResponse
//   404: errorResponse
//   409: errorResponse

// swagger:route POST /api/v1/cases/{case_id}/report cases reportCase
// Reports a case. Each signed-in user, or each client address for anonymous
// reports, counts once.
// responses:
//   200: caseResponse
//   400: errorResponse
//   404: errorResponse

// swagger:route POST /api/v1/cases/{case_id}/sightings cases recordSighting
// Records a possible sighting.
// responses:
//   200: caseResponse
//   400: errorResponse
//   404: errorResponse

// A single case
// swagger:response caseResponse
type caseResponseWrapper struct {
	// in:body
	Body handlers.CaseResponse
}

// swagger:parameters caseByID attestCase reportCase recordSighting listComments createComment caseLive
type caseIDParamWrapper struct {
	// The case id
	// in:path
	// required: true
	CaseID string `json:"case_id"`
}

// swagger:route GET /api/v1/cases/{case_id}/comments comments listComments
// Lists the visible comments of a case, newest first.
// responses:
//   200: commentsResponse
//   404: errorResponse

// swagger:route POST /api/v1/cases/{case_id}/comments comments createComment
// Adds a comment to a case.
// responses:
//   201: commentResponse
//   400: errorResponse
//   404: errorResponse

// swagger:route POST /api/v1/comments/{comment_id}/report comments reportComment
// Reports a comment. It is hidden once enough sessions reported it.
// responses:
//   200: commentResponse
//   404: errorResponse

// swagger:route GET /api/v1/cases/{case_id}/live cases caseLive
// Upgrades to a websocket streaming the case timeline.
// responses:
//   404: errorResponse

// The comments of a case
// swagger:response commentsResponse
type commentsResponseWrapper struct {
	// in:body
	Body []models.Comment
}

// A single comment
// swagger:response commentResponse
type commentResponseWrapper struct {
	// in:body
	Body models.Comment
}

// swagger:route GET /api/v1/authorities authorities nearestAuthorities
// Lists police, hospital and NGO contacts nearest to the viewer.
// responses:
//   200: authoritiesResponse
//   400: errorResponse

// Authorities ordered by distance
// swagger:response authoritiesResponse
type authoritiesResponseWrapper struct {
	// in:body
	Body []models.NearbyAuthority
}

// swagger:route POST /api/v1/media/signature media uploadSignature
// Signs a browser photo upload.
// responses:
//   200: signatureResponse
//   503: errorResponse

// Signed upload parameters
// swagger:response signatureResponse
type signatureResponseWrapper struct {
	// in:body
	Body media.Signature
}

// swagger:route GET /api/v1/reporter/cases reporter reporterCases
// Lists the cases submitted by one reporter. Needs the reporter token from
// case creation; admins may pass a phone query instead.
// responses:
//   200: casesResponse
//   401: errorResponse
//   403: errorResponse

// swagger:route GET /api/v1/admin/stats admin caseStats
// Counts cases by state. Admin only.
// responses:
//   200: statsResponse
//   401: errorResponse
//   403: errorResponse

// Case counters
// swagger:response statsResponse
type statsResponseWrapper struct {
	// in:body
	Body models.CaseStats
}

// An error
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}
