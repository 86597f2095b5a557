package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/Rhejna/missing-person-app/api"
	"github.com/Rhejna/missing-person-app/models"
	"github.com/Rhejna/missing-person-app/moderation"
	"github.com/Rhejna/missing-person-app/proximity"
	"github.com/Rhejna/missing-person-app/service"
	"github.com/Rhejna/missing-person-app/store"
)

var douala = models.Coordinate{Lat: 4.0511, Lng: 9.7679}

func newTestService(t *testing.T, authorities ...models.Authority) *service.Service {
	t.Helper()
	cs := store.NewMemoryCaseStore(store.Options{})
	dir := proximity.NewDirectory()
	require.NoError(t, dir.Replace(authorities))
	return service.New(service.Deps{
		Cases:      cs,
		Comments:   store.NewMemoryCommentStore(cs, store.Options{}),
		Moderation: moderation.NewEngine(3, 2, nil),
		Resolver:   proximity.NewResolver(dir, 0, 0),
	})
}

func seedCase(t *testing.T, svc *service.Service, name string, point *models.Coordinate) models.Case {
	t.Helper()
	c, err := svc.CreateCase(context.Background(), models.CaseDraft{
		FullName:   name,
		Age:        12,
		LastSeen:   "Marché Central, Douala",
		LastSeenAt: time.Now().Add(-time.Hour),
		Point:      point,
		PhotoRef:   "missing-persons/cases/" + strings.ToLower(name),
		Reporter: models.Reporter{
			Name:         "Marie Ngo",
			Phone:        "+237600000001",
			Email:        "marie@example.com",
			Relationship: "mother",
		},
	})
	require.NoError(t, err)
	return c
}

func flagCase(t *testing.T, svc *service.Service, id string) {
	t.Helper()
	for _, session := range []string{"s1", "s2", "s3"} {
		_, err := svc.ReportCase(context.Background(), id, "fake_or_misleading", session)
		require.NoError(t, err)
	}
}

func newRequest(t *testing.T, method, target string, body interface{}, vars map[string]string) *http.Request {
	t.Helper()
	var req *http.Request
	var err error
	switch b := body.(type) {
	case nil:
		req, err = http.NewRequest(method, target, nil)
	case string:
		req, err = http.NewRequest(method, target, strings.NewReader(b))
	default:
		raw, mErr := json.Marshal(b)
		require.NoError(t, mErr)
		req, err = http.NewRequest(method, target, bytes.NewReader(raw))
	}
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func withPrincipal(req *http.Request, name string, roles ...string) *http.Request {
	return req.WithContext(api.WithPrincipal(req.Context(), api.Principal{ID: name, Name: name, Roles: roles}))
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func errorBody(message, err string) string {
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{Message: message, Error: err}})
	return string(b)
}
