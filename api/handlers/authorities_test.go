package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rhejna/missing-person-app/api"
	"github.com/Rhejna/missing-person-app/api/handlers"
	"github.com/Rhejna/missing-person-app/models"
)

type locatorMock struct {
	mock.Mock
}

func (m *locatorMock) Locate(ip string) (models.Coordinate, bool) {
	args := m.Called(ip)
	return args.Get(0).(models.Coordinate), args.Bool(1)
}

var testAuthorities = []models.Authority{
	{Name: "Commissariat Central", Category: models.CategoryPolice, Phone: "117", Coordinate: models.Coordinate{Lat: 4.0600, Lng: 9.7679}},
	{Name: "Hôpital Laquintinie", Category: models.CategoryHospital, Phone: "+237233423000", Coordinate: models.Coordinate{Lat: 4.0550, Lng: 9.7679}},
	{Name: "Croix-Rouge", Category: models.CategoryNGO, Phone: "+237233421111", Coordinate: models.Coordinate{Lat: 4.0900, Lng: 9.7679}},
	{Name: "Yaoundé Police", Category: models.CategoryPolice, Phone: "117", Coordinate: models.Coordinate{Lat: 3.8480, Lng: 11.5021}},
}

func TestAuthority_AuthoritiesHandler(t *testing.T) {
	h := handlers.Authority{Svc: newTestService(t, testAuthorities...), Fallback: douala}

	rr := serve(h.AuthoritiesHandler, newRequest(t, "GET", "/api/v1/authorities?lat=4.0511&lng=9.7679", nil, nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decodeBody[[]models.NearbyAuthority](t, rr)
	require.Len(t, got, 3)
	assert.Equal(t, "Hôpital Laquintinie", got[0].Name)
	assert.Equal(t, "Commissariat Central", got[1].Name)
	assert.Equal(t, "Croix-Rouge", got[2].Name)
	assert.Equal(t, "0.4 km", got[0].Distance)
}

func TestAuthority_AuthoritiesHandlerCategoryAndRadius(t *testing.T) {
	h := handlers.Authority{Svc: newTestService(t, testAuthorities...), Fallback: douala}

	rr := serve(h.AuthoritiesHandler, newRequest(t, "GET", "/api/v1/authorities?lat=4.0511&lng=9.7679&category=Police&radius=500", nil, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decodeBody[[]models.NearbyAuthority](t, rr)
	require.Len(t, got, 1, "radius is capped so Yaoundé stays out of range")
	assert.Equal(t, "Commissariat Central", got[0].Name)

	rr = serve(h.AuthoritiesHandler, newRequest(t, "GET", "/api/v1/authorities?lat=4.0511&lng=9.7679&category=fire", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h.AuthoritiesHandler, newRequest(t, "GET", "/api/v1/authorities?lat=4.0511&lng=9.7679&radius=-2", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h.AuthoritiesHandler, newRequest(t, "GET", "/api/v1/authorities?lat=400&lng=9.7679", nil, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthority_AuthoritiesHandlerLocatesViewer(t *testing.T) {
	locator := &locatorMock{}
	locator.On("Locate", "41.202.207.1").Return(models.Coordinate{Lat: 3.8480, Lng: 11.5021}, true)
	h := handlers.Authority{Svc: newTestService(t, testAuthorities...), Locator: locator, Fallback: douala}

	proxies, err := api.NewProxyTrust([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	req := newRequest(t, "GET", "/api/v1/authorities", nil, nil)
	req.RemoteAddr = "10.0.0.2:5050"
	req.Header.Set("X-Forwarded-For", "41.202.207.1, 10.0.0.1")
	rr := httptest.NewRecorder()
	api.RealIPMiddleware(proxies)(http.HandlerFunc(h.AuthoritiesHandler)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeBody[[]models.NearbyAuthority](t, rr)
	require.Len(t, got, 1)
	assert.Equal(t, "Yaoundé Police", got[0].Name)
	locator.AssertExpectations(t)
}

func TestAuthority_AuthoritiesHandlerFallback(t *testing.T) {
	locator := &locatorMock{}
	locator.On("Locate", mock.Anything).Return(models.Coordinate{}, false)
	h := handlers.Authority{Svc: newTestService(t, testAuthorities...), Locator: locator, Fallback: douala}

	req := newRequest(t, "GET", "/api/v1/authorities", nil, nil)
	req.RemoteAddr = "127.0.0.1:5050"
	rr := serve(h.AuthoritiesHandler, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]models.NearbyAuthority](t, rr), 3)
}

func TestAuthority_AuthoritiesHandlerEmptyDirectory(t *testing.T) {
	h := handlers.Authority{Svc: newTestService(t), Fallback: douala}

	rr := serve(h.AuthoritiesHandler, newRequest(t, "GET", "/api/v1/authorities?lat=4.0511&lng=9.7679", nil, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
}
