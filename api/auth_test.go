package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rhejna/missing-person-app/config"
)

const testSecret = "test-secret"

func testAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthenticator(&config.Config{
		JWTSecret:         testSecret,
		AdminUser:         "admin",
		AdminPasswordHash: string(hash),
	})
}

func signToken(t *testing.T, secret, subject string, roles []string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name:  subject,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(p.Name))
	})
}

func TestAuthenticateAnonymous(t *testing.T) {
	a := testAuthenticator(t)
	rr := httptest.NewRecorder()
	a.Authenticate(principalEcho()).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "anonymous", rr.Body.String())
}

func TestAuthenticateBearer(t *testing.T) {
	a := testAuthenticator(t)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "officer-12", []string{RoleOfficer}, time.Now().Add(time.Hour)))

	rr := httptest.NewRecorder()
	a.Authenticate(RequireRole(RoleOfficer, RoleAdmin)(principalEcho())).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "officer-12", rr.Body.String())
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	a := testAuthenticator(t)
	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, "other", "x", []string{RoleAdmin}, time.Now().Add(time.Hour))},
		{"expired", signToken(t, testSecret, "y", []string{RoleAdmin}, time.Now().Add(-time.Hour))},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rr := httptest.NewRecorder()
			a.Authenticate(principalEcho()).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Contains(t, rr.Body.String(), `"message":"invalid credentials"`)
		})
	}
}

func TestAuthenticateBasicAdmin(t *testing.T) {
	a := testAuthenticator(t)
	handler := a.Authenticate(RequireRole(RoleAdmin)(principalEcho()))

	req := httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("admin", "s3cret")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "admin", rr.Body.String())

	req = httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("admin", "wrong")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBearerDoesNotReuseBasicLogin(t *testing.T) {
	a := testAuthenticator(t)
	handler := a.Authenticate(RequireRole(RoleAdmin)(principalEcho()))

	req := httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("admin", "s3cret")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// the admin user name must not work as a bearer token
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer admin")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEqual(t, "admin", rr.Body.String())
}

func TestRequireRole(t *testing.T) {
	a := testAuthenticator(t)
	handler := a.Authenticate(RequireRole(RoleAdmin)(principalEcho()))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "ngo-1", []string{RoleNGO}, time.Now().Add(time.Hour)))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "insufficient role")
}

func TestIssueReporterToken(t *testing.T) {
	a := testAuthenticator(t)
	token, err := a.IssueReporterToken("+237600000001", "Marie Ngo")
	require.NoError(t, err)

	var got Principal
	handler := a.Authenticate(RequireRole(RoleReporter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFrom(r.Context())
	})))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "+237600000001", got.ID)
	assert.Equal(t, "Marie Ngo", got.Name)
	assert.Equal(t, []string{RoleReporter}, got.Roles)

	_, err = NewAuthenticator(&config.Config{}).IssueReporterToken("+237600000001", "Marie Ngo")
	assert.ErrorIs(t, err, ErrTokensDisabled)
}

func TestPrincipalHasRole(t *testing.T) {
	p := Principal{Roles: []string{RoleNGO}}
	assert.True(t, p.HasRole(RoleOfficer, RoleNGO))
	assert.False(t, p.HasRole(RoleAdmin))
	assert.False(t, Principal{}.HasRole(RoleAdmin))
}
