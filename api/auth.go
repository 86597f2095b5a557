package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/config"
)

// Roles carried by bearer tokens
const (
	RoleOfficer  = "officer"
	RoleNGO      = "ngo"
	RoleAdmin    = "admin"
	RoleReporter = "reporter"
)

// ReporterTokenTTL is how long the token handed out with a new case stays
// valid for the reporter dashboard
const ReporterTokenTTL = 90 * 24 * time.Hour

// ErrTokensDisabled is returned when no signing secret is configured
var ErrTokensDisabled = errors.New("bearer tokens are not configured")

// tokenCacheTTL bounds how long a verified token is trusted without
// re-checking its signature and expiry
const tokenCacheTTL = 5 * time.Minute

// Claims are the bearer token claims minted by the identity service
type Claims struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller
type Principal struct {
	ID    string
	Name  string
	Roles []string
}

// HasRole reports whether p holds any of roles
func (p Principal) HasRole(roles ...string) bool {
	for _, have := range p.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal stores p on ctx
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored on ctx
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticator verifies admin basic credentials and role bearing JWTs
type Authenticator struct {
	authenticator auth.Authenticator
	secret        []byte
	adminUser     string
	adminHash     []byte
}

// NewAuthenticator sets up the go-guardian strategies from conf
func NewAuthenticator(conf *config.Config) *Authenticator {
	a := &Authenticator{
		secret:    []byte(conf.JWTSecret),
		adminUser: conf.AdminUser,
		adminHash: []byte(conf.AdminPasswordHash),
	}
	// basic caches by user name and bearer by raw token, so the two must
	// never share a cache
	basicCache := store.NewFIFO(context.Background(), tokenCacheTTL)
	tokenCache := store.NewFIFO(context.Background(), tokenCacheTTL)
	a.authenticator = auth.New()
	a.authenticator.EnableStrategy(basic.StrategyKey, basic.New(a.validateAdmin, basicCache))
	a.authenticator.EnableStrategy(bearer.CachedStrategyKey, bearer.New(a.verifyToken, tokenCache))
	return a
}

// validateAdmin checks the configured admin account
func (a *Authenticator) validateAdmin(_ context.Context, _ *http.Request, userName, password string) (auth.Info, error) {
	if a.adminUser == "" || len(a.adminHash) == 0 {
		return nil, errors.New("admin account is not configured")
	}
	given := sha256.Sum256([]byte(userName))
	expected := sha256.Sum256([]byte(a.adminUser))
	usernameMatch := subtle.ConstantTimeCompare(given[:], expected[:]) == 1

	if err := bcrypt.CompareHashAndPassword(a.adminHash, []byte(password)); err != nil {
		return nil, fmt.Errorf("failed to compare password")
	}
	if !usernameMatch {
		return nil, fmt.Errorf("invalid credentials")
	}
	return auth.NewDefaultUser(userName, "admin", []string{RoleAdmin}, nil), nil
}

// verifyToken parses an HS256 token signed with the shared secret
func (a *Authenticator) verifyToken(_ context.Context, _ *http.Request, token string) (auth.Info, error) {
	if len(a.secret) == 0 {
		return nil, ErrTokensDisabled
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	return auth.NewDefaultUser(name, claims.Subject, claims.Roles, nil), nil
}

// IssueReporterToken signs a reporter token whose subject is the reporter
// phone, so the bearer can read only their own cases
func (a *Authenticator) IssueReporterToken(phone, name string) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrTokensDisabled
	}
	now := time.Now()
	claims := Claims{
		Name:  name,
		Roles: []string{RoleReporter},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ReporterTokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Authenticate resolves the caller when credentials are present. Requests
// without an Authorization header pass through anonymously; bad credentials
// are rejected.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}
		info, err := a.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Warnw("unauthorized", "url", r.URL.String(), "error", err)
			config.ErrorStatus("invalid credentials", http.StatusUnauthorized, w, apperr.ErrUnauthorized)
			return
		}
		p := Principal{ID: info.ID(), Name: info.UserName(), Roles: info.Groups()}
		zap.S().Debugw("authenticated", "user", p.Name, "roles", p.Roles)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireRole rejects callers lacking every one of roles. It must run after
// Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				config.ErrorStatus("authentication required", http.StatusUnauthorized, w, apperr.ErrUnauthorized)
				return
			}
			if !p.HasRole(roles...) {
				config.ErrorStatus("insufficient role", http.StatusForbidden, w, apperr.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
