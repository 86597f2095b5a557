package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Rhejna/missing-person-app/api"
	"github.com/Rhejna/missing-person-app/apperr"
	"github.com/Rhejna/missing-person-app/models"
	"github.com/Rhejna/missing-person-app/moderation"
)


// maxBodyBytes caps every JSON payload
const maxBodyBytes = 1 << 20

// Page and limit defaults for listings
const (
	defaultLimit = 20
	maxLimit     = 100
)

// decodeJSON reads the body into v and runs the struct validator
func decodeJSON(r *http.Request, v interface{}, validate *validator.Validate) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperr.Validation("failed to read body: %v", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperr.Validation("malformed JSON: %v", err)
	}
	if validate == nil {
		return nil
	}
	if err := validate.Struct(v); err != nil {
		return api.ValidationError(err)
	}
	return nil
}

func getLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		zap.S().Warnf("invalid limit %q, using default of %v", raw, defaultLimit)
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func getPage(r *http.Request) int {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 0
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		zap.S().Errorf("error parsing page number: %v", err)
		return 0
	}
	if page < 0 {
		zap.S().Warnf("cannot process page number less than 0. Got: %v", page)
		return 0
	}
	return page
}

// queryFloat parses an optional float query parameter
func queryFloat(r *http.Request, key string) (float64, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, apperr.Validation("%s must be a number", key)
	}
	return f, true, nil
}

// queryCoordinate returns the lat/lng pair of the query, nil when absent
func queryCoordinate(r *http.Request) (*models.Coordinate, error) {
	lat, hasLat, err := queryFloat(r, "lat")
	if err != nil {
		return nil, err
	}
	lng, hasLng, err := queryFloat(r, "lng")
	if err != nil {
		return nil, err
	}
	if hasLat != hasLng {
		return nil, apperr.Validation("lat and lng must be given together")
	}
	if !hasLat {
		return nil, nil
	}
	return &models.Coordinate{Lat: lat, Lng: lng}, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates. With endOfDay a
// plain date stands for its last instant, so an inclusive upper bound covers
// the whole day.
func queryTime(r *http.Request, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t, nil
	}
	return nil, apperr.Validation("%s must be a date (YYYY-MM-DD) or RFC 3339 time", key)
}

func queryStatuses(r *http.Request) []models.Status {
	var out []models.Status
	for _, v := range r.URL.Query()["status"] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, models.Status(strings.ToLower(s)))
			}
		}
	}
	return out
}

// sessionKey identifies who is reporting from what the server itself can
// vouch for: the authenticated principal, otherwise the client address as
// resolved through the trusted proxies. Nothing the client picks freely
// (headers, user agent) takes part.
func sessionKey(r *http.Request) string {
	if p, ok := api.PrincipalFrom(r.Context()); ok && p.ID != "" {
		return moderation.SessionKey("principal:" + p.ID)
	}
	return moderation.SessionKey("ip:" + api.ClientIP(r))
}

// actor names the caller on timeline events
func actor(r *http.Request) string {
	if p, ok := api.PrincipalFrom(r.Context()); ok {
		if p.Name != "" {
			return p.Name
		}
		return p.ID
	}
	return "anonymous"
}
