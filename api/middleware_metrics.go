package api

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Rhejna/missing-person-app/logging"
)

// slowRequest is logged at warn level
const slowRequest = time.Second

// MetricsMiddleware records one trace per request into mc. Health and
// metrics routes are not tracked.
func MetricsMiddleware(mc *MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/health" || strings.HasPrefix(path, "/api/v1/admin/metrics") {
				next.ServeHTTP(w, r)
				return
			}

			trace := &RequestTrace{
				RequestID: logging.RequestID(r.Context()),
				Method:    r.Method,
				Path:      path,
				StartTime: time.Now(),
				DBQueries: make([]DBQueryTrace, 0),
			}
			r = r.WithContext(WithRequestTrace(r.Context(), trace))
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			trace.TotalDuration = time.Since(trace.StartTime)
			trace.Status = rw.statusCode
			if rw.statusCode >= 400 {
				trace.Error = http.StatusText(rw.statusCode)
			}
			mc.RecordTrace(*trace)

			if trace.TotalDuration > slowRequest {
				logging.FromContext(r.Context()).Warnw("slow request detected",
					"method", r.Method,
					"path", path,
					"duration", trace.TotalDuration,
					"status", rw.statusCode,
					"dbQueries", len(trace.DBQueries),
					"dbTime", trace.DBTotalTime)
			}
		})
	}
}

// responseWriter captures the status code. It implements http.Hijacker so
// websocket upgrades pass through.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not implement http.Hijacker")
}
