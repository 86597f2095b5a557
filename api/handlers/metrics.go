package handlers

import (
	"net/http"
	"strconv"

	"github.com/Rhejna/missing-person-app/api"
	"github.com/Rhejna/missing-person-app/config"
)

// defaultSlowestRoutes is how many routes the dashboard shows unless asked
const defaultSlowestRoutes = 20

// MetricsHandler serves the request metrics dashboard
type MetricsHandler struct {
	Collector *api.MetricsCollector
}

// formatRouteMetrics converts duration fields to milliseconds for JSON serialization
func formatRouteMetrics(routes []*api.RouteMetrics) []map[string]interface{} {
	result := make([]map[string]interface{}, len(routes))
	for i, route := range routes {
		result[i] = map[string]interface{}{
			"method":      route.Method,
			"path":        route.Path,
			"count":       route.Count,
			"errorCount":  route.ErrorCount,
			"avgTime":     route.AvgTime.Milliseconds(),
			"minTime":     route.MinTime.Milliseconds(),
			"maxTime":     route.MaxTime.Milliseconds(),
			"p95Time":     route.P95Time.Milliseconds(),
			"dbTotalTime": route.DBTotalTime.Milliseconds(),
			"lastRequest": route.LastRequest,
		}
	}
	return result
}

// GetMetricsDashboard returns the totals and the slowest routes
func (m MetricsHandler) GetMetricsDashboard(w http.ResponseWriter, r *http.Request) {
	if m.Collector == nil {
		config.ErrorStatus("metrics are disabled", http.StatusServiceUnavailable, w, nil)
		return
	}
	limit := defaultSlowestRoutes
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	summary := m.Collector.Summary(limit)
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"summary": map[string]interface{}{
			"totalRequests":  summary.TotalRequests,
			"totalErrors":    summary.TotalErrors,
			"errorRate":      summary.ErrorRate,
			"totalDBQueries": summary.TotalDBQueries,
			"avgDBTime":      summary.AvgDBTime,
			"since":          summary.Since,
		},
		"slowestRoutes": formatRouteMetrics(summary.SlowestRoutes),
	})
}
