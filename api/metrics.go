package api

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// RequestTrace tracks timing for a single request
type RequestTrace struct {
	RequestID     string         `json:"requestId"`
	Method        string         `json:"method"`
	Path          string         `json:"path"`
	Status        int            `json:"status"`
	StartTime     time.Time      `json:"startTime"`
	TotalDuration time.Duration  `json:"totalDuration"`
	DBQueries     []DBQueryTrace `json:"dbQueries"`
	DBTotalTime   time.Duration  `json:"dbTotalTime"`
	Error         string         `json:"error,omitempty"`
}

// DBQueryTrace tracks a single store call
type DBQueryTrace struct {
	Operation  string        `json:"operation"`
	Collection string        `json:"collection"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}

// RouteMetrics aggregates metrics for one normalised route
type RouteMetrics struct {
	Method      string        `json:"method"`
	Path        string        `json:"path"`
	Count       int64         `json:"count"`
	ErrorCount  int64         `json:"errorCount"`
	TotalTime   time.Duration `json:"totalTime"`
	AvgTime     time.Duration `json:"avgTime"`
	MinTime     time.Duration `json:"minTime"`
	MaxTime     time.Duration `json:"maxTime"`
	P95Time     time.Duration `json:"p95Time"`
	DBTotalTime time.Duration `json:"dbTotalTime"`
	LastRequest time.Time     `json:"lastRequest"`

	recent []time.Duration
}

// MetricsSummary is the overall view served on the admin metrics route
type MetricsSummary struct {
	TotalRequests  int64           `json:"totalRequests"`
	TotalErrors    int64           `json:"totalErrors"`
	ErrorRate      float64         `json:"errorRate"`
	TotalDBQueries int64           `json:"totalDbQueries"`
	AvgDBTime      string          `json:"avgDbTime"`
	Since          time.Time       `json:"since"`
	SlowestRoutes  []*RouteMetrics `json:"slowestRoutes"`
}

const (
	traceBuffer  = 1000
	recentWindow = 200
)

// MetricsCollector aggregates request traces off the request path. Traces
// are queued on a buffered channel and dropped when it is full.
type MetricsCollector struct {
	mu             sync.RWMutex
	routes         map[string]*RouteMetrics
	since          time.Time
	totalRequests  int64
	totalErrors    int64
	totalDBQueries int64
	totalDBTime    time.Duration
	traces         chan RequestTrace
}

// NewMetricsCollector starts a collector that runs until ctx is done
func NewMetricsCollector(ctx context.Context) *MetricsCollector {
	mc := &MetricsCollector{
		routes: make(map[string]*RouteMetrics),
		since:  time.Now(),
		traces: make(chan RequestTrace, traceBuffer),
	}
	go mc.run(ctx)
	return mc
}

// RecordTrace queues trace without blocking
func (mc *MetricsCollector) RecordTrace(trace RequestTrace) {
	select {
	case mc.traces <- trace:
	default:
	}
}

func (mc *MetricsCollector) run(ctx context.Context) {
	for {
		select {
		case trace := <-mc.traces:
			mc.process(trace)
		case <-ctx.Done():
			return
		}
	}
}

func (mc *MetricsCollector) process(trace RequestTrace) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	path := normalizeRoutePath(trace.Path)
	key := trace.Method + " " + path
	m, ok := mc.routes[key]
	if !ok {
		m = &RouteMetrics{Method: trace.Method, Path: path, MinTime: trace.TotalDuration}
		mc.routes[key] = m
	}

	m.Count++
	m.TotalTime += trace.TotalDuration
	m.AvgTime = m.TotalTime / time.Duration(m.Count)
	m.LastRequest = trace.StartTime
	if trace.TotalDuration < m.MinTime {
		m.MinTime = trace.TotalDuration
	}
	if trace.TotalDuration > m.MaxTime {
		m.MaxTime = trace.TotalDuration
	}
	m.DBTotalTime += trace.DBTotalTime
	if trace.Status >= 400 {
		m.ErrorCount++
		mc.totalErrors++
	}
	m.recent = append(m.recent, trace.TotalDuration)
	if len(m.recent) > recentWindow {
		m.recent = m.recent[len(m.recent)-recentWindow:]
	}
	m.P95Time = percentile(m.recent, 0.95)

	mc.totalRequests++
	mc.totalDBQueries += int64(len(trace.DBQueries))
	mc.totalDBTime += trace.DBTotalTime
}

func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Summary returns the totals and the slowest routes
func (mc *MetricsCollector) Summary(slowest int) MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	s := MetricsSummary{
		TotalRequests:  mc.totalRequests,
		TotalErrors:    mc.totalErrors,
		TotalDBQueries: mc.totalDBQueries,
		Since:          mc.since,
		AvgDBTime:      time.Duration(0).String(),
	}
	if mc.totalRequests > 0 {
		s.ErrorRate = float64(mc.totalErrors) / float64(mc.totalRequests)
	}
	if mc.totalDBQueries > 0 {
		s.AvgDBTime = (mc.totalDBTime / time.Duration(mc.totalDBQueries)).String()
	}

	routes := make([]*RouteMetrics, 0, len(mc.routes))
	for _, m := range mc.routes {
		cp := *m
		cp.recent = nil
		routes = append(routes, &cp)
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].AvgTime == routes[j].AvgTime {
			return routes[i].Method+routes[i].Path < routes[j].Method+routes[j].Path
		}
		return routes[i].AvgTime > routes[j].AvgTime
	})
	if slowest > 0 && len(routes) > slowest {
		routes = routes[:slowest]
	}
	s.SlowestRoutes = routes
	return s
}

var (
	uuidSegment     = regexp.MustCompile(`/[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}(/|$)`)
	objectIDSegment = regexp.MustCompile(`/[0-9a-fA-F]{24}(/|$)`)
)

// normalizeRoutePath replaces id segments with {id} so one route aggregates
// into one entry, e.g. /api/v1/cases/<uuid>/comments -> /api/v1/cases/{id}/comments
func normalizeRoutePath(path string) string {
	path = uuidSegment.ReplaceAllString(path, "/{id}$1")
	path = objectIDSegment.ReplaceAllString(path, "/{id}$1")
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

type requestTraceKey struct{}

type requestTraceContext struct {
	mu    sync.Mutex
	trace *RequestTrace
}

// WithRequestTrace attaches trace to ctx so store calls can be recorded
func WithRequestTrace(ctx context.Context, trace *RequestTrace) context.Context {
	return context.WithValue(ctx, requestTraceKey{}, &requestTraceContext{trace: trace})
}

// RecordDBQueryFromContext adds a store call to the trace on ctx, if any
func RecordDBQueryFromContext(ctx context.Context, operation, collection string, duration time.Duration, err error) {
	rt, ok := ctx.Value(requestTraceKey{}).(*requestTraceContext)
	if !ok || rt.trace == nil {
		return
	}
	q := DBQueryTrace{
		Operation:  operation,
		Collection: collection,
		Duration:   duration,
		Timestamp:  time.Now(),
	}
	if err != nil {
		q.Error = err.Error()
	}
	rt.mu.Lock()
	rt.trace.DBQueries = append(rt.trace.DBQueries, q)
	rt.trace.DBTotalTime += duration
	rt.mu.Unlock()
}
