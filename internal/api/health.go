package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/galactic-survival/internal/games"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

const storePingTimeout = 2 * time.Second

// HealthCheckResponse represents a comprehensive health check response
type HealthCheckResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit,omitempty"`
	BuildTime string                 `json:"build_time,omitempty"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks"`
	System    SystemInfo             `json:"system"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HealthCheck represents an individual health check
type HealthCheck struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked string       `json:"last_checked"`
	Duration    string       `json:"duration,omitempty"`
}

// SystemInfo contains system information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	GOMAXPROCS    int    `json:"gomaxprocs"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
	MemoryTotal   uint64 `json:"memory_total_bytes"`
	MemorySys     uint64 `json:"memory_sys_bytes"`
	GCCycles      uint32 `json:"gc_cycles"`
}

// MetricsResponse represents basic performance metrics
type MetricsResponse struct {
	Timestamp  string               `json:"timestamp"`
	Version    string               `json:"version"`
	Uptime     string               `json:"uptime"`
	System     SystemInfo           `json:"system"`
	Operations map[string]OpMetrics `json:"operations"`
	RequestID  string               `json:"request_id,omitempty"`
}

// OpMetrics represents operation-specific metrics
type OpMetrics struct {
	TotalRequests   uint64 `json:"total_requests"`
	SuccessRequests uint64 `json:"success_requests"`
	ErrorRequests   uint64 `json:"error_requests"`
	AvgDurationMs   int64  `json:"avg_duration_ms"`
	LastRequest     string `json:"last_request,omitempty"`

	totalDuration time.Duration
}

// opRecorder accumulates per-operation counters for /metrics.
type opRecorder struct {
	mu  sync.Mutex
	ops map[string]*OpMetrics
}

func newOpRecorder() *opRecorder {
	return &opRecorder{ops: make(map[string]*OpMetrics)}
}

func (o *opRecorder) record(op string, start time.Time, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	m, ok := o.ops[op]
	if !ok {
		m = &OpMetrics{}
		o.ops[op] = m
	}
	m.TotalRequests++
	if err != nil {
		m.ErrorRequests++
	} else {
		m.SuccessRequests++
	}
	m.totalDuration += time.Since(start)
	m.AvgDurationMs = (m.totalDuration / time.Duration(m.TotalRequests)).Milliseconds()
	m.LastRequest = time.Now().UTC().Format(time.RFC3339)
}

func (o *opRecorder) snapshot() map[string]OpMetrics {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]OpMetrics, len(o.ops))
	for k, v := range o.ops {
		out[k] = *v
	}
	return out
}

// handleHealthCheck provides comprehensive health check endpoint
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())
	start := time.Now()

	checks := map[string]HealthCheck{
		"rules": s.checkRulesHealth(),
		"store": s.checkStoreHealth(r.Context()),
	}
	overallStatus := HealthStatusHealthy
	for _, check := range checks {
		switch check.Status {
		case HealthStatusUnhealthy:
			overallStatus = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		}
	}

	response := HealthCheckResponse{
		Status:    overallStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		Uptime:    time.Since(s.startTime).String(),
		Checks:    checks,
		System:    s.getSystemInfo(),
		RequestID: requestID,
	}

	statusCode := http.StatusOK
	if overallStatus == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	s.securityLogger.LogAuditEvent(
		requestID,
		"health_check",
		"system",
		string(overallStatus),
		map[string]interface{}{
			"duration":    time.Since(start),
			"checks":      len(checks),
			"status_code": statusCode,
		},
	)

	s.writeJSON(w, statusCode, response)
}

// handleMetrics reports per-operation counters
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	response := MetricsResponse{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Version:    Version,
		Uptime:     time.Since(s.startTime).String(),
		System:     s.getSystemInfo(),
		Operations: s.ops.snapshot(),
		RequestID:  middleware.GetReqID(r.Context()),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleReadiness reports whether the store answers
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	check := s.checkStoreHealth(r.Context())
	ready := check.Status == HealthStatusHealthy

	response := map[string]interface{}{
		"ready":      ready,
		"message":    check.Message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"version":    Version,
		"request_id": requestID,
	}

	statusCode := http.StatusOK
	outcome := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		outcome = "not_ready"
	}
	s.securityLogger.LogAuditEvent(requestID, "readiness_check", "system", outcome,
		map[string]interface{}{"message": check.Message})

	s.writeJSON(w, statusCode, response)
}

// handleLiveness provides the liveness endpoint
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"alive":      true,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"version":    Version,
		"uptime":     time.Since(s.startTime).String(),
		"request_id": middleware.GetReqID(r.Context()),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// checkRulesHealth checks that every action has a registered rule
func (s *Server) checkRulesHealth() HealthCheck {
	start := time.Now()
	specs := games.ListActions()

	status := HealthStatusHealthy
	message := fmt.Sprintf("%d actions available", len(specs))
	if len(specs) == 0 {
		status = HealthStatusUnhealthy
		message = "No actions registered"
	} else if len(specs) < 4 {
		status = HealthStatusDegraded
		message = fmt.Sprintf("Only %d actions available (expected 4)", len(specs))
	}

	return HealthCheck{
		Status:      status,
		Message:     message,
		LastChecked: time.Now().UTC().Format(time.RFC3339),
		Duration:    time.Since(start).String(),
	}
}

// checkStoreHealth pings the game store
func (s *Server) checkStoreHealth(ctx context.Context) HealthCheck {
	start := time.Now()

	status := HealthStatusHealthy
	message := "Store connection healthy"
	if s.db == nil {
		status = HealthStatusUnhealthy
		message = "Store not initialized"
	} else {
		ctx, cancel := context.WithTimeout(ctx, storePingTimeout)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			status = HealthStatusUnhealthy
			message = err.Error()
		}
	}

	return HealthCheck{
		Status:      status,
		Message:     message,
		LastChecked: time.Now().UTC().Format(time.RFC3339),
		Duration:    time.Since(start).String(),
	}
}

// getSystemInfo collects system information
func (s *Server) getSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		GOMAXPROCS:    runtime.GOMAXPROCS(0),
		MemoryAlloc:   m.Alloc,
		MemoryTotal:   m.TotalAlloc,
		MemorySys:     m.Sys,
		GCCycles:      m.NumGC,
	}
}
