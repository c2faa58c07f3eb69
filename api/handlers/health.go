package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HealthCheck probes a single dependency.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthCheckFunc adapts a function to the HealthCheck interface.
type HealthCheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

func (f HealthCheckFunc) Name() string                    { return f.CheckName }
func (f HealthCheckFunc) Check(ctx context.Context) error { return f.Fn(ctx) }

// HealthHandler serves liveness, readiness, and version endpoints.
type HealthHandler struct {
	checks    []HealthCheck
	version   string
	startTime time.Time
	logger    *zap.Logger
}

// NewHealthHandler creates a health handler with the given dependency checks.
func NewHealthHandler(version string, checks []HealthCheck, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		version:   version,
		startTime: time.Now(),
		logger:    logger.With(zap.String("component", "health")),
	}
}

type checkStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type healthStatus struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime"`
	Checks  map[string]checkStatus `json:"checks,omitempty"`
}

// HandleHealth reports overall health including all dependency checks.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := healthStatus{
		Status:  "healthy",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Checks:  make(map[string]checkStatus, len(h.checks)),
	}

	code := http.StatusOK
	for _, check := range h.checks {
		start := time.Now()
		err := check.Check(ctx)
		cs := checkStatus{
			Status:    "healthy",
			LatencyMS: time.Since(start).Milliseconds(),
		}
		if err != nil {
			cs.Status = "unhealthy"
			cs.Error = err.Error()
			status.Status = "unhealthy"
			code = http.StatusServiceUnavailable
			h.logger.Warn("health check failed",
				zap.String("check", check.Name()),
				zap.Error(err))
		}
		status.Checks[check.Name()] = cs
	}

	WriteJSON(w, code, Response{
		Success:   code == http.StatusOK,
		Data:      status,
		Timestamp: time.Now().UTC(),
	}, h.logger)
}

// HandleHealthz is a minimal liveness probe.
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReady reports readiness: every dependency check must pass.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			h.logger.Warn("readiness check failed",
				zap.String("check", check.Name()),
				zap.Error(err))
			WriteJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error: &ErrorInfo{
					Code:    "NOT_READY",
					Message: check.Name() + ": " + err.Error(),
				},
				Timestamp: time.Now().UTC(),
			}, h.logger)
			return
		}
	}

	WriteSuccess(w, r, map[string]string{"status": "ready"}, h.logger)
}

// HandleVersion reports the build version and uptime.
func (h *HealthHandler) HandleVersion(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]string{
		"version": h.version,
		"uptime":  time.Since(h.startTime).Round(time.Second).String(),
	}, h.logger)
}
