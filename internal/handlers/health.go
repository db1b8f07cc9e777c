package handlers

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	pkghttp "github.com/relativitydevhub/authservice/pkg/http"
)

const readinessTimeout = 5 * time.Second

// Checker reports whether a dependency is reachable
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// HealthInfo identifies the running service in liveness responses
type HealthInfo struct {
	Service     string
	Version     string
	Environment string
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	info     HealthInfo
	names    []string
	checkers []Checker
	shutdown atomic.Bool
}

func NewHealthHandler(info HealthInfo) *HealthHandler {
	return &HealthHandler{info: info}
}

// AddCheck registers a dependency probed by Readiness. Not safe for use
// once the handler is serving.
func (h *HealthHandler) AddCheck(name string, checker Checker) {
	h.names = append(h.names, name)
	h.checkers = append(h.checkers, checker)
}

// SetShutdown makes both probes report 503 while the server drains
func (h *HealthHandler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

type LivenessResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// Liveness reports process health without touching any dependency
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if h.shutdown.Load() {
		status, code = "shutting_down", http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	pkghttp.WriteJSON(w, code, LivenessResponse{
		Status:      status,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		Service:     h.info.Service,
		Version:     h.info.Version,
		Environment: h.info.Environment,
	})
}

// Readiness pings every registered dependency in parallel
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if h.shutdown.Load() {
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, ReadinessResponse{
			Status: "shutting_down",
			Checks: []HealthCheck{},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := h.runChecks(ctx)

	status, code := "ok", http.StatusOK
	for _, check := range checks {
		if !check.Healthy {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}

	pkghttp.WriteJSON(w, code, ReadinessResponse{Status: status, Checks: checks})
}

func (h *HealthHandler) runChecks(ctx context.Context) []HealthCheck {
	checks := make([]HealthCheck, len(h.checkers))

	var wg sync.WaitGroup
	for i := range h.checkers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			checks[i] = probe(ctx, h.names[i], h.checkers[i])
		}(i)
	}
	wg.Wait()

	return checks
}

func probe(ctx context.Context, name string, checker Checker) HealthCheck {
	check := HealthCheck{Name: name, Healthy: true}

	start := time.Now()
	err := checker.Ping(ctx)
	check.Latency = time.Since(start).String()

	if err != nil {
		check.Healthy = false
		check.Message = "ping failed"
	}
	return check
}
