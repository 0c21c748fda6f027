package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// HealthResponse is the JSON response for the liveness endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

// ReadinessResponse is the JSON response for the readiness endpoint.
type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult is the result of a single readiness check.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthChecker can verify its own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to the HealthChecker interface.
type HealthCheckerFunc func(ctx context.Context) error

// HealthCheck calls the wrapped function.
func (f HealthCheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// ReadinessChecks holds the dependency checkers for the readiness endpoint.
type ReadinessChecks struct {
	// Required check — always run.
	CatalogLoaded func() bool

	// Optional checks — only run if non-nil.
	SnapshotStore HealthChecker
	Journal       HealthChecker
}

const checkTimeout = 2 * time.Second

// HandleHealth returns an HTTP handler for the liveness endpoint.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(HealthResponse{
			Status:  "ok",
			Version: Version,
			Commit:  Commit,
		})
	}
}

// HandleReady returns an HTTP handler for the readiness endpoint.
func HandleReady(checks ReadinessChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := make(map[string]CheckResult)
		var mu sync.Mutex
		var wg sync.WaitGroup

		record := func(name string, result CheckResult) {
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}

		// Required: widget catalog loaded.
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			if checks.CatalogLoaded != nil && checks.CatalogLoaded() {
				record("catalog", CheckResult{
					Status:    "ok",
					LatencyMs: time.Since(start).Milliseconds(),
				})
			} else {
				record("catalog", CheckResult{
					Status:    "error",
					LatencyMs: time.Since(start).Milliseconds(),
					Error:     "no widget types loaded",
				})
			}
		}()

		// Optional: snapshot store.
		if checks.SnapshotStore != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				record("snapshot_store", runCheck(r.Context(), checks.SnapshotStore))
			}()
		}

		// Optional: publish journal.
		if checks.Journal != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				record("journal", runCheck(r.Context(), checks.Journal))
			}()
		}

		wg.Wait()

		// Determine overall status.
		status := "ready"
		httpStatus := http.StatusOK
		for _, result := range results {
			if result.Status != "ok" {
				status = "not_ready"
				httpStatus = http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(httpStatus)
		json.NewEncoder(w).Encode(ReadinessResponse{
			Status: status,
			Checks: results,
		})
	}
}

// runCheck executes a health check with a per-check timeout.
func runCheck(parent context.Context, checker HealthChecker) CheckResult {
	ctx, cancel := context.WithTimeout(parent, checkTimeout)
	defer cancel()

	start := time.Now()
	err := checker.HealthCheck(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return CheckResult{
			Status:    "error",
			LatencyMs: latency,
			Error:     err.Error(),
		}
	}
	return CheckResult{
		Status:    "ok",
		LatencyMs: latency,
	}
}
