package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/segyhp/loan-ledger/pkg/response"
)

// Check is one readiness probe, such as a database or redis ping.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []Check
	timeout time.Duration
}

func NewHealthHandler(timeout time.Duration, checks ...Check) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthHandler{
		checks:  checks,
		timeout: timeout,
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health performs a basic health check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	response.Success(w, status)
}

// Ready runs every check and reports 503 when any of them fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(h.checks)),
	}

	for _, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		err := check.Ping(ctx)
		cancel()

		if err != nil {
			status.Status = "error"
			status.Checks[check.Name] = "failed: " + err.Error()
		} else {
			status.Checks[check.Name] = "ok"
		}
	}

	if status.Status == "error" {
		response.JSON(w, http.StatusServiceUnavailable, status)
		return
	}

	response.Success(w, status)
}
