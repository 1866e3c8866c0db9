package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is satisfied by the Postgres and Redis wrappers.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db      HealthChecker
	redis   HealthChecker
	timeout time.Duration
}

func NewHealthHandler(db, redis HealthChecker) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, timeout: 2 * time.Second}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Redis    string `json:"redis,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbStatus, redisStatus := h.check(r.Context())

	response := HealthResponse{Status: "healthy", Database: dbStatus, Redis: redisStatus}
	status := http.StatusOK
	if dbStatus != "ok" || redisStatus != "ok" {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	dbStatus, redisStatus := h.check(r.Context())
	if dbStatus != "ok" || redisStatus != "ok" {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "alive"})
}

func (h *HealthHandler) check(ctx context.Context) (string, string) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return probe(ctx, h.db), probe(ctx, h.redis)
}

func probe(ctx context.Context, checker HealthChecker) string {
	if checker == nil {
		return "unconfigured"
	}
	if err := checker.Health(ctx); err != nil {
		return "error"
	}
	return "ok"
}
