package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/travel-control-plane/internal/observability"
	"github.com/upb/travel-control-plane/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// StatusResponse describes the running build
type StatusResponse struct {
	Service     string                  `json:"service"`
	Version     string                  `json:"version"`
	Environment string                  `json:"environment"`
	Compliance  *observability.Snapshot `json:"compliance,omitempty"`
}

// StatsSource exposes in-process compliance counters
type StatsSource interface {
	Snapshot() observability.Snapshot
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db          *sql.DB
	version     string
	environment string
	stats       StatsSource
	logger      *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *sql.DB, version, environment string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:          db,
		version:     version,
		environment: environment,
		logger:      logger,
	}
}

// WithStats makes HandleStatus report the given compliance counters
func (h *HealthHandler) WithStats(stats StatsSource) *HealthHandler {
	h.stats = stats
	return h
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// HandleStatus handles GET /api/v1/status
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Service:     "travel-control-plane",
		Version:     h.version,
		Environment: h.environment,
	}
	if h.stats != nil {
		snap := h.stats.Snapshot()
		resp.Compliance = &snap
	}
	_ = utils.WriteOK(w, resp)
}

// checkDatabase pings the database and runs a trivial query
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}

	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	return h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}
