package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/catalog-inventory/services/audit"
	"github.com/upb/catalog-inventory/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// StatusResponse describes the running process
type StatusResponse struct {
	Status      string       `json:"status"`
	Environment string       `json:"environment"`
	Uptime      string       `json:"uptime"`
	Audit       *AuditStatus `json:"audit,omitempty"`
}

// AuditStatus reports the audit worker pool state
type AuditStatus struct {
	Started       bool `json:"started"`
	WorkerCount   int  `json:"worker_count"`
	BufferSize    int  `json:"buffer_size"`
	PendingEvents int  `json:"pending_events"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db          *sql.DB
	environment string
	audit       *audit.AuditService
	startedAt   time.Time
	logger      *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db is nil when the
// in-memory store is in use; auditService may be nil.
func NewHealthHandler(db *sql.DB, environment string, auditService *audit.AuditService, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:          db,
		environment: environment,
		audit:       auditService,
		startedAt:   time.Now(),
		logger:      logger,
	}
}

// HandleHealth handles GET /health
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /health/ready
// Readiness check - validates that all dependencies are available
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	// Check database connectivity
	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.audit != nil {
		if h.audit.GetStats().Started {
			checks["audit"] = "healthy"
		} else {
			checks["audit"] = "stopped"
			allHealthy = false
		}
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

// HandleStatus handles GET /status
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		Status:      "running",
		Environment: h.environment,
		Uptime:      time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.audit != nil {
		stats := h.audit.GetStats()
		response.Audit = &AuditStatus{
			Started:       stats.Started,
			WorkerCount:   stats.WorkerCount,
			BufferSize:    stats.BufferSize,
			PendingEvents: stats.PendingEvents,
		}
	}

	if err := utils.WriteOK(w, response); err != nil {
		h.logger.Error("failed to write status response", zap.Error(err))
	}
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil // in-memory store
	}

	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return err
	}

	return nil
}
