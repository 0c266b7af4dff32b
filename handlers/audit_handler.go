package handlers

import (
	"context"
	"net/http"

	"github.com/upb/catalog-inventory/middleware"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/utils"
	"go.uber.org/zap"
)

// AuditLogLister lists recorded authentication events
type AuditLogLister interface {
	ListLogs(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error)
}

// AuditHandler handles the /api/v1/audit endpoints
type AuditHandler struct {
	lister AuditLogLister
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(lister AuditLogLister, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		lister: lister,
		logger: logger,
	}
}

// HandleListLogs handles GET /api/v1/audit/logs?limit=&offset=&username=&action=
func (h *AuditHandler) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		_ = utils.WriteBadRequest(w, "offset must be a non-negative integer", nil)
		return
	}

	filter := models.AuditLogFilter{
		Username: r.URL.Query().Get("username"),
		Action:   models.AuditAction(r.URL.Query().Get("action")),
		Limit:    limit,
		Offset:   offset,
	}

	logs, err := h.lister.ListLogs(ctx, filter)
	if err != nil {
		h.logger.Error("failed to list audit logs",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	if err := utils.WriteJSON(w, http.StatusOK, logs); err != nil {
		h.logger.Error("failed to write audit log response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
