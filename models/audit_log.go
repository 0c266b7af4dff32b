package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionLoginSucceeded  AuditAction = "login_succeeded"
	AuditActionLoginFailed     AuditAction = "login_failed"
	AuditActionLoginThrottled  AuditAction = "login_throttled"
	AuditActionTokenRefreshed  AuditAction = "token_refreshed"
	AuditActionRefreshRejected AuditAction = "refresh_rejected"
	AuditActionLogout          AuditAction = "logout"
	AuditActionAccessDenied    AuditAction = "access_denied"
)

// AuditLog represents an audit trail entry for an authentication event
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Action       AuditAction     `json:"action" db:"action"`
	Username     *string         `json:"username,omitempty" db:"username"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"` // JSONB, server-side only detail
	IPAddress    string          `json:"ip_address" db:"ip_address"`
	UserAgent    string          `json:"user_agent" db:"user_agent"`
	RequestID    string          `json:"request_id" db:"request_id"`
	Method       string          `json:"method,omitempty" db:"method"`
	Path         string          `json:"path,omitempty" db:"path"`
	StatusCode   *int            `json:"status_code,omitempty" db:"status_code"`
	ErrorMessage *string         `json:"error_message,omitempty" db:"error_message"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction) *AuditLog {
	return &AuditLog{
		ID:        uuid.New(),
		Action:    action,
		Timestamp: time.Now(),
	}
}

// WithUsername sets the username the event concerns
func (a *AuditLog) WithUsername(username string) *AuditLog {
	if username != "" {
		a.Username = &username
	}
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}

// WithRoute sets the HTTP method and path
func (a *AuditLog) WithRoute(method, path string) *AuditLog {
	a.Method = method
	a.Path = path
	return a
}

// WithStatus sets the response status code
func (a *AuditLog) WithStatus(statusCode int) *AuditLog {
	a.StatusCode = &statusCode
	return a
}

// WithError sets error information
func (a *AuditLog) WithError(statusCode int, errorMessage string) *AuditLog {
	a.StatusCode = &statusCode
	a.ErrorMessage = &errorMessage
	return a
}

// AuditLogFilter narrows an audit log listing
type AuditLogFilter struct {
	Username string
	Action   AuditAction
	Limit    int
	Offset   int
}
