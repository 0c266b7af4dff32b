package middleware

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/catalog-inventory/internal/auth"
	"github.com/upb/catalog-inventory/services/audit"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// SecurityContextKey is the context key for the request's auth.SecurityContext
	SecurityContextKey contextKey = "security_context"
)

// GetRequestIDFromContext retrieves the request ID from context, falling back
// to the ID assigned by chi's RequestID middleware
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetSecurityContext retrieves the security context. A request that never
// passed through Authenticate is anonymous.
func GetSecurityContext(ctx context.Context) auth.SecurityContext {
	if val := ctx.Value(SecurityContextKey); val != nil {
		if sc, ok := val.(auth.SecurityContext); ok {
			return sc
		}
	}
	return auth.Anonymous()
}

// WithSecurityContext adds a security context to the context
func WithSecurityContext(ctx context.Context, sc auth.SecurityContext) context.Context {
	return context.WithValue(ctx, SecurityContextKey, sc)
}

// RequestInfo collects the request metadata recorded with audit events
func RequestInfo(r *http.Request) audit.RequestInfo {
	return audit.RequestInfo{
		RequestID: GetRequestIDFromContext(r.Context()),
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Method:    r.Method,
		Path:      r.URL.Path,
	}
}
