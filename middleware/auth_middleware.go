package middleware

import (
	"context"
	"net/http"

	"github.com/upb/catalog-inventory/internal/auth"
	"github.com/upb/catalog-inventory/internal/observability"
	"github.com/upb/catalog-inventory/services/audit"
	"github.com/upb/catalog-inventory/utils"
	"go.uber.org/zap"
)

// Authenticator resolves an Authorization header value into a security context
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (auth.SecurityContext, error)
}

// AuthMiddleware provides authentication and authorization middleware
type AuthMiddleware struct {
	authenticator Authenticator
	audit         *audit.AuditService
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. auditService and metrics may be nil.
func NewAuthMiddleware(authenticator Authenticator, auditService *audit.AuditService, metrics *observability.Metrics, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		audit:         auditService,
		metrics:       metrics,
		logger:        logger,
	}
}

// Authenticate resolves the bearer token, if any, into the request's security
// context. It never rejects: a missing, malformed, forged or expired token, or
// one whose principal is no longer eligible, leaves the request anonymous and
// RequireRoles decides.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		sc, err := m.authenticator.Authenticate(ctx, r.Header.Get("Authorization"))
		switch {
		case err == nil && sc.IsAuthenticated():
			m.metrics.RecordTokenValidation("valid")
			m.logger.Debug("authentication successful",
				zap.String("request_id", requestID),
				zap.String("username", sc.Username()))
		case err == nil:
			m.metrics.RecordTokenValidation("absent")
		case auth.KindOf(err) == auth.KindUnknown:
			m.metrics.RecordTokenValidation("error")
			m.logger.Error("principal lookup failed during authentication",
				zap.String("request_id", requestID),
				zap.Error(err))
		default:
			reason := auth.KindOf(err).String()
			m.metrics.RecordTokenValidation(reason)
			m.logger.Info("bearer token not accepted",
				zap.String("request_id", requestID),
				zap.String("reason", reason))
		}

		next.ServeHTTP(w, r.WithContext(WithSecurityContext(ctx, sc)))
	})
}

// RequireRoles admits callers holding any of roles. Anonymous callers get 401
// with a Bearer challenge, authenticated callers without a matching role get
// 403. With no roles every caller is admitted.
func (m *AuthMiddleware) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	required := auth.NewRoleSet(roles...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sc := GetSecurityContext(ctx)

			decision := auth.Authorize(sc, required)
			if decision.Allowed {
				m.metrics.RecordAuthorization("allowed")
				next.ServeHTTP(w, r)
				return
			}

			m.metrics.RecordAuthorization(decision.Reason.String())
			m.logger.Warn("access denied",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.String("username", sc.Username()),
				zap.String("reason", decision.Reason.String()),
				zap.Strings("required_roles", required.Strings()))

			status := http.StatusForbidden
			if decision.Reason == auth.DenyUnauthorized {
				status = http.StatusUnauthorized
			}
			if err := m.audit.LogAccessDenied(RequestInfo(r), sc.Username(), status, decision.Reason.String(), required.Strings()); err != nil {
				m.logger.Warn("failed to queue audit event", zap.Error(err))
			}

			if status == http.StatusUnauthorized {
				_ = utils.WriteBearerChallenge(w, "Authentication required")
				return
			}
			_ = utils.WriteForbidden(w, "Insufficient permissions")
		})
	}
}

// RequireAuth admits any authenticated caller
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetSecurityContext(r.Context()).IsAuthenticated() {
			m.metrics.RecordAuthorization(auth.DenyUnauthorized.String())
			_ = utils.WriteBearerChallenge(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
