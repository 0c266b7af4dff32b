package services

import (
	"context"
	"time"

	"github.com/upb/catalog-inventory/internal/auth"
	"github.com/upb/catalog-inventory/internal/observability"
	"github.com/upb/catalog-inventory/services/audit"
	"github.com/upb/catalog-inventory/services/ratelimit"
	"go.uber.org/zap"
)

// AuthService runs the login, refresh and logout flows. Every credential or
// token failure leaves this service as ErrInvalidCredentials or
// ErrInvalidToken; the precise auth.ErrorKind is only logged and audited.
type AuthService struct {
	validator *auth.CredentialValidator
	authority *auth.TokenAuthority
	throttle  *ratelimit.LoginThrottle
	audit     *audit.AuditService
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewAuthService creates a new AuthService. throttle, auditService and
// metrics may be nil.
func NewAuthService(
	validator *auth.CredentialValidator,
	authority *auth.TokenAuthority,
	throttle *ratelimit.LoginThrottle,
	auditService *audit.AuditService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		validator: validator,
		authority: authority,
		throttle:  throttle,
		audit:     auditService,
		metrics:   metrics,
		logger:    logger,
	}
}

// TokenTTL returns the lifetime of issued tokens
func (s *AuthService) TokenTTL() time.Duration {
	return s.authority.TTL()
}

// Login validates the credentials and issues a token
func (s *AuthService) Login(ctx context.Context, info audit.RequestInfo, username, password string) (*auth.Token, error) {
	start := time.Now()

	if result := s.throttle.Check(ctx, username); !result.Allowed {
		s.metrics.RecordLogin("throttled", time.Since(start))
		s.logger.Warn("login throttled",
			zap.String("request_id", info.RequestID),
			zap.Int("failures", result.FailuresInWindow))
		s.recordAudit(s.audit.LogLoginThrottled(info, username))
		return nil, NewDomainError(ErrorTypeRateLimit, ErrTooManyLoginAttempts.Message, nil).
			WithDetail("retry_after_seconds", int(result.RetryAfter.Seconds()))
	}

	principal, err := s.validator.Validate(ctx, username, password)
	if err != nil {
		if auth.IsCredentialError(err) {
			reason := auth.KindOf(err).String()
			s.metrics.RecordLogin(reason, time.Since(start))
			s.logger.Info("login rejected",
				zap.String("request_id", info.RequestID),
				zap.String("reason", reason))
			s.throttle.RecordFailure(ctx, username)
			s.recordAudit(s.audit.LogLoginFailed(info, username, reason))
			return nil, NewDomainError(ErrorTypeUnauthorized, ErrInvalidCredentials.Message, err)
		}
		s.metrics.RecordLogin("error", time.Since(start))
		return nil, WrapInternal("failed to validate credentials", err)
	}

	token, err := s.authority.IssueFor(principal)
	if err != nil {
		s.metrics.RecordLogin("error", time.Since(start))
		return nil, WrapInternal("failed to issue token", err)
	}

	s.throttle.Reset(ctx, username)
	s.metrics.RecordLogin("success", time.Since(start))
	s.metrics.RecordTokenIssued("login")
	s.recordAudit(s.audit.LogLoginSucceeded(info, principal.Username))
	s.logger.Info("login succeeded",
		zap.String("request_id", info.RequestID),
		zap.String("username", principal.Username))

	return token, nil
}

// Refresh reissues the presented token for the authenticated caller. The
// token's subject must be the caller; roles are carried over unchanged.
func (s *AuthService) Refresh(ctx context.Context, info audit.RequestInfo, sc auth.SecurityContext, tokenString string) (*auth.Token, error) {
	if !sc.IsAuthenticated() {
		return nil, ErrInvalidToken
	}

	token, err := s.authority.RefreshAs(sc.Username(), tokenString, s.authority.Now())
	if err != nil {
		reason := auth.KindOf(err).String()
		s.logger.Info("refresh rejected",
			zap.String("request_id", info.RequestID),
			zap.String("reason", reason))
		s.recordAudit(s.audit.LogRefreshRejected(info, sc.Username(), reason))
		if auth.IsTokenError(err) {
			return nil, NewDomainError(ErrorTypeUnauthorized, ErrInvalidToken.Message, err)
		}
		return nil, WrapInternal("failed to refresh token", err)
	}

	s.metrics.RecordTokenIssued("refresh")
	s.recordAudit(s.audit.LogTokenRefreshed(info, sc.Username()))
	return token, nil
}

// Logout records the caller's logout. The token itself stays valid until it
// expires since no server-side session exists to end.
func (s *AuthService) Logout(ctx context.Context, info audit.RequestInfo, sc auth.SecurityContext, tokenString string) {
	s.authority.Logout(tokenString)
	s.recordAudit(s.audit.LogLogout(info, sc.Username()))
}

func (s *AuthService) recordAudit(err error) {
	if err != nil {
		s.logger.Warn("failed to queue audit event", zap.Error(err))
	}
}
