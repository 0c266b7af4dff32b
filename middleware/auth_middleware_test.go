package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/catalog-inventory/internal/auth"
	"github.com/upb/catalog-inventory/internal/observability"
	"go.uber.org/zap"
)

// MockAuthenticator is a mock implementation of Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, authorization string) (auth.SecurityContext, error) {
	args := m.Called(ctx, authorization)
	return args.Get(0).(auth.SecurityContext), args.Error(1)
}

func captureContext(t *testing.T, got *auth.SecurityContext) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = GetSecurityContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	admin := auth.Authenticated("alice", auth.NewRoleSet("ADMIN"))

	tests := []struct {
		name       string
		header     string
		sc         auth.SecurityContext
		err        error
		wantUser   string
		wantResult string
	}{
		{
			name:       "valid token populates context",
			header:     "Bearer good",
			sc:         admin,
			wantUser:   "alice",
			wantResult: "valid",
		},
		{
			name:       "no header stays anonymous",
			sc:         auth.Anonymous(),
			wantResult: "absent",
		},
		{
			name:       "bad signature stays anonymous",
			header:     "Bearer forged",
			sc:         auth.Anonymous(),
			err:        auth.ErrBadSignature,
			wantResult: "bad_signature",
		},
		{
			name:       "expired stays anonymous",
			header:     "Bearer old",
			sc:         auth.Anonymous(),
			err:        auth.ErrExpired,
			wantResult: "expired",
		},
		{
			name:       "disabled account stays anonymous",
			header:     "Bearer stale",
			sc:         auth.Anonymous(),
			err:        auth.ErrAccountDisabled,
			wantResult: "account_disabled",
		},
		{
			name:       "store failure stays anonymous",
			header:     "Bearer good",
			sc:         auth.Anonymous(),
			err:        errors.New("connection refused"),
			wantResult: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authenticator := new(MockAuthenticator)
			authenticator.On("Authenticate", mock.Anything, tt.header).Return(tt.sc, tt.err)
			metrics := observability.NewMetrics()
			m := NewAuthMiddleware(authenticator, nil, metrics, zap.NewNop())

			var got auth.SecurityContext
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			m.Authenticate(captureContext(t, &got)).ServeHTTP(w, req)

			// Never blocks
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantUser, got.Username())
			assert.Equal(t, tt.wantUser != "", got.IsAuthenticated())
			assert.Contains(t, scrape(t, metrics), `inventory_auth_token_validation_total{result="`+tt.wantResult+`"} 1`)
			authenticator.AssertExpectations(t)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name          string
		sc            *auth.SecurityContext
		roles         []string
		wantStatus    int
		wantChallenge bool
	}{
		{
			name:       "no requirement admits anonymous",
			wantStatus: http.StatusOK,
		},
		{
			name:          "anonymous is unauthorized",
			roles:         []string{"ADMIN"},
			wantStatus:    http.StatusUnauthorized,
			wantChallenge: true,
		},
		{
			name:       "matching role admitted",
			sc:         ptr(auth.Authenticated("alice", auth.NewRoleSet("USER"))),
			roles:      []string{"ADMIN", "USER"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing role forbidden",
			sc:         ptr(auth.Authenticated("bob", auth.NewRoleSet("USER"))),
			roles:      []string{"ADMIN"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "role names are case-sensitive",
			sc:         ptr(auth.Authenticated("bob", auth.NewRoleSet("admin"))),
			roles:      []string{"ADMIN"},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddleware(new(MockAuthenticator), nil, nil, zap.NewNop())
			called := false
			handler := m.RequireRoles(tt.roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/books", nil)
			if tt.sc != nil {
				req = req.WithContext(WithSecurityContext(req.Context(), *tt.sc))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			assert.Equal(t, tt.wantChallenge, w.Header().Get("WWW-Authenticate") != "")
		})
	}
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddleware(new(MockAuthenticator), nil, nil, zap.NewNop())
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req = req.WithContext(WithSecurityContext(req.Context(), auth.Authenticated("alice", nil)))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()

	assert.False(t, GetSecurityContext(ctx).IsAuthenticated())
	assert.Equal(t, "", GetRequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, "req-42")
	ctx = WithSecurityContext(ctx, auth.Authenticated("alice", auth.NewRoleSet("USER")))
	assert.Equal(t, "req-42", GetRequestIDFromContext(ctx))
	assert.Equal(t, "alice", GetSecurityContext(ctx).Username())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books", nil).WithContext(ctx)
	req.Header.Set("User-Agent", "test-agent")
	info := RequestInfo(req)
	require.Equal(t, "req-42", info.RequestID)
	assert.Equal(t, "test-agent", info.UserAgent)
	assert.Equal(t, "/api/v1/books", info.Path)
	assert.Equal(t, http.MethodGet, info.Method)
}

func ptr[T any](v T) *T { return &v }

func scrape(t *testing.T, metrics *observability.Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}
