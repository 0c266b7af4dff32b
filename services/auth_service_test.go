package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/catalog-inventory/internal/auth"
	"github.com/upb/catalog-inventory/internal/observability"
	"github.com/upb/catalog-inventory/repositories/memory"
	"github.com/upb/catalog-inventory/services"
	"github.com/upb/catalog-inventory/services/audit"
	"github.com/upb/catalog-inventory/services/ratelimit"
	"github.com/upb/catalog-inventory/services/users"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const authTestSecret = "auth-service-test-secret-0123456789"

type authFixture struct {
	service *services.AuthService
	users   *users.Service
	clock   *clock.Mock
	codec   *auth.TokenCodec
}

func newAuthFixture(t *testing.T, store auth.CredentialStore) *authFixture {
	t.Helper()

	mem := memory.NewStore()
	repos := mem.Repositories()
	userService := users.NewService(repos.Users, mem.TransactionManager(), bcrypt.MinCost, zap.NewNop())
	if store == nil {
		store = users.NewCredentialStore(repos.Users)
	}

	clk := clock.NewMock()
	clk.Set(time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))

	key, err := auth.NewSigningKey(authTestSecret)
	require.NoError(t, err)
	codec, err := auth.NewTokenCodec(auth.CodecConfig{Key: key, TTL: time.Hour})
	require.NoError(t, err)
	validator, err := auth.NewCredentialValidator(store)
	require.NoError(t, err)

	throttle := ratelimit.NewLoginThrottle(repos.LoginAttempts, ratelimit.Config{
		MaxFailures: 2,
		Window:      10 * time.Minute,
	}, clk, zap.NewNop())

	service := services.NewAuthService(
		validator,
		auth.NewTokenAuthority(codec, clk, auth.DefaultRefreshMinRemaining),
		throttle,
		nil,
		observability.NewMetrics(),
		zap.NewNop(),
	)

	_, err = userService.CreateUser(context.Background(), users.CreateUserInput{
		Username: "alice",
		Password: "alice-password",
		Roles:    []string{"USER"},
	})
	require.NoError(t, err)

	return &authFixture{service: service, users: userService, clock: clk, codec: codec}
}

func TestAuthService_Login(t *testing.T) {
	info := audit.RequestInfo{RequestID: "req-1"}

	t.Run("success", func(t *testing.T) {
		f := newAuthFixture(t, nil)

		token, err := f.service.Login(t.Context(), info, "alice", "alice-password")
		require.NoError(t, err)
		assert.Equal(t, "alice", token.Claims.Subject)
		assert.Equal(t, []string{"USER"}, token.Claims.Roles.Strings())
		assert.Equal(t, f.clock.Now().Add(time.Hour).Unix(), token.Claims.ExpiresAt.Unix())
		assert.Equal(t, time.Hour, f.service.TokenTTL())
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		f := newAuthFixture(t, nil)

		_, errWrong := f.service.Login(t.Context(), info, "alice", "nope-nope")
		_, errUnknown := f.service.Login(t.Context(), info, "mallory", "nope-nope")

		for _, err := range []error{errWrong, errUnknown} {
			require.Error(t, err)
			assert.True(t, services.IsUnauthorizedError(err))
			var de *services.DomainError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, services.ErrInvalidCredentials.Message, de.Message)
		}
	})

	t.Run("disabled account", func(t *testing.T) {
		f := newAuthFixture(t, nil)
		require.NoError(t, f.users.SetActive(t.Context(), "alice", false))

		_, err := f.service.Login(t.Context(), info, "alice", "alice-password")
		require.Error(t, err)
		assert.True(t, services.IsUnauthorizedError(err))
		assert.True(t, errors.Is(err, auth.ErrAccountDisabled))
	})

	t.Run("throttled after repeated failures", func(t *testing.T) {
		f := newAuthFixture(t, nil)

		for i := 0; i < 2; i++ {
			_, err := f.service.Login(t.Context(), info, "alice", "nope-nope")
			require.True(t, services.IsUnauthorizedError(err))
		}

		_, err := f.service.Login(t.Context(), info, "ALICE", "alice-password")
		require.Error(t, err)
		assert.True(t, services.IsRateLimitError(err))
		assert.Equal(t, 600, services.GetErrorDetails(err)["retry_after_seconds"])

		f.clock.Add(11 * time.Minute)
		_, err = f.service.Login(t.Context(), info, "alice", "alice-password")
		assert.NoError(t, err)
	})

	t.Run("success clears failures", func(t *testing.T) {
		f := newAuthFixture(t, nil)

		_, err := f.service.Login(t.Context(), info, "alice", "nope-nope")
		require.Error(t, err)
		_, err = f.service.Login(t.Context(), info, "alice", "alice-password")
		require.NoError(t, err)
		_, err = f.service.Login(t.Context(), info, "alice", "nope-nope")
		require.Error(t, err)

		_, err = f.service.Login(t.Context(), info, "alice", "alice-password")
		assert.NoError(t, err)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		f := newAuthFixture(t, failingStore{})

		_, err := f.service.Login(t.Context(), info, "alice", "alice-password")
		require.Error(t, err)
		assert.True(t, services.IsInternalError(err))
	})
}

func TestAuthService_Refresh(t *testing.T) {
	info := audit.RequestInfo{RequestID: "req-2"}
	f := newAuthFixture(t, nil)

	token, err := f.service.Login(t.Context(), info, "alice", "alice-password")
	require.NoError(t, err)

	t.Run("anonymous caller", func(t *testing.T) {
		_, err := f.service.Refresh(t.Context(), info, auth.Anonymous(), token.Value)
		assert.True(t, services.IsUnauthorizedError(err))
	})

	t.Run("subject mismatch", func(t *testing.T) {
		sc := auth.Authenticated("bob", auth.NewRoleSet("USER"))
		_, err := f.service.Refresh(t.Context(), info, sc, token.Value)
		require.Error(t, err)
		assert.True(t, services.IsUnauthorizedError(err))
		assert.True(t, errors.Is(err, auth.ErrSubjectMismatch))
	})

	t.Run("fresh iat and exp", func(t *testing.T) {
		f.clock.Add(20 * time.Minute)
		sc := auth.Authenticated("alice", auth.NewRoleSet("USER"))

		refreshed, err := f.service.Refresh(t.Context(), info, sc, token.Value)
		require.NoError(t, err)
		assert.Equal(t, "alice", refreshed.Claims.Subject)
		assert.Equal(t, f.clock.Now().Unix(), refreshed.Claims.IssuedAt.Unix())
		assert.True(t, refreshed.Claims.ExpiresAt.After(token.Claims.ExpiresAt.Time))
	})

	t.Run("inside the refresh window", func(t *testing.T) {
		f.clock.Add(38 * time.Minute)
		sc := auth.Authenticated("alice", auth.NewRoleSet("USER"))

		_, err := f.service.Refresh(t.Context(), info, sc, token.Value)
		require.Error(t, err)
		assert.True(t, errors.Is(err, auth.ErrRefreshWindow))
	})
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t, nil)
	sc := auth.Authenticated("alice", auth.NewRoleSet("USER"))

	assert.NotPanics(t, func() {
		f.service.Logout(t.Context(), audit.RequestInfo{}, sc, "whatever")
	})
}

type failingStore struct{}

func (failingStore) FindByUsername(ctx context.Context, username string) (*auth.Principal, error) {
	return nil, errors.New("connection refused")
}
