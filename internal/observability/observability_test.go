package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	logger, err = NewLogger(LogConfig{Level: "info", Format: "text"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordLogin("success", 20*time.Millisecond)
	m.RecordTokenValidation("valid")
	m.RecordAuthorization("forbidden")
	m.RecordTokenIssued("refresh")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, `inventory_auth_login_total{outcome="success"} 1`)
	assert.Contains(t, out, `inventory_auth_token_validation_total{result="valid"} 1`)
	assert.Contains(t, out, `inventory_auth_authorization_total{decision="forbidden"} 1`)
	assert.Contains(t, out, `inventory_auth_tokens_issued_total{kind="refresh"} 1`)
	assert.Contains(t, out, "inventory_auth_login_duration_seconds_count 1")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLogin("failure", time.Second)
		m.RecordTokenValidation("expired")
		m.RecordAuthorization("allowed")
		m.RecordTokenIssued("login")
	})
}
