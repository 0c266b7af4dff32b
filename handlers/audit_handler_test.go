package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/catalog-inventory/models"
	"go.uber.org/zap"
)

// MockAuditLogLister is a mock implementation of AuditLogLister
type MockAuditLogLister struct {
	mock.Mock
}

func (m *MockAuditLogLister) ListLogs(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

func TestHandleListLogs(t *testing.T) {
	t.Run("passes filters through", func(t *testing.T) {
		lister := new(MockAuditLogLister)
		entry := models.NewAuditLog(models.AuditActionLoginFailed).WithUsername("alice")
		lister.On("ListLogs", mock.Anything, models.AuditLogFilter{
			Username: "alice",
			Action:   models.AuditActionLoginFailed,
			Limit:    10,
			Offset:   20,
		}).Return([]*models.AuditLog{entry}, nil)

		handler := NewAuditHandler(lister, zap.NewNop())
		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit/logs?limit=10&offset=20&username=alice&action=login_failed", nil)
		w := httptest.NewRecorder()
		handler.HandleListLogs(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var logs []models.AuditLog
		require.NoError(t, json.NewDecoder(w.Body).Decode(&logs))
		require.Len(t, logs, 1)
		assert.Equal(t, models.AuditActionLoginFailed, logs[0].Action)
		lister.AssertExpectations(t)
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		lister := new(MockAuditLogLister)
		lister.On("ListLogs", mock.Anything, mock.Anything).Return(nil, nil)

		handler := NewAuditHandler(lister, zap.NewNop())
		w := httptest.NewRecorder()
		handler.HandleListLogs(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit/logs", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("rejects bad paging", func(t *testing.T) {
		lister := new(MockAuditLogLister)
		handler := NewAuditHandler(lister, zap.NewNop())

		for _, target := range []string{"/api/v1/audit/logs?limit=x", "/api/v1/audit/logs?offset=-3"} {
			w := httptest.NewRecorder()
			handler.HandleListLogs(w, httptest.NewRequest(http.MethodGet, target, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code, target)
		}
		lister.AssertNotCalled(t, "ListLogs", mock.Anything, mock.Anything)
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		lister := new(MockAuditLogLister)
		lister.On("ListLogs", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

		handler := NewAuditHandler(lister, zap.NewNop())
		w := httptest.NewRecorder()
		handler.HandleListLogs(w, httptest.NewRequest(http.MethodGet, "/api/v1/audit/logs", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
}
