package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/services"
	"github.com/upb/catalog-inventory/utils"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "not found error",
			err:            services.ErrBookNotFound,
			expectedStatus: http.StatusNotFound,
			expectedError:  "not_found",
		},
		{
			name:           "validation error",
			err:            services.ErrInvalidInput,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
		},
		{
			name:           "unauthorized error",
			err:            services.ErrInvalidCredentials,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "unauthorized",
		},
		{
			name:           "forbidden error",
			err:            services.ErrForbidden,
			expectedStatus: http.StatusForbidden,
			expectedError:  "forbidden",
		},
		{
			name:           "rate limit error",
			err:            services.ErrTooManyLoginAttempts,
			expectedStatus: http.StatusTooManyRequests,
			expectedError:  "rate_limit_exceeded",
		},
		{
			name:           "conflict error",
			err:            services.ErrDuplicateISBN,
			expectedStatus: http.StatusConflict,
			expectedError:  "conflict",
		},
		{
			name:           "internal error",
			err:            services.ErrInternal,
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "internal_error",
		},
		{
			name:           "unknown error",
			err:            errors.New("some unknown error"),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			err := json.NewDecoder(w.Body).Decode(&response)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedError, response.Error)
			assert.NotEmpty(t, response.Message)
		})
	}
}

func TestHandleServiceError_HidesWrappedCause(t *testing.T) {
	err := services.NewDomainError(services.ErrorTypeUnauthorized, "invalid username or password",
		errors.New("no_such_principal"))

	w := httptest.NewRecorder()
	HandleServiceError(w, err, zap.NewNop())

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "no_such_principal")
	assert.Contains(t, w.Body.String(), "invalid username or password")
}

func TestHandleServiceError_RateLimitRetryAfter(t *testing.T) {
	err := services.NewDomainError(services.ErrorTypeRateLimit, "too many failed login attempts", nil).
		WithDetail("retry_after_seconds", 900)

	w := httptest.NewRecorder()
	HandleServiceError(w, err, zap.NewNop())

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "900", w.Header().Get("Retry-After"))
}

func TestHandleServiceError_ValidationFields(t *testing.T) {
	validationErr := utils.ValidateStruct(models.BookInput{})
	require.Error(t, validationErr)
	err := services.WrapError(services.ErrorTypeValidation, "invalid book", validationErr)

	w := httptest.NewRecorder()
	HandleServiceError(w, err, zap.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "invalid book", response.Message)
	assert.Contains(t, response.Details, "Title")
	assert.Contains(t, response.Details, "ISBN")
}

func TestHandleServiceError_NilIsNoop(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, nil, zap.NewNop())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	HandleValidationError(w, utils.ValidateStruct(loginRequest{}), zap.NewNop())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "Validation failed", response.Message)
	assert.Contains(t, response.Details, "Username")

	w = httptest.NewRecorder()
	HandleValidationError(w, errors.New("invalid JSON body"), zap.NewNop())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
