package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/upb/catalog-inventory/internal/auth"
	"github.com/upb/catalog-inventory/middleware"
	"github.com/upb/catalog-inventory/services/audit"
	"github.com/upb/catalog-inventory/utils"
	"go.uber.org/zap"
)

// loginRequest is the body of POST /auth/login
type loginRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

// TokenResponse is returned by login and refresh
type TokenResponse struct {
	Token     string   `json:"token"`
	TokenType string   `json:"tokenType"`
	ExpiresIn int64    `json:"expiresIn"` // milliseconds
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
}

// MessageResponse carries a single human-readable message
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthService defines the login, refresh and logout flows
type AuthService interface {
	Login(ctx context.Context, info audit.RequestInfo, username, password string) (*auth.Token, error)
	Refresh(ctx context.Context, info audit.RequestInfo, sc auth.SecurityContext, tokenString string) (*auth.Token, error)
	Logout(ctx context.Context, info audit.RequestInfo, sc auth.SecurityContext, tokenString string)
}

// AuthHandler handles the /auth endpoints
type AuthHandler struct {
	service AuthService
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("failed to parse login body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	token, err := h.service.Login(ctx, middleware.RequestInfo(r), req.Username, req.Password)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.writeToken(w, requestID, token)
}

// HandleRefresh handles POST /auth/refresh. The caller must already be
// authenticated with the token being refreshed.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	tokenString, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		_ = utils.WriteBearerChallenge(w, "")
		return
	}

	token, err := h.service.Refresh(ctx, middleware.RequestInfo(r), middleware.GetSecurityContext(ctx), tokenString)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.writeToken(w, requestID, token)
}

// HandleLogout handles POST /auth/logout. Tokens are stateless, so the
// presented token remains usable until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokenString, _ := auth.BearerToken(r.Header.Get("Authorization"))

	h.service.Logout(ctx, middleware.RequestInfo(r), middleware.GetSecurityContext(ctx), tokenString)

	if err := utils.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"}); err != nil {
		h.logger.Error("failed to write logout response", zap.Error(err))
	}
}

// HandleHealth handles GET /auth/health
func (h *AuthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, requestID string, token *auth.Token) {
	var expiresIn int64
	if token.Claims.IssuedAt != nil && token.Claims.ExpiresAt != nil {
		expiresIn = token.Claims.ExpiresAt.Sub(token.Claims.IssuedAt.Time).Milliseconds()
	}

	response := TokenResponse{
		Token:     token.Value,
		TokenType: "Bearer",
		ExpiresIn: expiresIn,
		Username:  token.Claims.Subject,
		Roles:     token.Claims.Roles.Strings(),
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write token response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
