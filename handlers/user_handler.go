package handlers

import (
	"net/http"

	"github.com/upb/catalog-inventory/middleware"
	"github.com/upb/catalog-inventory/utils"
	"go.uber.org/zap"
)

// CurrentUserResponse describes the authenticated caller
type CurrentUserResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// GetCurrentUserHandler handles GET /api/v1/users/me. The answer comes from
// the request's security context; no store lookup is made.
func GetCurrentUserHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc := middleware.GetSecurityContext(r.Context())
		if !sc.IsAuthenticated() {
			_ = utils.WriteUnauthorized(w, "")
			return
		}

		response := CurrentUserResponse{
			Username: sc.Username(),
			Roles:    sc.Roles().Strings(),
		}
		if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
			logger.Error("failed to write current user response", zap.Error(err))
		}
	}
}
