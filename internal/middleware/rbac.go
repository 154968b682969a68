package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/campus-admin-backend/internal/model"
	"github.com/stemsi/campus-admin-backend/internal/response"
)

// RequireRole checks that the verified claims carry role. It must run after
// RequireAuth.
func RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if claims.Role != role {
			response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}

		c.Next()
	}
}
