package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/epeers/marketetl/internal/models"
	"github.com/gin-gonic/gin"
)

// AdminTokenHeader carries the shared admin secret
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken rejects requests whose X-Admin-Token does not match token.
// With an empty token the admin endpoints are disabled altogether.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "forbidden",
				Message: "admin endpoints are disabled",
			})
			return
		}

		got := c.GetHeader(AdminTokenHeader)
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "missing or invalid " + AdminTokenHeader,
			})
			return
		}
		c.Next()
	}
}
