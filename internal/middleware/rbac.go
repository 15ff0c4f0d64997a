package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qc-workbench-api/internal/authz"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
	"github.com/noah-isme/qc-workbench-api/pkg/response"
)

// RequireCapability allows the request only when the session's role set
// grants action. It must run after Session.
func RequireCapability(action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !authz.Can(claims.Roles, action) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
