package middleware

import (
	"github.com/gin-gonic/gin"

	"tasktracker/internal/apperr"
)

// RequireRoles admits principals holding at least one of roles. It must run
// after Auth.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := PrincipalFrom(c)
		if !ok {
			_ = c.Error(apperr.ErrCredentialsNotFound)
			c.Abort()
			return
		}

		if !principal.HasAnyAuthority(roles...) {
			_ = c.Error(apperr.ErrAccessDenied)
			c.Abort()
			return
		}

		c.Next()
	}
}
