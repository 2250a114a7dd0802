package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRole must run after RequireSession.
func RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := IdentityFromContext(c)

		if !ok || who.Role == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}
		if who.Role != required {
			abortJSON(c, http.StatusForbidden, "forbidden", required+" role required")
			return
		}
		c.Next()
	}
}
