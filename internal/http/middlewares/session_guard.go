package middlewares

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/carebook/internal/observability"
	"github.com/geocoder89/carebook/internal/session"
	"github.com/gin-gonic/gin"
)

// SessionReader keeps the guard testable without a real store.
type SessionReader interface {
	Current(r *http.Request) (session.Identity, error)
}

const loginPath = "/login"

// RequireSession resolves the caller's identity and stores it on the gin
// context. Browser navigations without a session are redirected to the login
// page; API calls get a 401.
func RequireSession(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, err := sessions.Current(c.Request)
		if err != nil {
			if wantsHTML(c.Request) {
				c.Redirect(http.StatusSeeOther, loginPath)
				c.Abort()
				return
			}
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Please log in to continue")
			return
		}

		c.Set(CtxIdentity, who)
		c.Request = c.Request.WithContext(observability.WithLogAttrs(c.Request.Context(), slog.String("user_id", who.UserID)))

		c.Next()
	}
}

func IdentityFromContext(c *gin.Context) (session.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return session.Identity{}, false
	}
	who, ok := v.(session.Identity)
	return who, ok
}

func wantsHTML(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
