package ginserver

import (
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentme/internal/app/access"
)

const (
	headerUserID    = "X-User-ID"
	headerUserRoles = "X-User-Roles"
)

// Identity trusts the caller identity forwarded by the API gateway. The
// system role can never be claimed over HTTP.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerUserID))
		if id == "" {
			c.Next()
			return
		}
		p := access.Principal{ID: id, Roles: access.ParseRoles(c.GetHeader(headerUserRoles))}
		c.Request = c.Request.WithContext(access.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) (access.Principal, bool) {
	p, ok := access.PrincipalFrom(c.Request.Context())
	if !ok {
		writeError(c, access.ErrUnauthenticated)
		return access.Principal{}, false
	}
	return p, true
}
