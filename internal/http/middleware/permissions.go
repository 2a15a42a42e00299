package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequirePermissions lets a request through when the session holds any of
// allowed. An empty list disables the check.
//
//	um := api.Group("/user-management", RequirePermissions("user-management"))
//
// RequireSession must run first.
func RequirePermissions(allowed ...string) gin.HandlerFunc {
	want := make([]string, 0, len(allowed))
	for _, p := range allowed {
		if p = strings.TrimSpace(p); p != "" {
			want = append(want, p)
		}
	}

	return func(c *gin.Context) {
		if len(want) == 0 {
			c.Next()
			return
		}
		cred := GetSession(c)
		if cred == nil {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Unauthorized request")
			return
		}
		for _, p := range want {
			if cred.HasPermission(p) {
				c.Next()
				return
			}
		}
		abortJSON(c, http.StatusForbidden, "forbidden", "You do not have permission to access this resource")
	}
}
