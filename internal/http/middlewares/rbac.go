package middlewares

import (
	"net/http"

	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/gin-gonic/gin"
)

func forbid(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"error": gin.H{
			"code":    "forbidden",
			"message": message,
		},
	})
}

// RequireCapability admits principals whose capability set passes check.
func RequireCapability(check func(user.Capabilities) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok {
			abortUnauthorized(c, "Missing identity context")
			return
		}
		if !check(p.Capabilities) {
			forbid(c, message)
			return
		}
		c.Next()
	}
}

func CanViewAllData(c user.Capabilities) bool { return c.ViewAllData }

func RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok {
			abortUnauthorized(c, "Missing identity context")
			return
		}
		if p.Role != required {
			forbid(c, string(required)+" role required")
			return
		}
		c.Next()
	}
}
