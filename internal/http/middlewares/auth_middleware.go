package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/campuserp/internal/actorctx"
	"github.com/geocoder89/campuserp/internal/auth"
	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if raw == "" {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		p := claims.Principal()
		c.Set(CtxPrincipal, p)
		c.Request = c.Request.WithContext(actorctx.WithPrincipal(c.Request.Context(), p))

		c.Next()
	}
}

func PrincipalFromContext(c *gin.Context) (user.Principal, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return user.Principal{}, false
	}
	p, ok := v.(user.Principal)
	return p, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	return actorctx.UserIDFrom(c.Request.Context())
}
