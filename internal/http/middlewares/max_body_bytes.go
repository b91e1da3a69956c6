package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const DefaultMaxBodyBytes int64 = 1 << 20

// MaxBodyBytes caps request bodies; signup forms are tiny.
func MaxBodyBytes(max int64) gin.HandlerFunc {
	if max <= 0 {
		max = DefaultMaxBodyBytes
	}

	return func(ctx *gin.Context) {
		if ctx.Request.ContentLength > max {
			ctx.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": gin.H{
					"code":    "body_too_large",
					"message": "Request body is too large",
				},
			})
			return
		}

		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, max)
		ctx.Next()
	}
}
