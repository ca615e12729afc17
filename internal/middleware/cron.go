package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
)

// RequireCronSecret guards scheduler endpoints with a shared bearer secret.
// With no secret configured the endpoints are disabled.
func RequireCronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			apierrors.ServiceUnavailable(c, "Cron endpoints are not configured")
			c.Abort()
			return
		}

		token, ok := bearerToken(c)
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			apierrors.Unauthorized(c, "Invalid cron credentials")
			c.Abort()
			return
		}

		c.Next()
	}
}
