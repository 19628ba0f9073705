package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "webhookgw.io/gateway/internal/pkg/errors"
)

// APIKeyConfig holds the shared secret the admin surface requires in the
// X-API-Key header.
type APIKeyConfig struct {
	Key string
}

// APIKeyAuth returns middleware that rejects any request missing or
// mismatching the configured X-API-Key header. Comparison is constant-time
// for equal-length values, so a matching prefix does not show in response
// timing; a value of a different length is rejected without comparing
// contents.
func APIKeyAuth(cfg APIKeyConfig) gin.HandlerFunc {
	want := []byte(cfg.Key)
	return func(c *gin.Context) {
		got := c.GetHeader("X-API-Key")
		if got == "" {
			_ = c.Error(apperrors.ErrMissingAPIKey())
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			_ = c.Error(apperrors.ErrBadAPIKey())
			c.Abort()
			return
		}
		c.Next()
	}
}
