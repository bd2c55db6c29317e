package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders applies the baseline security headers to every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Prevent MIME type sniffing
		c.Header("X-Content-Type-Options", "nosniff")

		// Prevent embedding in frames (clickjacking protection)
		c.Header("X-Frame-Options", "DENY")

		// Tokens and audit data must never be cached
		c.Header("Cache-Control", "no-store")

		c.Next()
	}
}
