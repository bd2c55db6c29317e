package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/agentmint-dev/agentmint/internal/errors"
	"github.com/agentmint-dev/agentmint/internal/ratelimit"
	"github.com/agentmint-dev/agentmint/internal/telemetry"
)

// RateLimit gates requests through the global and per-IP windows. Per-user
// limits are applied by handlers after the subject is known.
func RateLimit(limiter *ratelimit.Limiter, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := limiter.CheckIP(c.ClientIP()); err != nil {
			metrics.RecordRateLimited()
			errors.Respond(c, errors.RateLimited(err.Error()))
			return
		}
		c.Next()
	}
}
