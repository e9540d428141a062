package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kestrelsec/warden/internal/protection"
)

// Protect runs the protection pipeline before any handler. A deny
// short-circuits with a generic body and a stable reason code; the detailed
// cause stays in logs and telemetry.
func Protect(engine *protection.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, restore := protection.NewRequestInfo(c.Request, c.ClientIP())
		c.Request.Body = restore()

		verdict := engine.Evaluate(c.Request.Context(), info)
		if verdict.Allowed {
			c.Next()
			return
		}

		status := http.StatusForbidden
		switch verdict.Reason {
		case protection.ReasonRateLimitExceeded:
			status = http.StatusTooManyRequests
			secs := int(verdict.RetryAfter.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
		case protection.ReasonRuleUnavailable:
			status = http.StatusServiceUnavailable
		}

		c.AbortWithStatusJSON(status, gin.H{
			"error": "request blocked",
			"code":  string(verdict.Reason),
		})
	}
}
