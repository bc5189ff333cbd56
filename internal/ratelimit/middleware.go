package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/rewild/internal/observability/logger"
	"github.com/smallbiznis/rewild/internal/observability/metrics"
	"go.uber.org/zap"
)

// Limit describes one endpoint's budget per client address.
type Limit struct {
	Name  string
	Rate  float64
	Burst int
}

// Middleware throttles the route it is attached to, keyed by client IP. When
// redis is down the request is allowed: a broken limiter must not take
// checkout down with it.
func Middleware(bucket *TokenBucket, m *metrics.Metrics, limit Limit) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ratelimit:" + limit.Name + ":" + c.ClientIP()

		result, err := bucket.Allow(c.Request.Context(), key, limit.Rate, limit.Burst)
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("rate limiter unavailable",
				zap.String("endpoint", limit.Name),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !result.Allowed {
			m.RecordRateLimit(limit.Name, false)
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"type":    "rate_limited",
					"message": "too many requests",
				},
			})
			return
		}

		m.RecordRateLimit(limit.Name, true)
		c.Next()
	}
}
