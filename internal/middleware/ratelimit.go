package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	apperrors "fundledger/internal/errors"
	"fundledger/internal/logger"
)

// NewRateLimiter builds an in-memory per-key limiter from a formatted rate
// such as "300-M".
func NewRateLimiter(formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit limits requests per client IP.
func RateLimit(instance *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		ctx, err := instance.Get(c.Request.Context(), ip)
		if err != nil {
			logger.Get().Errorw("rate limit check failed", "ip", ip, "error", err)
			abortWithError(c, apperrors.ErrInternalServer)
			return
		}

		if ctx.Reached {
			logger.Get().Warnw("rate limit exceeded", "ip", ip, "limit", ctx.Limit)
			abortWithError(c, apperrors.ErrTooManyRequest)
			return
		}

		c.Next()
	}
}
