package middleware

import (
	"net/http"
	"strconv"
	"time"

	"talentdesk/internal/caching"
	"talentdesk/internal/common"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RateLimit counts requests per client IP in a fixed window. When the cache
// is unreachable requests are let through.
func RateLimit(cache caching.CacheService, scope string, limit int, window time.Duration, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limit <= 0 {
				return next(c)
			}
			key := scope + ":" + c.RealIP()
			limited, err := cache.IsRateLimited(c.Request().Context(), key, limit, window)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
				return next(c)
			}
			if limited {
				c.Response().Header().Set("Retry-After", formatSeconds(window))
				return c.JSON(http.StatusTooManyRequests, common.CreateErrorResponse("RATE_LIMITED", "too many requests, try again later", nil))
			}
			return next(c)
		}
	}
}

func formatSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
