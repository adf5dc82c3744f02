package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// RequestLogger writes one structured entry per request. Requests that
// mutate state or fail are logged at Info and above; reads at Debug.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			// Paths may carry capability tokens, so matched routes are logged
			// by pattern.
			route := v.RoutePath
			if route == "" {
				route = "unmatched"
			}
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("route", route),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency.Round(time.Microsecond)),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.RequestID != "" {
				fields = append(fields, zap.String("request_id", v.RequestID))
			}
			if actor, ok := ActorFrom(c); ok {
				fields = append(fields, zap.String("actor_id", actor.IdentityID.String()), zap.String("role", actor.Role))
			}

			switch {
			case v.Status >= 500:
				logger.Error("request failed", append(fields, zap.Error(v.Error))...)
			case v.Status >= 400:
				logger.Info("request rejected", fields...)
			case v.Method == "GET" || v.Method == "HEAD":
				logger.Debug("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		},
	})
}
