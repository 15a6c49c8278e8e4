package middleware

import (
	"time"

	"go.uber.org/zap"

	"stub-rpc/message"
)

// LoggingMiddleware records the service name and duration of every exchange.
// Transport failures are logged at error level and ERROR responses at warn level.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(req *message.Request) (*message.Response, error) {
			start := time.Now()
			resp, err := next(req)
			fields := []zap.Field{
				zap.String("service", req.ServiceName),
				zap.Duration("duration", time.Since(start)),
			}
			switch {
			case err != nil:
				logger.Error("exchange failed", append(fields, zap.Error(err))...)
			case !resp.OK():
				logger.Warn("service error", append(fields, zap.String("output", resp.Output))...)
			default:
				logger.Info("exchange", fields...)
			}
			return resp, err
		}
	}
}
