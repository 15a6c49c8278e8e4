package middleware

import (
	"fmt"

	"go.uber.org/zap"

	"stub-rpc/message"
)

// RecoverMiddleware turns a panic below it into an ERROR response so one bad handler
// does not take down the connection serving it.
func RecoverMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(req *message.Request) (resp *message.Response, err error) {
			defer func() {
				if p := recover(); p != nil {
					logger.Error("handler panic",
						zap.String("service", req.ServiceName),
						zap.Any("panic", p),
						zap.Stack("stack"),
					)
					resp, err = message.Failure(fmt.Sprintf("internal error in %s", req.ServiceName)), nil
				}
			}()
			return next(req)
		}
	}
}
