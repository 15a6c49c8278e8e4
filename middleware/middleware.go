// Package middleware wraps a request/response exchange with cross-cutting behaviour.
//
// The same HandlerFunc shape is used on both sides of the wire: a stub wraps the
// encode → send → receive → decode round trip, and the server wraps service dispatch.
package middleware

import (
	"stub-rpc/message"
)

// HandlerFunc turns a request into a response. A non-nil error means no response exists
// (for example the transport failed); remote failures travel as ERROR responses instead.
type HandlerFunc func(req *message.Request) (*message.Response, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain 将多个中间件组合成一个中间件
//
//	Chain(A, B, C)(h) → A(B(C(h)))
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}
