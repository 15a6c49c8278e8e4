// Package server implements a reference responder for stub envelopes, with service
// registration, a middleware chain and graceful shutdown.
//
// Request processing pipeline:
//
//	Accept conn → handleConn (one goroutine, frames handled in order)
//	  → Dispatch: codec.DecodeRequest → Middleware Chain → Handler → codec.EncodeResponse
//	  → write response frame
//
// The same Dispatch serves HTTP through HTTPHandler.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"stub-rpc/codec"
	"stub-rpc/message"
	"stub-rpc/middleware"
	"stub-rpc/protocol"
	"stub-rpc/registry"
)

// ErrShuttingDown is the ERROR output for requests that arrive after Shutdown began.
var ErrShuttingDown = errors.New("server shutting down")

// Server dispatches request envelopes to registered services.
type Server struct {
	mu          sync.RWMutex
	services    map[string]Handler      // "add" → handler, "Arith.Add" → handler
	middlewares []middleware.Middleware // applied in the order added
	handler     middleware.HandlerFunc  // middleware(middleware(...(businessHandler))), nil until first use

	logger *zap.Logger

	listeners map[net.Listener]struct{}
	conns     map[net.Conn]struct{}
	wg        sync.WaitGroup // Tracks in-flight requests for graceful shutdown
	shutdown  atomic.Bool    // Set during shutdown to suppress Accept errors

	registry  registry.Registry // nil if not announcing
	endpoint  string
	advertise string // Address registered in the registry, e.g. "127.0.0.1:8080"
	ttl       int64
	announce  context.CancelFunc // stops lease keep-alive
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRegistry makes Serve announce advertise under endpoint for ttl seconds, renewed
// until Shutdown. advertise differs from the listen address because ":8080" is not
// routable for a caller.
func WithRegistry(reg registry.Registry, endpoint, advertise string, ttl int64) Option {
	return func(s *Server) {
		s.registry = reg
		s.endpoint = endpoint
		s.advertise = advertise
		s.ttl = ttl
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		services:  make(map[string]Handler),
		logger:    zap.NewNop(),
		listeners: make(map[net.Listener]struct{}),
		conns:     make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// HandleFunc serves fn under name. A later registration replaces an earlier one.
func (s *Server) HandleFunc(name string, fn Handler) {
	if name == "" || fn == nil {
		panic("server: HandleFunc needs a name and a handler")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[name] = fn
}

// Register serves every exported method of rcvr with the form
// func(message.Args) (string, error) under "Type.Method".
func (s *Server) Register(rcvr any) error {
	handlers, err := scanHandlers(rcvr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, fn := range handlers {
		s.services[name] = fn
	}
	return nil
}

// Use registers a middleware. Middlewares added after the first request are ignored.
func (s *Server) Use(mw middleware.Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, mw)
}

// Services returns the registered service names, sorted.
func (s *Server) Services() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// chain builds the middleware chain once, on first use.
func (s *Server) chain() middleware.HandlerFunc {
	s.mu.RLock()
	h := s.handler
	s.mu.RUnlock()
	if h != nil {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler == nil {
		s.handler = middleware.Chain(s.middlewares...)(s.businessHandler)
	}
	return s.handler
}

// Dispatch turns one request envelope into one response envelope. It never fails:
// undecodable requests, unknown services and handler errors all produce ERROR
// responses.
func (s *Server) Dispatch(text string) string {
	// Add happens under the lock Shutdown takes to set the flag, so Wait never races it.
	s.mu.RLock()
	if s.shutdown.Load() {
		s.mu.RUnlock()
		out, _ := codec.EncodeResponse(message.Failure(ErrShuttingDown.Error()))
		return out
	}
	s.wg.Add(1)
	s.mu.RUnlock()
	defer s.wg.Done()

	var resp *message.Response
	req, err := codec.DecodeRequest(text)
	if err != nil {
		s.logger.Warn("bad request", zap.Error(err))
		resp = message.Failure(err.Error())
	} else {
		resp, err = s.chain()(req)
		if err != nil {
			resp = message.Failure(err.Error())
		}
	}

	out, err := codec.EncodeResponse(resp)
	if err != nil {
		s.logger.Error("encode response", zap.Error(err))
		out, _ = codec.EncodeResponse(message.Failure("internal error"))
	}
	return out
}

// businessHandler looks up the service and calls it. It has the HandlerFunc shape so
// middleware can wrap it.
func (s *Server) businessHandler(req *message.Request) (*message.Response, error) {
	s.mu.RLock()
	fn, ok := s.services[req.ServiceName]
	s.mu.RUnlock()
	if !ok {
		return message.Failure(fmt.Sprintf("unknown service %q", req.ServiceName)), nil
	}

	output, err := fn(req.ServiceArgs)
	if err != nil {
		return message.Failure(err.Error()), nil
	}
	return message.Success(output), nil
}

// Serve accepts connections on ln until Shutdown. If a registry was configured the
// advertise address is announced before the first Accept.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.shutdown.Load() {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server: already shut down")
	}
	s.listeners[ln] = struct{}{}
	s.mu.Unlock()

	if err := s.register(); err != nil {
		return err
	}

	s.logger.Info("serving", zap.String("addr", ln.Addr().String()))
	for {
		conn, err := ln.Accept()
		if err != nil {
			// listener.Close() in Shutdown makes Accept fail
			if s.shutdown.Load() {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) register() error {
	if s.registry == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.announce != nil || s.shutdown.Load() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	inst := registry.Instance{Addr: s.advertise, Transport: "tcp", Weight: 10}
	if err := s.registry.Register(ctx, s.endpoint, inst, s.ttl); err != nil {
		cancel()
		return fmt.Errorf("announce %s: %w", s.endpoint, err)
	}
	s.announce = cancel
	s.logger.Info("announced", zap.String("endpoint", s.endpoint), zap.String("addr", s.advertise))
	return nil
}

// handleConn answers request frames on conn one at a time; a caller sends a request
// and blocks for its reply, so there is never more than one in flight.
func (s *Server) handleConn(conn net.Conn) {
	s.mu.Lock()
	if s.shutdown.Load() {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	remote := zap.String("remote", conn.RemoteAddr().String())
	s.logger.Debug("connection accepted", remote)
	for {
		text, err := protocol.ReadText(conn, protocol.MsgTypeRequest)
		if err != nil {
			s.logger.Debug("connection closed", remote, zap.Error(err))
			return
		}
		if s.shutdown.Load() {
			s.logger.Debug("dropping request after shutdown", remote)
			return
		}

		if err := protocol.WriteText(conn, protocol.MsgTypeResponse, s.Dispatch(text)); err != nil {
			s.logger.Warn("write response", remote, zap.Error(err))
			return
		}
	}
}

// Shutdown performs graceful shutdown:
//  1. Deregister from the registry (callers stop picking this responder)
//  2. Set shutdown flag and close listeners
//  3. Wait for in-flight requests to finish (with timeout)
//  4. Close remaining connections
func (s *Server) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	if s.announce != nil {
		s.announce()
		s.announce = nil
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := s.registry.Deregister(ctx, s.endpoint, s.advertise); err != nil {
			s.logger.Warn("deregister", zap.String("endpoint", s.endpoint), zap.Error(err))
		}
		cancel()
	}

	s.shutdown.Store(true)
	for ln := range s.listeners {
		ln.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = fmt.Errorf("timeout waiting for ongoing requests to finish")
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	return err
}
