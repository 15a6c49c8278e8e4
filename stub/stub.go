package stub

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"stub-rpc/codec"
	"stub-rpc/message"
	"stub-rpc/middleware"
)

// Invocation is what the local body sees.
type Invocation struct {
	Service  string
	Receiver any
	Args     message.Args
}

// LocalFunc is the declared body of a stub. It runs before anything is sent and may
// validate the arguments or cause local side effects. Its value is discarded: the
// remote response alone decides the stub's result. A non-nil error aborts the call.
type LocalFunc func(inv *Invocation) (any, error)

// Stub performs one synchronous request/response exchange per call.
type Stub struct {
	d     *Decorator
	sig   Signature
	local LocalFunc
	recv  any
	bound bool
}

func (s *Stub) Signature() Signature {
	sig := s.sig
	sig.Params = append([]string(nil), s.sig.Params...)
	return sig
}

// Bind returns a copy of the stub with recv as its receiver.
func (s *Stub) Bind(recv any) *Stub {
	c := *s
	c.recv = recv
	c.bound = true
	return &c
}

// Call invokes the stub with positional arguments.
func (s *Stub) Call(args ...any) (any, error) {
	return s.Invoke(args, nil)
}

// CallNamed invokes the stub with keyword arguments only.
func (s *Stub) CallNamed(kw map[string]any) (any, error) {
	return s.Invoke(nil, kw)
}

// Invoke runs the full call sequence with positional and keyword arguments. For an
// unbound method stub pos[0] is the receiver.
func (s *Stub) Invoke(pos []any, kw map[string]any) (any, error) {
	start := time.Now()
	recv, pos, err := s.receiver(pos)
	if err != nil {
		return nil, err
	}
	args, err := s.bind(pos, kw)
	if err != nil {
		return nil, err
	}

	if s.local != nil {
		inv := &Invocation{Service: s.sig.Service, Receiver: recv, Args: args.Clone()}
		if _, err := s.local(inv); err != nil {
			return nil, fmt.Errorf("stub %s: local call: %w", s.sig.Service, err)
		}
	}

	t, err := s.transport(recv)
	if err != nil {
		return nil, err
	}

	req := &message.Request{ServiceName: s.sig.Service, ServiceArgs: args}
	exchange := middleware.Chain(s.d.middlewares...)(roundTrip(t))
	resp, err := exchange(req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		s.d.logger.Debug("remote error",
			zap.String("service", s.sig.Service),
			zap.String("status", string(resp.Status)),
			zap.String("output", resp.Output),
		)
		return nil, &RemoteServiceError{Service: s.sig.Service, Message: resp.Output}
	}

	v, err := s.d.registry.Deserialize(resp.Output, s.sig.result())
	if err != nil {
		return nil, err
	}
	s.d.logger.Debug("stub call",
		zap.String("service", s.sig.Service),
		zap.Int("args", args.Len()),
		zap.Duration("duration", time.Since(start)),
	)
	return v, nil
}

// roundTrip is the innermost handler of a call: encode, send, wait, decode.
func roundTrip(t Transport) middleware.HandlerFunc {
	return func(req *message.Request) (*message.Response, error) {
		text, err := codec.EncodeRequest(req)
		if err != nil {
			return nil, err
		}
		if err := t.SendText(text); err != nil {
			return nil, fmt.Errorf("stub %s: send: %w", req.ServiceName, err)
		}
		reply, err := t.ReceiveText()
		if err != nil {
			return nil, fmt.Errorf("stub %s: receive: %w", req.ServiceName, err)
		}
		return codec.DecodeResponse(reply)
	}
}

func (s *Stub) receiver(pos []any) (any, []any, error) {
	if s.bound {
		return s.recv, pos, nil
	}
	if !s.sig.Method {
		return nil, pos, nil
	}
	if len(pos) == 0 {
		return nil, nil, &ArgumentError{Service: s.sig.Service, Reason: "missing receiver"}
	}
	return pos[0], pos[1:], nil
}

// bind matches positional values to the declared names in order, then keyword values
// by name. Every declared parameter must end up with exactly one value.
func (s *Stub) bind(pos []any, kw map[string]any) (message.Args, error) {
	params := s.sig.Params
	if len(pos) > len(params) {
		return message.Args{}, &ArgumentError{
			Service: s.sig.Service,
			Reason:  fmt.Sprintf("takes %d positional arguments but %d were given", len(params), len(pos)),
		}
	}

	values := make(map[string]any, len(params))
	for i, v := range pos {
		values[params[i]] = v
	}

	names := make([]string, 0, len(kw))
	for name := range kw {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !s.sig.declares(name) {
			return message.Args{}, &ArgumentError{
				Service: s.sig.Service,
				Reason:  fmt.Sprintf("unexpected keyword argument %q", name),
			}
		}
		if _, dup := values[name]; dup {
			return message.Args{}, &ArgumentError{
				Service: s.sig.Service,
				Reason:  fmt.Sprintf("multiple values for argument %q", name),
			}
		}
		values[name] = kw[name]
	}

	var args message.Args
	var missing []string
	for _, p := range params {
		v, ok := values[p]
		if !ok {
			missing = append(missing, p)
			continue
		}
		args.Set(p, v)
	}
	if len(missing) > 0 {
		return message.Args{}, &ArgumentError{
			Service: s.sig.Service,
			Reason:  "missing arguments: " + strings.Join(missing, ", "),
		}
	}
	return args, nil
}

func (s *Stub) transport(recv any) (Transport, error) {
	if s.d.transport != nil {
		return s.d.transport, nil
	}
	if p, ok := recv.(TransportProvider); ok {
		if t := p.Transport(); t != nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("stub %s: %w", s.sig.Service, ErrNoTransport)
}

// As converts a stub result to T. A nil result (no declared kind) yields T's zero value.
func As[T any](v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("stub: result is %T, not %T", v, zero)
	}
	return t, nil
}
