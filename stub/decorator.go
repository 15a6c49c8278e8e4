package stub

import (
	"go.uber.org/zap"

	"stub-rpc/deserializer"
	"stub-rpc/middleware"
)

// Decorator builds stubs that share a transport, a registry and a middleware chain.
type Decorator struct {
	transport   Transport
	registry    *deserializer.Registry
	logger      *zap.Logger
	middlewares []middleware.Middleware
}

type Option func(*Decorator)

// WithRegistry replaces the decorator's own registry, e.g. to share custom converters
// between decorators.
func WithRegistry(r *deserializer.Registry) Option {
	return func(d *Decorator) { d.registry = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Decorator) { d.logger = l }
}

// WithMiddleware wraps the encode → send → receive → decode exchange of every call.
// Middlewares run in the order given.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(d *Decorator) { d.middlewares = append(d.middlewares, mws...) }
}

// NewDecorator returns a decorator sending through t. A nil t makes every call ask its
// receiver, which must then implement TransportProvider.
func NewDecorator(t Transport, opts ...Option) *Decorator {
	d := &Decorator{transport: t}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = deserializer.New()
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Registry returns the registry used to convert results. Converters registered on it
// apply to every later call, including calls already waiting for their reply.
func (d *Decorator) Registry() *deserializer.Registry {
	return d.registry
}

// Wrap validates sig and returns its stub. local may be nil when the call needs no
// local body.
func (d *Decorator) Wrap(sig Signature, local LocalFunc) (*Stub, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	sig.Params = append([]string(nil), sig.Params...)
	return &Stub{d: d, sig: sig, local: local}, nil
}

// MustWrap is like Wrap but panics on an invalid signature.
func (d *Decorator) MustWrap(sig Signature, local LocalFunc) *Stub {
	s, err := d.Wrap(sig, local)
	if err != nil {
		panic(err)
	}
	return s
}
