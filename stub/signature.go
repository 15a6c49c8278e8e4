package stub

import (
	"stub-rpc/deserializer"
)

// Signature declares what a stub sends and what it expects back.
type Signature struct {
	// Service is the name sent as serviceName.
	Service string
	// Params are the argument names in declaration order, receiver excluded.
	Params []string
	// Result selects the converter applied to a SUCCESS output.
	// Empty means no declared result and behaves as deserializer.KindNone.
	Result deserializer.Kind
	// Method marks a callable bound to a receiver. An unbound method stub takes the
	// receiver as its first positional argument; it never appears in serviceArgs.
	Method bool
}

// Validate checks the declaration once, when the stub is built.
func (s Signature) Validate() error {
	if s.Service == "" {
		return &SignatureError{Reason: "empty service name"}
	}
	seen := make(map[string]bool, len(s.Params))
	for _, p := range s.Params {
		if p == "" {
			return &SignatureError{Service: s.Service, Reason: "empty parameter name"}
		}
		if seen[p] {
			return &SignatureError{Service: s.Service, Reason: "duplicate parameter " + p}
		}
		seen[p] = true
	}
	return nil
}

func (s Signature) result() deserializer.Kind {
	if s.Result == "" {
		return deserializer.KindNone
	}
	return s.Result
}

func (s Signature) declares(name string) bool {
	for _, p := range s.Params {
		if p == name {
			return true
		}
	}
	return false
}
