package codec

import (
	"errors"
	"fmt"
)

// ErrMissingField is wrapped by DecodingError when a required envelope field is absent.
var ErrMissingField = errors.New("missing field")

// EncodingError reports a request that cannot be represented on the wire.
type EncodingError struct {
	Service string
	Arg     string // empty when the failure is not tied to one argument
	Err     error
}

func (e *EncodingError) Error() string {
	if e.Arg != "" {
		return fmt.Sprintf("codec: encode request %q: argument %q: %v", e.Service, e.Arg, e.Err)
	}
	return fmt.Sprintf("codec: encode %q: %v", e.Service, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// DecodingError reports received text that is not a valid envelope.
type DecodingError struct {
	What string // "request" or "response"
	Text string
	Err  error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("codec: decode %s: %v", e.What, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

func missing(field string) error {
	return fmt.Errorf("%w %q", ErrMissingField, field)
}
