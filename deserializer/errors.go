package deserializer

import "fmt"

// LookupError reports a result kind with no registered converter.
type LookupError struct {
	Kind Kind
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("deserializer: no converter registered for kind %q", e.Kind)
}

// ConversionError reports a converter that failed on the response output.
type ConversionError struct {
	Kind Kind
	Text string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("deserializer: convert %q to %s: %v", e.Text, e.Kind, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
