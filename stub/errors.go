package stub

import "fmt"

// RemoteServiceError reports a response whose status is not SUCCESS.
// The response output is carried as Message and is never deserialized.
type RemoteServiceError struct {
	Service string
	Message string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("invalid request to service %s: %s", e.Service, e.Message)
}

// ArgumentError reports call arguments that do not match the declared parameters.
type ArgumentError struct {
	Service string
	Reason  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("stub %s: %s", e.Service, e.Reason)
}

// SignatureError reports an invalid declaration.
type SignatureError struct {
	Service string
	Reason  string
}

func (e *SignatureError) Error() string {
	if e.Service == "" {
		return "stub: invalid signature: " + e.Reason
	}
	return fmt.Sprintf("stub: invalid signature for %s: %s", e.Service, e.Reason)
}
