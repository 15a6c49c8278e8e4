// Package message defines the two envelope records exchanged between a stub and the
// service that answers it.
//
// A Request is built fresh for every stub call and a Response is decoded from the text
// the transport hands back. Both are serialized as JSON by the codec package:
//
//	request:  {"serviceName": "add", "serviceArgs": {"a": 1, "b": 2}}
//	response: {"requestStatus": "SUCCESS", "serviceOutput": "3"}
package message

// Status is the outcome reported by the remote side.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// Request carries a single remote invocation.
//
//   - ServiceName identifies the operation, e.g. "add".
//   - ServiceArgs holds the declared parameter names in order, receiver excluded.
type Request struct {
	ServiceName string `json:"serviceName"`
	ServiceArgs Args   `json:"serviceArgs"`
}

// Response carries the remote outcome.
//
//   - On SUCCESS: Output is the serialized result, converted by a deserializer.
//   - On ERROR:   Output is a human-readable diagnostic.
type Response struct {
	Status Status `json:"requestStatus"`
	Output string `json:"serviceOutput"`
}

// OK reports whether the remote side accepted the request.
func (r *Response) OK() bool {
	return r.Status == StatusSuccess
}

// Success builds a SUCCESS response with the given serialized result.
func Success(output string) *Response {
	return &Response{Status: StatusSuccess, Output: output}
}

// Failure builds an ERROR response with the given diagnostic.
func Failure(msg string) *Response {
	return &Response{Status: StatusError, Output: msg}
}
