package codec

import (
	"bytes"
	"encoding/json"
	"errors"

	"stub-rpc/message"
)

// EncodeRequest produces {"serviceName": ..., "serviceArgs": {...}}.
func EncodeRequest(req *message.Request) (string, error) {
	data, err := defaultCodec.Encode(req)
	if err != nil {
		encErr := &EncodingError{Service: req.ServiceName, Err: err}
		var argErr *message.ArgError
		if errors.As(err, &argErr) {
			encErr.Arg = argErr.Name
			encErr.Err = argErr.Err
		}
		return "", encErr
	}
	return string(data), nil
}

// DecodeResponse parses a response envelope. Both requestStatus and serviceOutput must
// be present; unknown fields are ignored.
func DecodeResponse(text string) (*message.Response, error) {
	var wire struct {
		Status *string `json:"requestStatus"`
		Output *string `json:"serviceOutput"`
	}
	if err := defaultCodec.Decode([]byte(text), &wire); err != nil {
		return nil, &DecodingError{What: "response", Text: text, Err: err}
	}
	if wire.Status == nil {
		return nil, &DecodingError{What: "response", Text: text, Err: missing("requestStatus")}
	}
	if wire.Output == nil {
		return nil, &DecodingError{What: "response", Text: text, Err: missing("serviceOutput")}
	}
	return &message.Response{
		Status: message.Status(*wire.Status),
		Output: *wire.Output,
	}, nil
}

// DecodeRequest parses a request envelope on the answering side.
func DecodeRequest(text string) (*message.Request, error) {
	var wire struct {
		Name *string         `json:"serviceName"`
		Args json.RawMessage `json:"serviceArgs"`
	}
	if err := defaultCodec.Decode([]byte(text), &wire); err != nil {
		return nil, &DecodingError{What: "request", Text: text, Err: err}
	}
	if wire.Name == nil {
		return nil, &DecodingError{What: "request", Text: text, Err: missing("serviceName")}
	}
	if len(wire.Args) == 0 || bytes.Equal(wire.Args, []byte("null")) {
		return nil, &DecodingError{What: "request", Text: text, Err: missing("serviceArgs")}
	}

	req := &message.Request{ServiceName: *wire.Name}
	if err := defaultCodec.Decode(wire.Args, &req.ServiceArgs); err != nil {
		return nil, &DecodingError{What: "request", Text: text, Err: err}
	}
	return req, nil
}

// EncodeResponse produces {"requestStatus": ..., "serviceOutput": ...}.
func EncodeResponse(resp *message.Response) (string, error) {
	data, err := defaultCodec.Encode(resp)
	if err != nil {
		return "", &EncodingError{Service: "response", Err: err}
	}
	return string(data), nil
}
