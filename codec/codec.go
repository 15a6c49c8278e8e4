// Package codec turns envelope records into wire text and back.
//
// The byte-level work goes through a Codec; the envelope functions on top of it enforce
// the field rules of the request/response protocol and report failures as
// *EncodingError or *DecodingError.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// defaultCodec serializes every envelope. The wire format is JSON text only.
var defaultCodec Codec = &JSONCodec{}

// JSONCodec writes compact JSON without HTML escaping, so service output such as
// "a<b" travels as written. Decode keeps numbers inside `any` values as json.Number
// and rejects anything after the first value.
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder terminates each value with a newline
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// Anything but end of input after the value, including a stray ']' or '}', is an error.
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("codec: trailing data after JSON value")
	}
	return nil
}
