package codec

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"stub-rpc/message"
)

func TestJSONCodec(t *testing.T) {
	jsonCodec := &JSONCodec{}

	original := &message.Response{Status: message.StatusSuccess, Output: "3"}

	data, err := jsonCodec.Encode(original)
	if err != nil {
		t.Fatalf("JSONCodec Encode failed: %v", err)
	}

	var decoded message.Response
	if err := jsonCodec.Decode(data, &decoded); err != nil {
		t.Fatalf("JSONCodec Decode failed: %v", err)
	}

	if decoded != *original {
		t.Errorf("Response mismatch: got %+v, want %+v", decoded, *original)
	}
}

func TestJSONCodecKeepsMarkup(t *testing.T) {
	data, err := (&JSONCodec{}).Encode(message.Success("a<b && c>d"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"requestStatus":"SUCCESS","serviceOutput":"a<b && c>d"}`
	if string(data) != want {
		t.Fatalf("expect %s, got %s", want, data)
	}

	var resp message.Response
	if err := (&JSONCodec{}).Decode([]byte(want+` {}`), &resp); err == nil {
		t.Fatal("expect error for trailing data")
	}
}

func TestEncodeRequest(t *testing.T) {
	text, err := EncodeRequest(&message.Request{
		ServiceName: "n",
		ServiceArgs: message.NewArgs("a", 1, "b", "x"),
	})
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}

	want := `{"serviceName":"n","serviceArgs":{"a":1,"b":"x"}}`
	if text != want {
		t.Fatalf("got %s, want %s", text, want)
	}
}

func TestEncodeRequestEmptyArgs(t *testing.T) {
	text, err := EncodeRequest(&message.Request{ServiceName: "ping"})
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}
	if text != `{"serviceName":"ping","serviceArgs":{}}` {
		t.Fatalf("unexpected envelope: %s", text)
	}
}

func TestEncodeRequestUnrepresentable(t *testing.T) {
	cases := map[string]any{
		"channel": make(chan int),
		"func":    func() {},
		"complex": complex(1, 2),
	}

	for name, value := range cases {
		_, err := EncodeRequest(&message.Request{
			ServiceName: "svc",
			ServiceArgs: message.NewArgs("fine", 1, "bad", value),
		})

		var encErr *EncodingError
		if !errors.As(err, &encErr) {
			t.Fatalf("%s: expect *EncodingError, got %T: %v", name, err, err)
		}
		if encErr.Service != "svc" || encErr.Arg != "bad" {
			t.Errorf("%s: expect service svc / arg bad, got %q / %q", name, encErr.Service, encErr.Arg)
		}
	}
}

func TestRequestRoundTrip(t *testing.T) {
	text, err := EncodeRequest(&message.Request{
		ServiceName: "n",
		ServiceArgs: message.NewArgs("a", 1, "b", "x"),
	})
	if err != nil {
		t.Fatalf("EncodeRequest failed: %v", err)
	}

	req, err := DecodeRequest(text)
	if err != nil {
		t.Fatalf("DecodeRequest failed: %v", err)
	}

	if req.ServiceName != "n" {
		t.Errorf("ServiceName mismatch: got %s, want n", req.ServiceName)
	}
	want := map[string]any{"a": int64(1), "b": "x"}
	if got := req.ServiceArgs.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("ServiceArgs mismatch: got %#v, want %#v", got, want)
	}
}

func TestDecodeResponse(t *testing.T) {
	resp, err := DecodeResponse(`{"requestStatus":"SUCCESS","serviceOutput":"7","extra":true}`)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if resp.Status != message.StatusSuccess || resp.Output != "7" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestDecodeResponseErrors(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		missing bool
	}{
		{"not json", `SUCCESS 7`, false},
		{"array", `["SUCCESS","7"]`, false},
		{"null", `null`, true},
		{"no status", `{"serviceOutput":"7"}`, true},
		{"no output", `{"requestStatus":"SUCCESS"}`, true},
		{"numeric output", `{"requestStatus":"SUCCESS","serviceOutput":7}`, false},
		{"stray brace", `{"requestStatus":"SUCCESS","serviceOutput":"7"}}`, false},
		{"stray bracket", `{"requestStatus":"SUCCESS","serviceOutput":"7"}]`, false},
		{"second value", `{"requestStatus":"SUCCESS","serviceOutput":"7"} {}`, false},
	}

	for _, tc := range cases {
		_, err := DecodeResponse(tc.text)

		var decErr *DecodingError
		if !errors.As(err, &decErr) {
			t.Fatalf("%s: expect *DecodingError, got %T: %v", tc.name, err, err)
		}
		if decErr.Text != tc.text {
			t.Errorf("%s: DecodingError should keep the received text", tc.name)
		}
		if got := errors.Is(err, ErrMissingField); got != tc.missing {
			t.Errorf("%s: errors.Is(ErrMissingField) = %v, want %v", tc.name, got, tc.missing)
		}
	}
}

func TestDecodeRequestErrors(t *testing.T) {
	for _, text := range []string{
		`{"serviceArgs":{}}`,
		`{"serviceName":"x"}`,
		`{"serviceName":"x","serviceArgs":null}`,
		`{"serviceName":"x","serviceArgs":[1]}`,
		`{"serviceName":"x","serviceArgs":{}}]`,
		`{"serviceName":"x","serviceArgs":{}}}`,
	} {
		_, err := DecodeRequest(text)
		var decErr *DecodingError
		if !errors.As(err, &decErr) {
			t.Errorf("%s: expect *DecodingError, got %v", text, err)
			continue
		}
		if !strings.Contains(decErr.Error(), "decode request") {
			t.Errorf("%s: unexpected message %q", text, decErr.Error())
		}
	}
}

func TestEncodeResponse(t *testing.T) {
	text, err := EncodeResponse(message.Failure("bad input"))
	if err != nil {
		t.Fatalf("EncodeResponse failed: %v", err)
	}
	if text != `{"requestStatus":"ERROR","serviceOutput":"bad input"}` {
		t.Fatalf("unexpected envelope: %s", text)
	}
}

func TestEncodeRequestKeepsMarkup(t *testing.T) {
	text, err := EncodeRequest(&message.Request{
		ServiceName: "q",
		ServiceArgs: message.NewArgs("expr", "a<b&c"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"serviceName":"q","serviceArgs":{"expr":"a<b&c"}}`; text != want {
		t.Fatalf("expect %s, got %s", want, text)
	}
}
