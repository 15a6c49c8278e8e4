package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"stub-rpc/loadbalance"
	"stub-rpc/protocol"
	"stub-rpc/registry"
)

// echoResponder answers every request frame with "re:" + body.
func echoResponder(t *testing.T, conn net.Conn) {
	t.Helper()
	for {
		text, err := protocol.ReadText(conn, protocol.MsgTypeRequest)
		if err != nil {
			return
		}
		if err := protocol.WriteText(conn, protocol.MsgTypeResponse, "re:"+text); err != nil {
			return
		}
	}
}

func TestTCPExchange(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	go echoResponder(t, server)

	tr := NewTCP(client)
	for _, text := range []string{"a", `{"serviceName":"x"}`, ""} {
		if err := tr.SendText(text); err != nil {
			t.Fatal(err)
		}
		got, err := tr.ReceiveText()
		if err != nil {
			t.Fatal(err)
		}
		if got != "re:"+text {
			t.Fatalf("expect %q, got %q", "re:"+text, got)
		}
	}
}

func TestTCPRejectsRequestFrameAsReply(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	go func() {
		protocol.ReadText(server, protocol.MsgTypeRequest)
		protocol.WriteText(server, protocol.MsgTypeRequest, "wrong")
	}()

	tr := NewTCP(client)
	if err := tr.SendText("hi"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.ReceiveText(); err == nil {
		t.Fatal("expect error for request-typed reply frame")
	}
}

func TestDialEndpoint(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		echoResponder(t, conn)
	}()

	reg := registry.NewMemory()
	ctx := context.Background()
	reg.Register(ctx, "calc", registry.Instance{Addr: "127.0.0.1:1", Transport: "http"}, 10)
	reg.Register(ctx, "calc", registry.Instance{Addr: ln.Addr().String(), Transport: "tcp"}, 10)

	tr, err := DialEndpoint(ctx, reg, &loadbalance.RoundRobinBalancer{}, "calc")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	if err := tr.SendText("ping"); err != nil {
		t.Fatal(err)
	}
	got, err := tr.ReceiveText()
	if err != nil || got != "re:ping" {
		t.Fatalf("expect re:ping, got %q, %v", got, err)
	}
}

func TestDialEndpointNoInstances(t *testing.T) {
	_, err := DialEndpoint(context.Background(), registry.NewMemory(), &loadbalance.RoundRobinBalancer{}, "none")
	if !errors.Is(err, loadbalance.ErrNoInstances) {
		t.Fatalf("expect ErrNoInstances, got %v", err)
	}
}

type Envelope struct{}

func (e *Envelope) Exchange(r *http.Request, args *ExchangeArgs, reply *ExchangeReply) error {
	if args.Text == "fail" {
		return errors.New("refused")
	}
	reply.Text = strings.ToUpper(args.Text)
	return nil
}

func newJSONRPCServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := rpc.NewServer()
	s.RegisterCodec(json2.NewCodec(), "application/json")
	if err := s.RegisterService(new(Envelope), "Envelope"); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPExchange(t *testing.T) {
	srv := newJSONRPCServer(t)
	tr := NewHTTP(srv.URL, srv.Client())

	if err := tr.SendText("hello"); err != nil {
		t.Fatal(err)
	}
	got, err := tr.ReceiveText()
	if err != nil || got != "HELLO" {
		t.Fatalf("expect HELLO, got %q, %v", got, err)
	}
}

func TestHTTPReceiveWithoutSend(t *testing.T) {
	tr := NewHTTP("http://unused", nil)
	if _, err := tr.ReceiveText(); !errors.Is(err, ErrNoReply) {
		t.Fatalf("expect ErrNoReply, got %v", err)
	}
}

func TestHTTPRemoteFault(t *testing.T) {
	srv := newJSONRPCServer(t)
	tr := NewHTTP(srv.URL, srv.Client())

	if err := tr.SendText("fail"); err == nil {
		t.Fatal("expect error from JSON-RPC fault")
	}
	if _, err := tr.ReceiveText(); !errors.Is(err, ErrNoReply) {
		t.Fatalf("failed exchange must not leave a reply, got %v", err)
	}
}

func TestHTTPStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewHTTP(srv.URL, srv.Client()).SendText("x")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("expect status code error, got %v", err)
	}
}
