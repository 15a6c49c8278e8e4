// Package transport provides the text transports a stub sends its envelopes through.
//
// TCP frames each envelope with the protocol header and expects exactly one response
// frame per request frame:
//
//	stub ──SendText(req)──→ [header|json] ──→ responder
//	stub ←─ReceiveText()── [header|json] ←── responder
//
// HTTP carries the same envelope text inside a JSON-RPC 2.0 call.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	"stub-rpc/loadbalance"
	"stub-rpc/protocol"
	"stub-rpc/registry"
)

// TCP is a blocking text transport over one stream connection. Calls sharing a TCP
// must not interleave a send and its receive with another caller's.
type TCP struct {
	conn    net.Conn
	sending sync.Mutex // Write lock: a frame (header + body) must go out in one piece
}

// NewTCP wraps an established connection.
func NewTCP(conn net.Conn) *TCP {
	return &TCP{conn: conn}
}

// Dial connects to a responder at addr.
func Dial(addr string) (*TCP, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewTCP(conn), nil
}

// DialEndpoint discovers the TCP instances of endpoint, lets the balancer pick one
// (keyed by the endpoint name) and connects to it.
func DialEndpoint(ctx context.Context, reg registry.Registry, bal loadbalance.Balancer, endpoint string) (*TCP, error) {
	instances, err := reg.Discover(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", endpoint, err)
	}

	tcp := instances[:0:0]
	for _, inst := range instances {
		if inst.Transport == "" || inst.Transport == "tcp" {
			tcp = append(tcp, inst)
		}
	}

	inst, err := bal.Pick(endpoint, tcp)
	if err != nil {
		return nil, fmt.Errorf("pick %s via %s: %w", endpoint, bal.Name(), err)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", inst.Addr)
	if err != nil {
		return nil, err
	}
	return NewTCP(conn), nil
}

// SendText writes text as one request frame.
func (t *TCP) SendText(text string) error {
	t.sending.Lock()
	defer t.sending.Unlock()
	return protocol.WriteText(t.conn, protocol.MsgTypeRequest, text)
}

// ReceiveText blocks until one response frame arrives and returns its body.
func (t *TCP) ReceiveText() (string, error) {
	return protocol.ReadText(t.conn, protocol.MsgTypeResponse)
}

// Conn returns the underlying connection.
func (t *TCP) Conn() net.Conn {
	return t.conn
}

func (t *TCP) Close() error {
	return t.conn.Close()
}
