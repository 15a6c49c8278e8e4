package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"stub-rpc/deserializer"
	"stub-rpc/loadbalance"
	"stub-rpc/registry"
	"stub-rpc/stub"
	"stub-rpc/transport"
)

// startAnnounced runs a server that announces itself under endpoint on reg.
func startAnnounced(t *testing.T, reg registry.Registry, endpoint string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	svr := newTestServer(t, WithRegistry(reg, endpoint, addr, 10))
	go svr.Serve(ln)
	t.Cleanup(func() { svr.Shutdown(3 * time.Second) })
	return addr
}

func waitInstances(t *testing.T, reg registry.Registry, endpoint string, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		instances, err := reg.Discover(context.Background(), endpoint)
		if err == nil && len(instances) >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expect %d instances of %s, got %d (%v)", n, endpoint, len(instances), err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// 完整链路: Registry → LB → DialEndpoint → Protocol → Codec → Middleware → Server → Handler
func runDiscoveredCalls(t *testing.T, reg registry.Registry, endpoint string) {
	t.Helper()
	startAnnounced(t, reg, endpoint)
	startAnnounced(t, reg, endpoint)
	waitInstances(t, reg, endpoint, 2)

	bal := &loadbalance.RoundRobinBalancer{}
	sig := stub.Signature{Service: "Arith.Add", Params: []string{"a", "b"}, Result: deserializer.KindInt}
	seen := map[string]bool{}

	for i := 1; i <= 10; i++ {
		tr, err := transport.DialEndpoint(context.Background(), reg, bal, endpoint)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		seen[tr.Conn().RemoteAddr().String()] = true

		sum, err := stub.As[int64](stub.NewDecorator(tr).MustWrap(sig, nil).Call(i, i*10))
		tr.Close()
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		if sum != int64(i+i*10) {
			t.Fatalf("request %d: expect %d, got %d", i, i+i*10, sum)
		}
	}
	if len(seen) != 2 {
		t.Fatalf("expect calls spread over 2 instances, got %d", len(seen))
	}
}

func TestDiscoveredCallsMemory(t *testing.T) {
	runDiscoveredCalls(t, registry.NewMemory(), "calc")
}

// Needs a running etcd, e.g. STUBRPC_ETCD_ENDPOINTS=127.0.0.1:2379.
func TestDiscoveredCallsEtcd(t *testing.T) {
	endpoints := os.Getenv("STUBRPC_ETCD_ENDPOINTS")
	if endpoints == "" {
		t.Skip("STUBRPC_ETCD_ENDPOINTS not set")
	}
	reg, err := registry.NewEtcdRegistry(strings.Split(endpoints, ","), 3*time.Second, nil)
	if err != nil {
		t.Fatalf("failed to connect etcd: %v", err)
	}
	defer reg.Close()

	runDiscoveredCalls(t, reg, fmt.Sprintf("calc-it-%d", time.Now().UnixNano()))
}
