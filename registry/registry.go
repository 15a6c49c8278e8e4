// Package registry lets responders announce the address they serve on and lets stubs
// find one. Entries are grouped by endpoint name, e.g. "calculator".
package registry

import (
	"context"
	"sort"
	"sync"
)

type Instance struct {
	Addr      string `json:"addr"`
	Transport string `json:"transport"` // "tcp" or "http"
	Weight    int    `json:"weight"`    // Weight for load balancing
	Version   string `json:"version,omitempty"`
}

type Registry interface {
	Register(ctx context.Context, endpoint string, instance Instance, ttl int64) error
	Deregister(ctx context.Context, endpoint string, addr string) error
	Discover(ctx context.Context, endpoint string) ([]Instance, error)
	Watch(ctx context.Context, endpoint string) <-chan []Instance
}

// Memory is an in-process Registry for static configurations and tests. TTLs are
// ignored.
type Memory struct {
	mu        sync.Mutex
	instances map[string]map[string]Instance
	watchers  map[string][]chan []Instance
}

func NewMemory() *Memory {
	return &Memory{
		instances: make(map[string]map[string]Instance),
		watchers:  make(map[string][]chan []Instance),
	}
}

func (m *Memory) Register(_ context.Context, endpoint string, instance Instance, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.instances[endpoint] == nil {
		m.instances[endpoint] = make(map[string]Instance)
	}
	m.instances[endpoint][instance.Addr] = instance
	m.notify(endpoint)
	return nil
}

func (m *Memory) Deregister(_ context.Context, endpoint string, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.instances[endpoint], addr)
	m.notify(endpoint)
	return nil
}

// Discover returns the instances of endpoint sorted by address.
func (m *Memory) Discover(_ context.Context, endpoint string) ([]Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(endpoint), nil
}

// Watch emits the full instance list after every change until ctx is done.
// A slow reader only sees the latest list.
func (m *Memory) Watch(ctx context.Context, endpoint string) <-chan []Instance {
	ch := make(chan []Instance, 1)
	m.mu.Lock()
	m.watchers[endpoint] = append(m.watchers[endpoint], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		ws := m.watchers[endpoint]
		for i, w := range ws {
			if w == ch {
				m.watchers[endpoint] = append(ws[:i], ws[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

func (m *Memory) list(endpoint string) []Instance {
	out := make([]Instance, 0, len(m.instances[endpoint]))
	for _, inst := range m.instances[endpoint] {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// notify must be called with mu held.
func (m *Memory) notify(endpoint string) {
	list := m.list(endpoint)
	for _, ch := range m.watchers[endpoint] {
		select {
		case <-ch:
		default:
		}
		ch <- list
	}
}
