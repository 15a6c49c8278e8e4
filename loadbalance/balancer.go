// Package loadbalance chooses which registered instance a new transport connects to.
//
// Three strategies are implemented:
//   - RoundRobin:      equal-capacity responders
//   - WeightedRandom:  responders of different capacity
//   - ConsistentHash:  the same key (e.g. a caller id) always reaches the same responder
package loadbalance

import (
	"errors"
	"fmt"

	"stub-rpc/registry"
)

var ErrNoInstances = errors.New("no instances available")

// Balancer picks one instance. Pick must be goroutine-safe.
type Balancer interface {
	// Pick selects one instance from the list. key is only used by key-affine
	// strategies and may be empty.
	Pick(key string, instances []registry.Instance) (*registry.Instance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}

// New returns the balancer registered under name: "round_robin", "weighted_random" or
// "consistent_hash". The empty name selects round robin.
func New(name string) (Balancer, error) {
	switch name {
	case "", "round_robin":
		return &RoundRobinBalancer{}, nil
	case "weighted_random":
		return &WeightedRandomBalancer{}, nil
	case "consistent_hash":
		return NewConsistentHashBalancer(), nil
	default:
		return nil, fmt.Errorf("unknown balancer %q", name)
	}
}
