package loadbalance

import (
	"errors"
	"fmt"
	"testing"

	"stub-rpc/registry"
)

var testInstances = []registry.Instance{
	{Addr: ":8001", Weight: 10, Version: "1.0"},
	{Addr: ":8002", Weight: 5, Version: "1.0"},
	{Addr: ":8003", Weight: 10, Version: "1.0"},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobinBalancer{}

	for i := 0; i < 6; i++ {
		inst, err := b.Pick("", testInstances)
		if err != nil {
			t.Fatal(err)
		}
		if want := testInstances[i%3].Addr; inst.Addr != want {
			t.Fatalf("pick %d: expect %s, got %s", i, want, inst.Addr)
		}
	}
}

func TestEmptyInstances(t *testing.T) {
	for _, name := range []string{"round_robin", "weighted_random", "consistent_hash"} {
		b, err := New(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := b.Pick("k", nil); !errors.Is(err, ErrNoInstances) {
			t.Errorf("%s: expect ErrNoInstances, got %v", name, err)
		}
	}
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandomBalancer{}

	counts := map[string]int{}
	for i := 0; i < 10000; i++ {
		inst, err := b.Pick("", testInstances)
		if err != nil {
			t.Fatal(err)
		}
		counts[inst.Addr]++
	}

	// Weight ratio is 10:5:10, so :8001 should be ~2x of :8002
	ratio := float64(counts[":8001"]) / float64(counts[":8002"])
	if ratio < 1.5 || ratio > 2.5 {
		t.Fatalf("weight ratio :8001/:8002 = %.2f, expect ~2.0", ratio)
	}
}

func TestWeightedRandomZeroWeights(t *testing.T) {
	b := &WeightedRandomBalancer{}
	inst, err := b.Pick("", []registry.Instance{{Addr: ":1"}})
	if err != nil || inst.Addr != ":1" {
		t.Fatalf("expect :1, got %v, %v", inst, err)
	}
}

func TestConsistentHash(t *testing.T) {
	b := NewConsistentHashBalancer()

	inst1, _ := b.Pick("user-123", testInstances)
	inst2, _ := b.Pick("user-123", testInstances)
	if inst1.Addr != inst2.Addr {
		t.Fatalf("same key mapped to different instances: %s vs %s", inst1.Addr, inst2.Addr)
	}

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		inst, _ := b.Pick(fmt.Sprintf("key-%d", i), testInstances)
		seen[inst.Addr] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expect at least 2 different instances, got %d", len(seen))
	}
}

func TestConsistentHashFollowsInstanceSet(t *testing.T) {
	b := NewConsistentHashBalancer()
	only := []registry.Instance{{Addr: ":9000"}}

	b.Pick("k", testInstances)
	inst, _ := b.Pick("k", only)
	if inst.Addr != ":9000" {
		t.Fatalf("ring not rebuilt for new instance set, got %s", inst.Addr)
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("fastest"); err == nil {
		t.Fatal("expect error for unknown balancer")
	}
}
