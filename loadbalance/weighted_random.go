package loadbalance

import (
	"math/rand"

	"stub-rpc/registry"
)

// WeightedRandomBalancer picks an instance with probability proportional to its weight.
// Weights below 1 count as 1 so an unweighted instance is still reachable.
type WeightedRandomBalancer struct{}

func (b *WeightedRandomBalancer) Pick(_ string, instances []registry.Instance) (*registry.Instance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}

	total := 0
	for _, inst := range instances {
		total += weight(inst)
	}

	r := rand.Intn(total)
	for i := range instances {
		r -= weight(instances[i])
		if r < 0 {
			return &instances[i], nil
		}
	}
	return &instances[len(instances)-1], nil
}

func (b *WeightedRandomBalancer) Name() string {
	return "weighted_random"
}

func weight(inst registry.Instance) int {
	if inst.Weight < 1 {
		return 1
	}
	return inst.Weight
}
