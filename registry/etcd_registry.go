// etcd-backed Registry.
//
// etcd is a distributed key-value store with strong consistency (Raft). Instances are
// stored as:
//
//	Key:   /stub-rpc/{endpoint}/{addr}
//	Value: JSON-encoded Instance
//
// Registration uses TTL-based leases: if a responder dies, the lease expires and the
// entry disappears instead of lingering as a ghost instance.

package registry

import (
	"context"
	"encoding/json"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const keyPrefix = "/stub-rpc/"

// EtcdRegistry implements Registry using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // thread-safe, shared across goroutines
	logger *zap.Logger
}

// NewEtcdRegistry connects to the given etcd endpoints. logger may be nil.
func NewEtcdRegistry(endpoints []string, dialTimeout time.Duration, logger *zap.Logger) (*EtcdRegistry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		Logger:      logger.Named("etcd"),
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c, logger: logger}, nil
}

func endpointPrefix(endpoint string) string {
	return keyPrefix + endpoint + "/"
}

// Register stores instance under a lease of ttl seconds and keeps the lease alive
// until ctx is done.
//
// Note: the lease ID stays local so one EtcdRegistry can serve several responders.
func (r *EtcdRegistry) Register(ctx context.Context, endpoint string, instance Instance, ttl int64) error {
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	key := endpointPrefix(endpoint) + instance.Addr
	if _, err := r.client.Put(ctx, key, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	// Drain KeepAlive responses so the channel never fills up
	go func() {
		for range ch {
		}
		r.logger.Debug("lease keepalive stopped", zap.String("key", key))
	}()
	r.logger.Info("registered instance", zap.String("key", key), zap.Int64("ttl", ttl))
	return nil
}

func (r *EtcdRegistry) Deregister(ctx context.Context, endpoint string, addr string) error {
	_, err := r.client.Delete(ctx, endpointPrefix(endpoint)+addr)
	return err
}

// Discover returns every instance currently stored under the endpoint prefix.
func (r *EtcdRegistry) Discover(ctx context.Context, endpoint string) ([]Instance, error) {
	resp, err := r.client.Get(ctx, endpointPrefix(endpoint), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]Instance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance Instance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			r.logger.Warn("skipping malformed instance", zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Watch emits the full instance list whenever anything under the endpoint prefix
// changes. The channel closes when ctx is done.
func (r *EtcdRegistry) Watch(ctx context.Context, endpoint string) <-chan []Instance {
	ch := make(chan []Instance, 1)

	go func() {
		defer close(ch)
		for range r.client.Watch(ctx, endpointPrefix(endpoint), clientv3.WithPrefix()) {
			// Re-fetch the full list instead of applying individual events
			instances, err := r.Discover(ctx, endpoint)
			if err != nil {
				r.logger.Warn("discover after watch event failed", zap.String("endpoint", endpoint), zap.Error(err))
				continue
			}
			select {
			case ch <- instances:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
