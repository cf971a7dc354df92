// Package cache provides read-through caching for aggregated training stats.
package cache

import "context"

// Invalidator defines a cache invalidation contract.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// StatsCache stores serialized stats as fields grouped under a per-user key,
// so that invalidating the key drops every window at once.
type StatsCache interface {
	Invalidator
	Get(ctx context.Context, key, field string) ([]byte, bool, error)
	Set(ctx context.Context, key, field string, value []byte) error
}

// NoopCache never stores anything.
type NoopCache struct{}

// Get always misses.
func (NoopCache) Get(context.Context, string, string) ([]byte, bool, error) { return nil, false, nil }

// Set performs no action.
func (NoopCache) Set(context.Context, string, string, []byte) error { return nil }

// Invalidate performs no action.
func (NoopCache) Invalidate(context.Context, string) error { return nil }
