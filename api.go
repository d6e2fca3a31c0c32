package wbcache

import (
	"context"
	"errors"
	"time"

	"github.com/roomstate/wbcache/codec"
	"github.com/roomstate/wbcache/docstore"
	"github.com/roomstate/wbcache/provider"
)

// DefaultTTL is the fast-cache expiry used when Options.DefaultTTL is zero
// and a caller passes no per-write TTL.
const DefaultTTL = time.Hour

var ErrNoTiers = errors.New("wbcache: at least one of Cache and Store is required")

// Manager is the public write-behind facade combining the fast cache, the
// durable store and the background Worker. All operations follow an
// availability-first contract: backend failures are logged and surface as
// false/default/empty returns, never as errors.
type Manager interface {
	// Get is a read-through lookup: a fast-cache hit short-circuits; a miss
	// falls through to the durable store, repopulating the cache on a hit.
	// Returns def when neither tier has the key.
	Get(ctx context.Context, collection, key string, def any) any

	// Set writes synchronously to the fast cache and enqueues the durable
	// write, returning without waiting for durable completion. A zero ttl
	// means the default TTL. Returns false when the fast-cache write fails;
	// the return value says nothing about durability either way.
	Set(ctx context.Context, collection, key string, value any, ttl time.Duration) bool

	// Delete removes the key from the fast cache (best-effort) and enqueues
	// the durable delete. Always returns true.
	Delete(ctx context.Context, collection, key string) bool

	// Increment atomically adds amount to the hash field in the fast cache,
	// refreshes the hash TTL, and enqueues the matching durable increment.
	// An empty field means "count"; a zero amount means 1. Returns the
	// post-increment cache value, or amount when the cache is unavailable.
	Increment(ctx context.Context, collection, key, field string, amount int64) int64

	// GetHash returns the whole hash, cache-first with a durable fallback.
	// Digit-only fields decode to int64. Read-only: never repopulates.
	GetHash(ctx context.Context, collection, key string) map[string]any

	// FindKeysByValue returns the keys currently holding exactly target,
	// unioning the durable equality query with a fast-cache keyspace scan.
	// Treat the result as a set; ordering is not guaranteed.
	FindKeysByValue(ctx context.Context, collection string, target any) []string

	// LoadAllToCache warms the fast cache from every durable collection.
	// Per-item failures are logged and skipped.
	LoadAllToCache(ctx context.Context)

	// Shutdown drains pending durable writes for up to timeout and halts
	// the Worker, returning true iff nothing was lost. Hosts must call it
	// exactly once before process exit.
	Shutdown(timeout time.Duration) bool
}

// Options tune the Manager. At least one of Cache and Store is required;
// everything else has defaults.
type Options struct {
	// Cache is the fast tier. Nil degrades reads and writes to the durable
	// store alone.
	Cache provider.Provider

	// Store is the durable tier. Nil disables write-behind persistence
	// entirely; the Worker is never started.
	Store docstore.Store

	Codec      codec.Codec   // structured payloads; nil => codec.JSON{}
	Logger     Logger        // nil => NopLogger
	DefaultTTL time.Duration // 0 => 1h
}

func New(opts Options) (Manager, error) {
	return newManager(opts)
}
