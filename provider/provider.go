// Package provider defines the fast-cache abstraction used by wbcache.
//
// Implementations MUST be byte-for-byte transparent for scalar entries: Get
// must return exactly the same []byte that was previously passed to SetEx for
// a key (no prepended/appended metadata, no re-encoding, no mutation).
//
// Important: cache keys of the form "<collection>:<key>" and
// "<collection>:<key>:hash" are owned by wbcache. External code MUST NOT
// write values under a collection's keyspace; foreign writes may be treated
// as corruption by envelope validation and deleted.
package provider

import (
	"context"
	"time"
)

// Provider is a TTL-capable key/value and hash store, the fast tier of the
// write-behind pair. Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// SetEx stores value with the given TTL. A non-positive TTL means no
	// expiry.
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// HIncrBy atomically adds amount to a hash field, creating the hash
	// and the field (at zero) as needed, and returns the new value.
	HIncrBy(ctx context.Context, key, field string, amount int64) (int64, error)

	// HSet writes one hash field.
	HSet(ctx context.Context, key, field, value string) error

	// HGetAll returns every field of a hash; an empty map when absent.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// Expire resets a key's TTL. No-op for missing keys.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Scan returns every key matching pattern. Patterns use a trailing '*'
	// wildcard ("rooms:*"); hash keys match like any other.
	Scan(ctx context.Context, pattern string) ([]string, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
