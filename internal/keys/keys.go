package keys

import "strings"

// HashSuffix marks fast-cache keys that hold hash-shaped entries.
const HashSuffix = ":hash"

// Cache returns the fast-cache key for a scalar entry: "<collection>:<key>".
func Cache(collection, key string) string {
	return collection + ":" + key
}

// Hash returns the fast-cache key for a hash-shaped entry:
// "<collection>:<key>:hash". The whole hash carries one TTL.
func Hash(collection, key string) string {
	return Cache(collection, key) + HashSuffix
}

// Pattern returns the scan pattern matching every cache key of a collection.
func Pattern(collection string) string {
	return collection + ":*"
}

// Split extracts the logical key from a scalar cache key belonging to
// collection. Returns false for keys outside the collection's keyspace and
// for hash-shaped keys.
func Split(collection, cacheKey string) (string, bool) {
	prefix := collection + ":"
	if !strings.HasPrefix(cacheKey, prefix) {
		return "", false
	}
	if strings.HasSuffix(cacheKey, HashSuffix) {
		return "", false
	}
	k := cacheKey[len(prefix):]
	if k == "" {
		return "", false
	}
	return k, true
}
