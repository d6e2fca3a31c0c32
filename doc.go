// Package wbcache implements a write-behind persistence layer over two
// asymmetric storage tiers: a TTL-based fast cache (provider.Provider, e.g.
// Redis) and a durable document store (docstore.Store). Reads and writes are
// served from the fast tier; durable persistence happens asynchronously
// through a single background worker draining a FIFO task queue.
//
// Components:
//   - provider.Provider: key/value + hash store with TTLs (Redis, in-memory).
//   - docstore.Store: document store of record (SQLite-backed by default).
//   - codec.Codec: (de)serializes structured payloads (JSON by default).
//   - Worker: one consumer applying queued Tasks in enqueue order.
//
// Keys:
//
//	<collection>:<key>       - scalar entries
//	<collection>:<key>:hash  - hash-shaped entries (one TTL on the whole hash)
//
// Durability is at-most-once: a task that fails to apply is logged and
// discarded, and Shutdown bounds how long pending tasks may drain. The fast
// tier is authoritative for freshness; the durable tier for survival across
// cache eviction and restarts.
package wbcache
