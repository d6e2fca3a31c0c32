// Package docstore defines the durable document-store abstraction used by
// wbcache. The durable tier is the store of record: slower than the cache,
// addressed by collection name plus primary key, and the survivor across
// cache eviction and process restarts.
package docstore

import (
	"context"
	"time"
)

// Document is one durable record. Value holds the logical payload; structured
// values decode to map[string]any / []any with json.Number numbers.
type Document struct {
	Key       string
	Value     any
	UpdatedAt time.Time
}

// Store is a document store addressed by collection + primary key.
// Must be safe for concurrent use.
type Store interface {
	// FindOne returns (doc, true, nil) when the key exists.
	FindOne(ctx context.Context, collection, key string) (Document, bool, error)

	// Upsert writes {value, updated_at} under key, creating the document
	// if absent.
	Upsert(ctx context.Context, collection, key string, value any, at time.Time) error

	// IncrementField adds amount to value.<field>, creating the document
	// and the field (at zero) as needed, and refreshes updated_at.
	IncrementField(ctx context.Context, collection, key, field string, amount int64, at time.Time) error

	// Delete removes a document. Deleting a missing key is not an error.
	Delete(ctx context.Context, collection, key string) error

	// FindKeysByValue returns the keys of every document in collection
	// whose value equals target exactly.
	FindKeysByValue(ctx context.Context, collection string, target any) ([]string, error)

	// Collections lists collection names, excluding internal "system."
	// collections.
	Collections(ctx context.Context) ([]string, error)

	// All returns every document of a collection.
	All(ctx context.Context, collection string) ([]Document, error)

	// Close releases resources.
	Close() error
}
