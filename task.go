package wbcache

import "time"

// Kind enumerates the durable-store mutations a Task can describe.
type Kind uint8

const (
	KindSet Kind = iota + 1
	KindDelete
	KindIncrement
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "set"
	case KindDelete:
		return "delete"
	case KindIncrement:
		return "increment"
	default:
		return "unknown"
	}
}

// Task describes one deferred durable-store mutation. Tasks are immutable
// once created and consumed exactly once by the Worker. CreatedAt feeds the
// durable record's updated_at; ordering is FIFO by enqueue time, not by
// CreatedAt.
type Task struct {
	Kind       Kind
	Collection string
	Key        string
	Value      any    // SET only
	Field      string // INCREMENT only
	Amount     int64  // INCREMENT only
	CreatedAt  time.Time
}

func newSetTask(collection, key string, value any) Task {
	return Task{Kind: KindSet, Collection: collection, Key: key, Value: value, CreatedAt: time.Now().UTC()}
}

func newDeleteTask(collection, key string) Task {
	return Task{Kind: KindDelete, Collection: collection, Key: key, CreatedAt: time.Now().UTC()}
}

func newIncrementTask(collection, key, field string, amount int64) Task {
	return Task{Kind: KindIncrement, Collection: collection, Key: key, Field: field, Amount: amount, CreatedAt: time.Now().UTC()}
}
