package wbcache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/roomstate/wbcache/docstore"
)

// memStore is an in-memory docstore.Store for tests. It records every
// successful apply in order and can inject latency and upsert failures.
type memStore struct {
	mu        sync.Mutex
	docs      map[string]map[string]docstore.Document
	delay     time.Duration
	upsertErr error
	applied   []string
}

var _ docstore.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]map[string]docstore.Document)}
}

func (s *memStore) setDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

func (s *memStore) snooze() {
	s.mu.Lock()
	d := s.delay
	s.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
}

func (s *memStore) collection(name string) map[string]docstore.Document {
	if s.docs[name] == nil {
		s.docs[name] = make(map[string]docstore.Document)
	}
	return s.docs[name]
}

func (s *memStore) FindOne(_ context.Context, collection, key string) (docstore.Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][key]
	return doc, ok, nil
}

func (s *memStore) Upsert(_ context.Context, collection, key string, value any, at time.Time) error {
	s.snooze()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.collection(collection)[key] = docstore.Document{Key: key, Value: value, UpdatedAt: at}
	s.applied = append(s.applied, "set:"+collection+":"+key)
	return nil
}

func (s *memStore) IncrementField(_ context.Context, collection, key, field string, amount int64, at time.Time) error {
	s.snooze()
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.collection(collection)[key]
	m, ok := doc.Value.(map[string]any)
	if !ok {
		m = make(map[string]any)
	}
	cur, _ := m[field].(int64)
	m[field] = cur + amount
	s.collection(collection)[key] = docstore.Document{Key: key, Value: m, UpdatedAt: at}
	s.applied = append(s.applied, "inc:"+collection+":"+key)
	return nil
}

func (s *memStore) Delete(_ context.Context, collection, key string) error {
	s.snooze()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs[collection], key)
	s.applied = append(s.applied, "del:"+collection+":"+key)
	return nil
}

func (s *memStore) FindKeysByValue(_ context.Context, collection string, target any) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k, doc := range s.docs[collection] {
		if valuesEqual(doc.Value, target) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) Collections(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for c := range s.docs {
		if strings.HasPrefix(c, "system.") {
			continue
		}
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (s *memStore) All(_ context.Context, collection string) ([]docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []docstore.Document
	for _, doc := range s.docs[collection] {
		out = append(out, doc)
	}
	return out, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) appliedOps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.applied))
	copy(out, s.applied)
	return out
}

func (s *memStore) value(collection, key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[collection][key]
	return doc.Value, ok
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
