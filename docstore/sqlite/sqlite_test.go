package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "wbcache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertFindOne(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	at := time.Now().UTC()
	if err := s.Upsert(ctx, "rooms", "r1", "open", at); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	doc, ok, err := s.FindOne(ctx, "rooms", "r1")
	if err != nil || !ok {
		t.Fatalf("FindOne: ok=%v err=%v", ok, err)
	}
	if doc.Value != "open" {
		t.Fatalf("value = %#v", doc.Value)
	}
	if !doc.UpdatedAt.Equal(at) {
		t.Fatalf("updated_at = %v, want %v", doc.UpdatedAt, at)
	}

	// overwrite
	if err := s.Upsert(ctx, "rooms", "r1", "closed", time.Now().UTC()); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	doc, _, err = s.FindOne(ctx, "rooms", "r1")
	if err != nil || doc.Value != "closed" {
		t.Fatalf("after overwrite: %#v, %v", doc.Value, err)
	}
}

func TestFindOneMiss(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.FindOne(context.Background(), "rooms", "nope")
	if err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
}

func TestStructuredValueRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	in := map[string]any{"name": "alpha", "members": []any{"m1", "m2"}}
	if err := s.Upsert(ctx, "teams", "t1", in, time.Now().UTC()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	doc, ok, err := s.FindOne(ctx, "teams", "t1")
	if err != nil || !ok {
		t.Fatalf("FindOne: ok=%v err=%v", ok, err)
	}
	m, ok := doc.Value.(map[string]any)
	if !ok {
		t.Fatalf("value type %T", doc.Value)
	}
	if m["name"] != "alpha" {
		t.Fatalf("name = %v", m["name"])
	}
	if !reflect.DeepEqual(m["members"], []any{"m1", "m2"}) {
		t.Fatalf("members = %#v", m["members"])
	}
}

func TestIncrementField(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	// increment on a missing document creates it
	if err := s.IncrementField(ctx, "game", "g1", "count", 2, time.Now().UTC()); err != nil {
		t.Fatalf("IncrementField: %v", err)
	}
	if err := s.IncrementField(ctx, "game", "g1", "count", 3, time.Now().UTC()); err != nil {
		t.Fatalf("IncrementField: %v", err)
	}
	if err := s.IncrementField(ctx, "game", "g1", "misses", -1, time.Now().UTC()); err != nil {
		t.Fatalf("IncrementField: %v", err)
	}

	doc, ok, err := s.FindOne(ctx, "game", "g1")
	if err != nil || !ok {
		t.Fatalf("FindOne: ok=%v err=%v", ok, err)
	}
	m := doc.Value.(map[string]any)
	if n := m["count"].(json.Number); n.String() != "5" {
		t.Fatalf("count = %v", n)
	}
	if n := m["misses"].(json.Number); n.String() != "-1" {
		t.Fatalf("misses = %v", n)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.Upsert(ctx, "rooms", "r1", "v", time.Now().UTC()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Delete(ctx, "rooms", "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.FindOne(ctx, "rooms", "r1"); ok {
		t.Fatal("document should be gone")
	}
	// deleting again is not an error
	if err := s.Delete(ctx, "rooms", "r1"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestFindKeysByValue(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Now().UTC()
	_ = s.Upsert(ctx, "rooms", "r1", "X", now)
	_ = s.Upsert(ctx, "rooms", "r2", "X", now)
	_ = s.Upsert(ctx, "rooms", "r3", "Y", now)
	_ = s.Upsert(ctx, "teams", "t1", "X", now)

	got, err := s.FindKeysByValue(ctx, "rooms", "X")
	if err != nil {
		t.Fatalf("FindKeysByValue: %v", err)
	}
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"r1", "r2"}) {
		t.Fatalf("keys = %v", got)
	}

	// structured equality
	_ = s.Upsert(ctx, "teams", "t2", map[string]any{"a": 1, "b": 2}, now)
	got, err = s.FindKeysByValue(ctx, "teams", map[string]any{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("FindKeysByValue structured: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"t2"}) {
		t.Fatalf("keys = %v", got)
	}
}

func TestCollectionsSkipsSystem(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Now().UTC()
	_ = s.Upsert(ctx, "rooms", "r1", "v", now)
	_ = s.Upsert(ctx, "teams", "t1", "v", now)
	_ = s.Upsert(ctx, "system.indexes", "i1", "v", now)

	got, err := s.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"rooms", "teams"}) {
		t.Fatalf("collections = %v", got)
	}
}

func TestAll(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Now().UTC()
	_ = s.Upsert(ctx, "rooms", "r1", "a", now)
	_ = s.Upsert(ctx, "rooms", "r2", map[string]any{"count": 2}, now)

	docs, err := s.All(ctx, "rooms")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("len = %d", len(docs))
	}
}

func TestOpenValidation(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
