package wbcache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/roomstate/wbcache/codec"
	"github.com/roomstate/wbcache/docstore"
	"github.com/roomstate/wbcache/internal/keys"
	"github.com/roomstate/wbcache/provider"
)

type manager struct {
	cache  provider.Provider
	store  docstore.Store
	codec  codec.Codec
	log    Logger
	ttl    time.Duration
	worker *Worker
}

func newManager(opts Options) (*manager, error) {
	if opts.Cache == nil && opts.Store == nil {
		return nil, ErrNoTiers
	}
	m := &manager{
		cache: opts.Cache,
		store: opts.Store,
	}
	m.log = coalesce[Logger](opts.Logger, NopLogger{})
	m.codec = coalesce[codec.Codec](opts.Codec, codec.JSON{})
	m.ttl = coalesce[time.Duration](opts.DefaultTTL, DefaultTTL)

	// exactly one worker per manager; started only when a durable tier
	// exists
	m.worker = newWorker(m.log)
	if m.store != nil {
		m.worker.Start(m.store)
	}
	return m, nil
}

func (m *manager) Get(ctx context.Context, collection, key string, def any) any {
	ck := keys.Cache(collection, key)

	if m.cache != nil {
		raw, ok, err := m.cache.Get(ctx, ck)
		switch {
		case err != nil:
			m.log.Warn("cache get failed", Fields{"key": ck, "err": err})
		case ok:
			v, derr := m.decodePayload(raw)
			if derr == nil {
				return v
			}
			// self-heal corrupt entries
			m.log.Warn("corrupt cache payload dropped", Fields{"key": ck, "err": derr})
			_ = m.cache.Del(ctx, ck)
		}
	}

	if m.store != nil {
		doc, ok, err := m.store.FindOne(ctx, collection, key)
		if err != nil {
			m.log.Warn("durable get failed", Fields{"collection": collection, "key": key, "err": err})
		} else if ok {
			if m.cache != nil {
				if raw, eerr := m.encodePayload(doc.Value); eerr == nil {
					if serr := m.cache.SetEx(ctx, ck, raw, m.ttl); serr != nil {
						m.log.Warn("cache repopulate failed", Fields{"key": ck, "err": serr})
					}
				}
			}
			return doc.Value
		}
	}

	return def
}

func (m *manager) Set(ctx context.Context, collection, key string, value any, ttl time.Duration) bool {
	ttl = coalesce[time.Duration](ttl, m.ttl)
	ok := true

	if m.cache != nil {
		ck := keys.Cache(collection, key)
		raw, err := m.encodePayload(value)
		if err == nil {
			err = m.cache.SetEx(ctx, ck, raw, ttl)
		}
		if err != nil {
			m.log.Error("cache set failed", Fields{"key": ck, "err": err})
			ok = false
		}
	}

	// the durable task is enqueued regardless of the cache outcome; the
	// return value only reports the fast tier
	if m.store != nil {
		m.worker.Enqueue(newSetTask(collection, key, value))
	}
	return ok
}

func (m *manager) Delete(ctx context.Context, collection, key string) bool {
	if m.cache != nil {
		ck := keys.Cache(collection, key)
		if err := m.cache.Del(ctx, ck); err != nil {
			m.log.Warn("cache delete failed", Fields{"key": ck, "err": err})
		}
		if err := m.cache.Del(ctx, keys.Hash(collection, key)); err != nil {
			m.log.Warn("cache delete failed", Fields{"key": keys.Hash(collection, key), "err": err})
		}
	}
	if m.store != nil {
		m.worker.Enqueue(newDeleteTask(collection, key))
	}
	return true
}

func (m *manager) Increment(ctx context.Context, collection, key, field string, amount int64) int64 {
	field = coalesce(field, "count")
	if amount == 0 {
		amount = 1
	}

	newValue := amount
	if m.cache != nil {
		hk := keys.Hash(collection, key)
		v, err := m.cache.HIncrBy(ctx, hk, field, amount)
		if err != nil {
			m.log.Warn("cache increment failed", Fields{"key": hk, "field": field, "err": err})
		} else {
			newValue = v
			if err := m.cache.Expire(ctx, hk, m.ttl); err != nil {
				m.log.Warn("cache expire failed", Fields{"key": hk, "err": err})
			}
		}
	}

	if m.store != nil {
		m.worker.Enqueue(newIncrementTask(collection, key, field, amount))
	}
	return newValue
}

func (m *manager) GetHash(ctx context.Context, collection, key string) map[string]any {
	if m.cache != nil {
		hk := keys.Hash(collection, key)
		h, err := m.cache.HGetAll(ctx, hk)
		if err != nil {
			m.log.Warn("cache hgetall failed", Fields{"key": hk, "err": err})
		} else if len(h) > 0 {
			out := make(map[string]any, len(h))
			for f, v := range h {
				out[f] = decodeHashField(v)
			}
			return out
		}
	}

	if m.store != nil {
		doc, ok, err := m.store.FindOne(ctx, collection, key)
		if err != nil {
			m.log.Warn("durable hash get failed", Fields{"collection": collection, "key": key, "err": err})
		} else if ok {
			if mv, ok := doc.Value.(map[string]any); ok {
				return mv
			}
		}
	}

	return map[string]any{}
}

// decodeHashField converts digit-only counter fields back to integers,
// leaving everything else a string.
func decodeHashField(v string) any {
	if v == "" || !digitsOnly(v) {
		return v
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return v
	}
	return n
}

func digitsOnly(s string) bool {
	i := 0
	if s[0] == '-' {
		if len(s) == 1 {
			return false
		}
		i = 1
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (m *manager) FindKeysByValue(ctx context.Context, collection string, target any) []string {
	matched := []string{}
	seen := make(map[string]bool)

	// durable equality query: indexable and bounded
	if m.store != nil {
		ks, err := m.store.FindKeysByValue(ctx, collection, target)
		if err != nil {
			m.log.Warn("durable value query failed", Fields{"collection": collection, "err": err})
		} else {
			for _, k := range ks {
				if !seen[k] {
					seen[k] = true
					matched = append(matched, k)
				}
			}
		}
	}

	// cache keyspace scan: O(keyspace), but it is the only path that can
	// see writes whose durable task has not drained yet
	if m.cache != nil {
		cacheKeys, err := m.cache.Scan(ctx, keys.Pattern(collection))
		if err != nil {
			m.log.Warn("cache scan failed", Fields{"collection": collection, "err": err})
			return matched
		}
		for _, ck := range cacheKeys {
			if strings.HasSuffix(ck, keys.HashSuffix) {
				continue
			}
			k, ok := keys.Split(collection, ck)
			if !ok || seen[k] {
				continue
			}
			raw, ok, err := m.cache.Get(ctx, ck)
			if err != nil || !ok {
				continue
			}
			v, err := m.decodePayload(raw)
			if err != nil {
				continue
			}
			if valuesEqual(v, target) {
				seen[k] = true
				matched = append(matched, k)
			}
		}
	}

	return matched
}

func (m *manager) LoadAllToCache(ctx context.Context) {
	if m.cache == nil || m.store == nil {
		m.log.Warn("warm-load skipped; both tiers required", nil)
		return
	}

	collections, err := m.store.Collections(ctx)
	if err != nil {
		m.log.Error("warm-load failed to list collections", Fields{"err": err})
		return
	}

	loaded := 0
	for _, col := range collections {
		docs, err := m.store.All(ctx, col)
		if err != nil {
			m.log.Warn("warm-load failed to read collection", Fields{"collection": col, "err": err})
			continue
		}
		for _, doc := range docs {
			if doc.Key == "" || doc.Value == nil {
				continue
			}
			if m.warmOne(ctx, col, doc) {
				loaded++
			}
		}
	}
	m.log.Info("cache warm-load complete", Fields{"loaded": loaded})
}

func (m *manager) warmOne(ctx context.Context, collection string, doc docstore.Document) bool {
	// maps go into the hash form so later increments hit the same entry
	if hv, ok := doc.Value.(map[string]any); ok {
		hk := keys.Hash(collection, doc.Key)
		for f, fv := range hv {
			text, ok := scalarText(fv)
			if !ok {
				// nested structures have no hash-field text form
				continue
			}
			if err := m.cache.HSet(ctx, hk, f, text); err != nil {
				m.log.Warn("warm-load hset failed", Fields{"key": hk, "field": f, "err": err})
				return false
			}
		}
		if err := m.cache.Expire(ctx, hk, m.ttl); err != nil {
			m.log.Warn("warm-load expire failed", Fields{"key": hk, "err": err})
		}
		return true
	}

	raw, err := m.encodePayload(doc.Value)
	if err != nil {
		m.log.Warn("warm-load encode failed", Fields{"collection": collection, "key": doc.Key, "err": err})
		return false
	}
	ck := keys.Cache(collection, doc.Key)
	if err := m.cache.SetEx(ctx, ck, raw, m.ttl); err != nil {
		m.log.Warn("warm-load set failed", Fields{"key": ck, "err": err})
		return false
	}
	return true
}

func (m *manager) Shutdown(timeout time.Duration) bool {
	return m.worker.Stop(timeout)
}
