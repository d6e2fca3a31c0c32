// Package memory implements an in-process Provider for tests and for
// cache-only runs where no Redis is reachable. Entries expire lazily on
// access.
package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	pr "github.com/roomstate/wbcache/provider"
)

type entry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type hashEntry struct {
	m   map[string]string
	exp time.Time
}

type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	hashes  map[string]hashEntry
}

var _ pr.Provider = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		entries: make(map[string]entry),
		hashes:  make(map[string]hashEntry),
	}
}

func expired(exp time.Time) bool {
	return !exp.IsZero() && time.Now().After(exp)
}

func deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (p *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[key]
	if !ok {
		return nil, false, nil
	}
	if expired(e.exp) {
		delete(p.entries, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *Memory) SetEx(_ context.Context, key string, value []byte, ttl time.Duration) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	p.mu.Lock()
	p.entries[key] = entry{v: cp, exp: deadline(ttl)}
	p.mu.Unlock()
	return nil
}

func (p *Memory) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.entries, key)
	delete(p.hashes, key)
	p.mu.Unlock()
	return nil
}

func (p *Memory) HIncrBy(_ context.Context, key, field string, amount int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.hashes[key]
	if !ok || expired(h.exp) {
		h = hashEntry{m: make(map[string]string)}
	}
	cur, _ := strconv.ParseInt(h.m[field], 10, 64)
	cur += amount
	h.m[field] = strconv.FormatInt(cur, 10)
	p.hashes[key] = h
	return cur, nil
}

func (p *Memory) HSet(_ context.Context, key, field, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.hashes[key]
	if !ok || expired(h.exp) {
		h = hashEntry{m: make(map[string]string)}
	}
	h.m[field] = value
	p.hashes[key] = h
	return nil
}

func (p *Memory) HGetAll(_ context.Context, key string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.hashes[key]
	if !ok {
		return map[string]string{}, nil
	}
	if expired(h.exp) {
		delete(p.hashes, key)
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(h.m))
	for k, v := range h.m {
		out[k] = v
	}
	return out, nil
}

func (p *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[key]; ok && !expired(e.exp) {
		e.exp = deadline(ttl)
		p.entries[key] = e
	}
	if h, ok := p.hashes[key]; ok && !expired(h.exp) {
		h.exp = deadline(ttl)
		p.hashes[key] = h
	}
	return nil
}

func (p *Memory) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix, wildcard := strings.CutSuffix(pattern, "*")
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []string
	for k, e := range p.entries {
		if expired(e.exp) {
			continue
		}
		if matches(k, prefix, wildcard) {
			out = append(out, k)
		}
	}
	for k, h := range p.hashes {
		if expired(h.exp) {
			continue
		}
		if matches(k, prefix, wildcard) {
			out = append(out, k)
		}
	}
	return out, nil
}

func matches(key, prefix string, wildcard bool) bool {
	if wildcard {
		return strings.HasPrefix(key, prefix)
	}
	return key == prefix
}

func (p *Memory) Close(context.Context) error { return nil }
