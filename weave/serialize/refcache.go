/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package serialize

import (
	"reflect"
	"sync"

	"github.com/wandb/weave-sub006/weave/refs"
)

// DefaultRefCacheSize bounds a RefCache built by NewRefCache.
const DefaultRefCacheSize = 1 << 14

// identity keys a value by address. Only pointers, maps and non-empty slices
// have one; plain values are never cached.
type identity struct {
	typ reflect.Type
	ptr uintptr
	n   int
}

type cacheEntry struct {
	// obj keeps the address from being reused while the entry is live.
	// Eviction releases it.
	obj any
	// digest is the content fingerprint taken when the ref was recorded.
	digest string
	ref    refs.Ref
}

// RefCache is a bounded side table from object identity to the ref the
// object was last saved under. It never mutates the objects it tracks.
// A hit is only reported while the object's content still matches what was
// saved, so mutating an object after saving it turns the next lookup into a
// miss. The oldest entry is evicted once the cache is full.
//
// Concurrent first saves of the same object may race; the last write wins,
// which is harmless because both writers derive the same content-addressed ref.
type RefCache struct {
	mu    sync.RWMutex
	m     map[identity]cacheEntry
	order []identity
	size  int
	fp    Mapper
}

// NewRefCache returns an empty cache holding up to DefaultRefCacheSize
// objects and fingerprinting through the default registry.
func NewRefCache() *RefCache {
	return NewRefCacheSize(DefaultRefCacheSize, nil)
}

// NewRefCacheSize returns an empty cache holding up to size objects.
// Fingerprints use reg for custom types; nil means DefaultRegistry().
func NewRefCacheSize(size int, reg *Registry) *RefCache {
	if size < 1 {
		size = 1
	}
	return &RefCache{
		m:    make(map[identity]cacheEntry),
		size: size,
		fp:   Mapper{Registry: reg},
	}
}

func identityOf(v any) (identity, bool) {
	if v == nil {
		return identity{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return identity{}, false
		}
		return identity{typ: rv.Type(), ptr: rv.Pointer(), n: rv.Len()}, true
	}
	return identity{}, false
}

// fingerprint digests the fully expanded content of v. Nested values are
// expanded too, so a change anywhere below v changes the result.
func (c *RefCache) fingerprint(v any) (string, bool) {
	val, err := c.fp.Expand(v)
	if err != nil {
		return "", false
	}
	d, err := Digest(Encode(val))
	if err != nil {
		return "", false
	}
	return d, true
}

// Get returns the ref cached for v. It reports false when v changed since
// the ref was recorded.
func (c *RefCache) Get(v any) (refs.Ref, bool) {
	if c == nil {
		return nil, false
	}
	id, ok := identityOf(v)
	if !ok {
		return nil, false
	}
	c.mu.RLock()
	e, ok := c.m[id]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	d, ok := c.fingerprint(v)
	if !ok || d != e.digest {
		return nil, false
	}
	return e.ref, true
}

// Set records ref for v. Values without identity, and values whose content
// cannot be fingerprinted, are ignored.
func (c *RefCache) Set(v any, ref refs.Ref) {
	if c == nil {
		return
	}
	id, ok := identityOf(v)
	if !ok {
		return
	}
	d, ok := c.fingerprint(v)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[id]; !exists {
		for len(c.order) >= c.size {
			delete(c.m, c.order[0])
			c.order = c.order[1:]
		}
		c.order = append(c.order, id)
	}
	c.m[id] = cacheEntry{obj: v, digest: d, ref: ref}
}

// Len reports the number of cached objects.
func (c *RefCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
