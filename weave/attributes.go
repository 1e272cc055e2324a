/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"maps"
	"runtime"
	"sync"
)

// systemAttributesKey holds metadata written by the client itself.
const systemAttributesKey = "weave"

// Attributes is the attribute mapping of a call. User keys can be set until
// the call starts; the "weave" key is reserved for the client.
type Attributes struct {
	mu     sync.RWMutex
	user   map[string]any
	system map[string]any
	frozen bool
}

// NewAttributes returns attributes holding a copy of m.
func NewAttributes(m map[string]any) (*Attributes, error) {
	a := &Attributes{user: make(map[string]any, len(m)), system: make(map[string]any)}
	for k, v := range m {
		if err := a.Set(k, v); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Set stores a user attribute.
func (a *Attributes) Set(key string, value any) error {
	if key == systemAttributesKey {
		return ErrReservedAttribute
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.frozen {
		return ErrAttributesFrozen
	}
	a.user[key] = value
	return nil
}

// Get returns a user attribute.
func (a *Attributes) Get(key string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.user[key]
	return v, ok
}

// System returns a copy of the client-written metadata.
func (a *Attributes) System() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return maps.Clone(a.system)
}

// Map returns a copy of every attribute, with system metadata under "weave".
func (a *Attributes) Map() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := maps.Clone(a.user)
	if out == nil {
		out = make(map[string]any, 1)
	}
	if len(a.system) > 0 {
		out[systemAttributesKey] = maps.Clone(a.system)
	}
	return out
}

// Frozen reports whether the call has started.
func (a *Attributes) Frozen() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frozen
}

func (a *Attributes) setSystem(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.system[key] = value
}

func (a *Attributes) freeze() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frozen = true
}

// attributesFromWire rebuilds read-only attributes from a stored call.
func attributesFromWire(m map[string]any) *Attributes {
	a := &Attributes{user: make(map[string]any, len(m)), system: make(map[string]any), frozen: true}
	for k, v := range m {
		if k == systemAttributesKey {
			if sys, ok := v.(map[string]any); ok {
				maps.Copy(a.system, sys)
			}
			continue
		}
		a.user[k] = v
	}
	return a
}

func defaultSystemAttributes() map[string]any {
	return map[string]any{
		"client_version": Version,
		"source":         "go-sdk",
		"sys_version":    runtime.Version(),
		"os_name":        runtime.GOOS,
		"os_arch":        runtime.GOARCH,
	}
}
