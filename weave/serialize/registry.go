/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package serialize

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Serializer encodes one Go type to a JSON-safe payload and back.
type Serializer struct {
	// Name is the weave_type name written into the wire envelope.
	Name string
	// Encode returns a JSON-safe payload for v.
	Encode func(v any) (any, error)
	// Decode rebuilds a Go value from a payload produced by Encode.
	Decode func(payload any) (any, error)
}

type ifaceSerializer struct {
	iface reflect.Type
	ser   Serializer
}

// Registry maps Go types to serializers. The zero value is not usable; call
// NewRegistry.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]Serializer
	byName map[string]Serializer
	ifaces []ifaceSerializer
}

// NewRegistry returns a registry preloaded with serializers for time.Time,
// time.Duration and []byte.
func NewRegistry() *Registry {
	r := &Registry{
		byType: make(map[reflect.Type]Serializer),
		byName: make(map[string]Serializer),
	}
	Register(r, "datetime.datetime",
		func(t time.Time) (any, error) { return t.UTC().Format(time.RFC3339Nano), nil },
		func(payload any) (time.Time, error) {
			s, ok := payload.(string)
			if !ok {
				return time.Time{}, fmt.Errorf("datetime payload: got %T, wanted string", payload)
			}
			return time.Parse(time.RFC3339Nano, s)
		})
	Register(r, "datetime.timedelta",
		func(d time.Duration) (any, error) { return d.Seconds(), nil },
		func(payload any) (time.Duration, error) {
			f, ok := payload.(float64)
			if !ok {
				return 0, fmt.Errorf("timedelta payload: got %T, wanted float64", payload)
			}
			return time.Duration(f * float64(time.Second)), nil
		})
	Register(r, "bytes",
		func(b []byte) (any, error) { return base64.StdEncoding.EncodeToString(b), nil },
		func(payload any) ([]byte, error) {
			s, ok := payload.(string)
			if !ok {
				return nil, fmt.Errorf("bytes payload: got %T, wanted string", payload)
			}
			return base64.StdEncoding.DecodeString(s)
		})
	return r
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used when none is given.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a typed serializer for T. If T is an interface type the
// serializer applies to every concrete type implementing it, after exact
// type matches have been tried.
func Register[T any](r *Registry, name string, encode func(T) (any, error), decode func(any) (T, error)) {
	t := reflect.TypeFor[T]()
	ser := Serializer{
		Name: name,
		Encode: func(v any) (any, error) {
			tv, ok := v.(T)
			if !ok {
				return nil, fmt.Errorf("serializer %s: got %T, wanted %v", name, v, t)
			}
			return encode(tv)
		},
		Decode: func(payload any) (any, error) {
			return decode(payload)
		},
	}
	r.RegisterType(t, ser)
}

// RegisterType adds an untyped serializer for t.
func (r *Registry) RegisterType(t reflect.Type, ser Serializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.Kind() == reflect.Interface {
		// Later registrations are more specific and are consulted first.
		r.ifaces = append([]ifaceSerializer{{iface: t, ser: ser}}, r.ifaces...)
	} else {
		r.byType[t] = ser
	}
	r.byName[ser.Name] = ser
}

// Lookup returns the serializer for v's concrete type, trying the exact type
// before registered interfaces.
func (r *Registry) Lookup(v any) (Serializer, bool) {
	if v == nil {
		return Serializer{}, false
	}
	t := reflect.TypeOf(v)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if ser, ok := r.byType[t]; ok {
		return ser, true
	}
	for _, is := range r.ifaces {
		if t.Implements(is.iface) {
			return is.ser, true
		}
	}
	return Serializer{}, false
}

// ByName returns the serializer registered under the given weave_type name.
func (r *Registry) ByName(name string) (Serializer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ser, ok := r.byName[name]
	return ser, ok
}
