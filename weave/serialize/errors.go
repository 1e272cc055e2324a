/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package serialize

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrUnserializable is the sentinel wrapped by every *Error.
var ErrUnserializable = errors.New("value cannot be serialized")

// Error names the value that could not be mapped onto the wire format.
type Error struct {
	// Path locates the value inside the root, e.g. "$.inputs.model[2]".
	Path string
	// Type is the Go type of the offending value.
	Type reflect.Type
	// Reason is a short description of the failure.
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("serialize %v at %s: %s", e.Type, e.Path, e.Reason)
}

func (e *Error) Unwrap() error {
	return ErrUnserializable
}
