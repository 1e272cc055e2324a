/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package tsi

import "errors"

// ErrNotFound is returned when a call, object, table or feedback row does not exist.
var ErrNotFound = errors.New("not found")
