/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weavetest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/wandb/weave-sub006/weave/evaluation"
)

// observer reports an evaluation through a testing.TB.
type observer struct {
	tb     testing.TB
	prefix string
	count  atomic.Int64
}

// New returns an Observer that fails t for every failed row.
func New(t testing.TB) evaluation.Observer {
	return &observer{tb: t}
}

// NewPrefix is like New but prefixes every message.
func NewPrefix(t testing.TB, prefix string) evaluation.Observer {
	return &observer{tb: t, prefix: prefix}
}

func (o *observer) format(msg string) string {
	if o.prefix == "" {
		return msg
	}
	return o.prefix + ": " + msg
}

// Fail marks the test as failed.
func (o *observer) Fail(msg string) {
	o.tb.Helper()
	o.tb.Error(o.format(msg))
}

// Log writes msg to the test log.
func (o *observer) Log(msg string) {
	o.tb.Helper()
	o.tb.Log(o.format(msg))
}

// Grade logs the score.
func (o *observer) Grade(score float64, reasoning string) {
	o.tb.Helper()
	o.tb.Log(o.format(fmt.Sprintf("Grade: %.2f - %s", score, reasoning)))
}

// Increment counts a row.
func (o *observer) Increment() {
	o.count.Add(1)
}

// Total returns the number of rows counted.
func (o *observer) Total() int64 {
	return o.count.Load()
}
