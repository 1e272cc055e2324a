/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package weavetest provides helpers for testing code that records weave
// traces.
//
// NewClient returns a context carrying a client backed by a fresh in-memory
// trace server, so tests can inspect exactly what was recorded:
//
//	func TestPredict(t *testing.T) {
//		ctx, client, _ := weavetest.NewClient(t)
//		_, call, err := predict.Call(ctx, in)
//		...
//		got, err := client.GetCall(ctx, call.ID)
//	}
//
// New and NewPrefix adapt a *testing.T to evaluation.Observer, so failed
// rows of an evaluation fail the test and grades show up in the test log.
package weavetest
