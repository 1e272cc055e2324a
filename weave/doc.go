/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package weave records traces of function calls, versions the objects they
touch and attaches feedback to them.

# Overview

A Client talks to a trace server (tsi.TraceServer). It travels in the
context, so code that calls ops never passes it around:

	ctx, client, err := weave.Init(ctx, "my-team/my-project")
	if err != nil {
		return err
	}

Without a client in the context ops still run, they are just not traced.

# Ops

An op wraps a function of one input value. Struct inputs are bound by their
JSON field names, map inputs take any arguments and any other type is bound
to the single parameter "input":

	predict := weave.NewOp("predict", func(ctx context.Context, q Question) (string, error) {
		...
	})
	answer, call, err := predict.Call(ctx, Question{Text: "2+2?"})

Calls nest: an op called from inside another op's function records the
outer call as its parent. Other entry points are Run (result only), Invoke
(named arguments), Go (asynchronous, see Pending) and NewStreamOp for
functions that yield a sequence of values.

# Objects

Inputs and outputs are stored as plain data. Values implementing Object,
tables and ops are published as versioned objects and stored by ref:

	ref, err := client.Publish(ctx, prompt, "")

Equal content always gets the same digest, so publishing is idempotent.

# Feedback and scorers

Feedback rows attach to a call through Call.Feedback. A Scorer is an op
whose parameters are bound from a call's inputs and output; ApplyScorer runs
it and records the result as feedback on the call:

	res, err := call.ApplyScorer(ctx, weave.Scorer{Op: exactMatch}, map[string]any{"expected": "4"})

# Reading calls

GetCalls returns a lazy CallsIter that fetches pages on demand:

	for c, err := range client.GetCalls(weave.WithFilter(tsi.CallsFilter{TraceRootsOnly: true})).All(ctx) {
		...
	}

See package evaluation for running a model over a dataset.
*/
package weave
