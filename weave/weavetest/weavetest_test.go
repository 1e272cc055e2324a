/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weavetest_test

import (
	"context"
	"testing"
	"time"

	"github.com/wandb/weave-sub006/weave"
	"github.com/wandb/weave-sub006/weave/evaluation"
	"github.com/wandb/weave-sub006/weave/weavetest"
)

func TestNewClient(t *testing.T) {
	ctx, client, _ := weavetest.NewClient(t)
	if got := weave.ClientFromContext(ctx); got != client {
		t.Fatalf("ClientFromContext() = %p, wanted = %p", got, client)
	}
	if got, want := client.ProjectID(), weavetest.Project; got != want {
		t.Errorf("ProjectID() = %q, wanted = %q", got, want)
	}

	double := weave.NewOp("double", func(_ context.Context, n int) (int, error) { return 2 * n, nil })
	out, call, err := double.Call(ctx, 21)
	if err != nil {
		t.Fatalf("Call() = %v", err)
	}
	if out != 42 {
		t.Errorf("Call() = %d, wanted = 42", out)
	}
	n, err := client.GetCalls().Len(ctx)
	if err != nil {
		t.Fatalf("Len() = %v", err)
	}
	if n != 1 {
		t.Errorf("Len() = %d, wanted = 1", n)
	}
	got, err := client.GetCall(ctx, call.ID)
	if err != nil {
		t.Fatalf("GetCall() = %v", err)
	}
	if got.Output != 42.0 {
		t.Errorf("stored output = %v, wanted = 42", got.Output)
	}
}

func TestClockAdvances(t *testing.T) {
	clock := weavetest.Clock(time.Now())
	first, second := clock(), clock()
	if !second.After(first) {
		t.Errorf("clock did not advance: %v then %v", first, second)
	}
}

type sameIn struct {
	Expected string `json:"expected"`
	Output   string `json:"output"`
}

func TestObserverDrivesEvaluation(t *testing.T) {
	ctx, _, _ := weavetest.NewClient(t)

	obs := evaluation.NewNamespacedObserver(func(name string) evaluation.Observer {
		return weavetest.NewPrefix(t, name)
	})
	echo := weave.NewOp("echo", func(_ context.Context, s string) (string, error) { return s, nil })
	same := weave.NewOp("same", func(_ context.Context, in sameIn) (bool, error) {
		return in.Expected == in.Output, nil
	})

	eval := &evaluation.Evaluation{
		Dataset: evaluation.NewDataset("words", []map[string]any{
			{"input": "a", "expected": "a"},
			{"input": "b", "expected": "b"},
		}),
		Scorers:  []weave.Scorer{{Op: same}},
		Observer: obs,
	}
	if _, _, err := eval.Evaluate(ctx, echo); err != nil {
		t.Fatalf("Evaluate() = %v", err)
	}
	if got := obs.Total(); got != 2 {
		t.Errorf("Total() = %d, wanted = 2", got)
	}
	if got := obs.Child("same").Total(); got != 2 {
		t.Errorf("Child(same).Total() = %d, wanted = 2", got)
	}
}

func TestObserverTotal(t *testing.T) {
	o := weavetest.New(t)
	o.Log("starting")
	o.Grade(1, "fine")
	for range 3 {
		o.Increment()
	}
	if got := o.Total(); got != 3 {
		t.Errorf("Total() = %d, wanted = 3", got)
	}
}
