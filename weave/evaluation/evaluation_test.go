/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/wandb/weave-sub006/weave"
	"github.com/wandb/weave-sub006/weave/evaluation"
	"github.com/wandb/weave-sub006/weave/weavetest"
)

type matchIn struct {
	Target      int `json:"target"`
	ModelOutput int `json:"model_output"`
}

func identity() *weave.Op[int, int] {
	return weave.NewOp("model", func(_ context.Context, in int) (int, error) {
		return in, nil
	})
}

func match() weave.Scorer {
	return weave.Scorer{Op: weave.NewOp("match", func(_ context.Context, in matchIn) (bool, error) {
		return in.Target == in.ModelOutput, nil
	})}
}

func twoRows() *evaluation.Dataset {
	return evaluation.NewDataset("pairs", []map[string]any{
		{"input": 1, "target": 1},
		{"input": 2, "target": 2},
	})
}

func TestEvaluateSummary(t *testing.T) {
	ctx, client, _ := weavetest.NewClient(t)

	eval := &evaluation.Evaluation{Name: "identity", Dataset: twoRows(), Scorers: []weave.Scorer{match()}}
	summary, call, err := eval.Evaluate(ctx, identity())
	require.NoError(t, err)

	scores, ok := summary["match"].(map[string]any)
	require.True(t, ok, "summary has no match entry: %v", summary)
	if got := scores[evaluation.TrueFraction]; got != 1.0 {
		t.Errorf("true_fraction = %v, wanted = 1", got)
	}
	if got := scores[evaluation.TrueCount]; got != int64(2) {
		t.Errorf("true_count = %v, wanted = 2", got)
	}
	if got, want := summary[evaluation.OutputKey], map[string]any{evaluation.Mean: 1.5}; !cmp.Equal(got, want) {
		t.Errorf("output summary = %v, wanted = %v", got, want)
	}
	if _, ok := summary[evaluation.ModelLatencyKey]; !ok {
		t.Errorf("summary has no %s: %v", evaluation.ModelLatencyKey, summary)
	}

	// One predict_and_score per row and a summarize under the evaluation.
	if got := call.DisplayName; got != "identity" {
		t.Errorf("DisplayName = %q, wanted = identity", got)
	}
	children, err := call.Children().Collect(ctx)
	require.NoError(t, err)
	var predicts, summaries int
	for _, c := range children {
		switch {
		case strings.Contains(c.OpName, "Evaluation.predict_and_score"):
			predicts++
		case strings.Contains(c.OpName, "Evaluation.summarize"):
			summaries++
		}
	}
	if predicts != 2 || summaries != 1 {
		t.Errorf("children: %d predict_and_score, %d summarize; wanted 2 and 1", predicts, summaries)
	}

	// Every model call carries the scorer's feedback.
	all, err := client.GetCalls().Collect(ctx)
	require.NoError(t, err)
	var calls []*weave.Call
	for _, c := range all {
		if strings.Contains(c.OpName, "/op/model:") {
			calls = append(calls, c)
		}
	}
	if len(calls) != 2 {
		t.Fatalf("model calls = %d, wanted = 2", len(calls))
	}
	for _, c := range calls {
		fb, err := c.Feedback().List(ctx)
		require.NoError(t, err)
		if len(fb) != 1 {
			t.Errorf("call %s has %d feedback rows, wanted = 1", c.ID, len(fb))
		}
	}
}

func TestEvaluateRequiresClient(t *testing.T) {
	eval := &evaluation.Evaluation{Dataset: twoRows(), Scorers: []weave.Scorer{match()}}
	_, _, err := eval.Evaluate(context.Background(), identity())
	if !errors.Is(err, weave.ErrNoClient) {
		t.Errorf("Evaluate() = %v, wanted = %v", err, weave.ErrNoClient)
	}
}

func TestEvaluateValidation(t *testing.T) {
	ctx, _, _ := weavetest.NewClient(t)
	reserved := weave.Scorer{Op: weave.NewOp("output", func(_ context.Context, in int) (int, error) { return in, nil })}

	tests := []struct {
		name  string
		eval  *evaluation.Evaluation
		model weave.Runnable
	}{{
		name:  "no dataset",
		eval:  &evaluation.Evaluation{},
		model: identity(),
	}, {
		name:  "no model",
		eval:  &evaluation.Evaluation{Dataset: twoRows()},
		model: nil,
	}, {
		name:  "negative trials",
		eval:  &evaluation.Evaluation{Dataset: twoRows(), Trials: -1},
		model: identity(),
	}, {
		name:  "scorer without op",
		eval:  &evaluation.Evaluation{Dataset: twoRows(), Scorers: []weave.Scorer{{}}},
		model: identity(),
	}, {
		name:  "reserved scorer name",
		eval:  &evaluation.Evaluation{Dataset: twoRows(), Scorers: []weave.Scorer{reserved}},
		model: identity(),
	}, {
		name:  "duplicate scorers",
		eval:  &evaluation.Evaluation{Dataset: twoRows(), Scorers: []weave.Scorer{match(), match()}},
		model: identity(),
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := tt.eval.Evaluate(ctx, tt.model); err == nil {
				t.Error("Evaluate() = nil, wanted error")
			}
		})
	}
}

func TestEvaluateModelFailure(t *testing.T) {
	ctx, _, _ := weavetest.NewClient(t)

	flaky := weave.NewOp("flaky", func(_ context.Context, in int) (int, error) {
		if in == 2 {
			return 0, errors.New("no twos")
		}
		return in, nil
	})
	collector := evaluation.NewNamespacedObserver(func(string) *evaluation.ResultCollector {
		return evaluation.NewResultCollector(nil)
	})
	eval := &evaluation.Evaluation{Dataset: twoRows(), Scorers: []weave.Scorer{match()}, Observer: collector}
	summary, _, err := eval.Evaluate(ctx, flaky)
	require.NoError(t, err)

	// The failed row is left out of the summary.
	if got, want := summary["match"], map[string]any{evaluation.TrueCount: int64(1), evaluation.TrueFraction: 1.0}; !cmp.Equal(got, want) {
		t.Errorf("match summary = %v, wanted = %v", got, want)
	}
	if got, want := summary[evaluation.OutputKey], map[string]any{evaluation.Mean: 1.0}; !cmp.Equal(got, want) {
		t.Errorf("output summary = %v, wanted = %v", got, want)
	}

	root := collector.Inner()
	if got := root.Total(); got != 2 {
		t.Errorf("Total() = %d, wanted = 2", got)
	}
	if got := len(root.Failures()); got != 1 {
		t.Errorf("Failures() = %d, wanted = 1", got)
	}
	if got := root.PassRate(); got != 0.5 {
		t.Errorf("PassRate() = %v, wanted = 0.5", got)
	}
	scorer := collector.Child("match").Inner()
	if got := scorer.Total(); got != 1 {
		t.Errorf("match Total() = %d, wanted = 1", got)
	}
	if mean, ok := scorer.MeanGrade(); !ok || mean != 1 {
		t.Errorf("match MeanGrade() = %v, %v; wanted = 1, true", mean, ok)
	}
}

func TestEvaluateScorerFailure(t *testing.T) {
	ctx, _, _ := weavetest.NewClient(t)

	broken := weave.Scorer{Op: weave.NewOp("broken", func(_ context.Context, in matchIn) (bool, error) {
		return false, errors.New("scorer exploded")
	})}
	collector := evaluation.NewResultCollector(nil)
	eval := &evaluation.Evaluation{Dataset: twoRows(), Scorers: []weave.Scorer{broken, match()}, Observer: collector}
	summary, _, err := eval.Evaluate(ctx, identity())
	require.NoError(t, err)

	if _, ok := summary["broken"]; ok {
		t.Errorf("summary has an entry for the failing scorer: %v", summary)
	}
	if got := summary["match"].(map[string]any)[evaluation.TrueFraction]; got != 1.0 {
		t.Errorf("match true_fraction = %v, wanted = 1", got)
	}
	if got := len(collector.Failures()); got != 2 {
		t.Errorf("Failures() = %d, wanted = 2", got)
	}
}

func TestEvaluateBindingErrorAborts(t *testing.T) {
	ctx, _, _ := weavetest.NewClient(t)

	type needsLabel struct {
		Label string `json:"label"`
	}
	needy := weave.Scorer{Op: weave.NewOp("needy", func(_ context.Context, in needsLabel) (bool, error) {
		return in.Label != "", nil
	})}
	eval := &evaluation.Evaluation{Dataset: twoRows(), Scorers: []weave.Scorer{needy}}
	_, call, err := eval.Evaluate(ctx, identity())
	if !errors.Is(err, weave.ErrOpCall) {
		t.Fatalf("Evaluate() = %v, wanted = %v", err, weave.ErrOpCall)
	}
	var oce *weave.OpCallError
	require.ErrorAs(t, err, &oce)
	if got, want := oce.Missing, []string{"label"}; !cmp.Equal(got, want) {
		t.Errorf("Missing = %v, wanted = %v", got, want)
	}
	if call == nil || !call.Failed() {
		t.Errorf("evaluation call = %v, wanted a failed call", call)
	}
}

func TestEvaluateTrials(t *testing.T) {
	ctx, _, _ := weavetest.NewClient(t)

	var runs atomic.Int64
	counted := weave.NewOp("counted", func(_ context.Context, in int) (int, error) {
		runs.Add(1)
		return in, nil
	})
	eval := &evaluation.Evaluation{Dataset: twoRows(), Scorers: []weave.Scorer{match()}, Trials: 3}
	summary, _, err := eval.Evaluate(ctx, counted)
	require.NoError(t, err)

	if got := runs.Load(); got != 6 {
		t.Errorf("model runs = %d, wanted = 6", got)
	}
	if got := summary["match"].(map[string]any)[evaluation.TrueCount]; got != int64(6) {
		t.Errorf("true_count = %v, wanted = 6", got)
	}
}

func TestEvaluatePreprocessModelInput(t *testing.T) {
	ctx, _, _ := weavetest.NewClient(t)

	eval := &evaluation.Evaluation{
		Dataset: twoRows(),
		Scorers: []weave.Scorer{match()},
		PreprocessModelInput: func(row map[string]any) map[string]any {
			row["input"] = row["input"].(int) * 10
			return row
		},
	}
	summary, _, err := eval.Evaluate(ctx, identity())
	require.NoError(t, err)

	// The model saw the rewritten inputs; the scorer still compares
	// against the original targets.
	if got, want := summary[evaluation.OutputKey], map[string]any{evaluation.Mean: 15.0}; !cmp.Equal(got, want) {
		t.Errorf("output summary = %v, wanted = %v", got, want)
	}
	if got := summary["match"].(map[string]any)[evaluation.TrueCount]; got != int64(0) {
		t.Errorf("true_count = %v, wanted = 0", got)
	}
	if got := eval.Dataset.Rows.Rows[0]["input"]; got != 1 {
		t.Errorf("dataset row was modified: input = %v", got)
	}
}

func TestEvaluateCustomSummary(t *testing.T) {
	ctx, _, _ := weavetest.NewClient(t)

	s := match()
	var seen []any
	s.Summarize = func(results []any) any {
		seen = results
		return "custom"
	}
	eval := &evaluation.Evaluation{Dataset: twoRows(), Scorers: []weave.Scorer{s}}
	summary, _, err := eval.Evaluate(ctx, identity())
	require.NoError(t, err)

	if got := summary["match"]; got != "custom" {
		t.Errorf("match summary = %v, wanted = custom", got)
	}
	if got, want := seen, []any{true, true}; !cmp.Equal(got, want) {
		t.Errorf("Summarize saw %v, wanted = %v", got, want)
	}
}

func TestEvaluateVariadicModel(t *testing.T) {
	ctx, _, _ := weavetest.NewClient(t)

	sum := weave.NewOp("sum", func(_ context.Context, in map[string]any) (int, error) {
		return in["input"].(int) + in["target"].(int), nil
	})
	eval := &evaluation.Evaluation{Dataset: twoRows()}
	summary, _, err := eval.Evaluate(ctx, sum)
	require.NoError(t, err)
	if got, want := summary[evaluation.OutputKey], map[string]any{evaluation.Mean: 3.0}; !cmp.Equal(got, want) {
		t.Errorf("output summary = %v, wanted = %v", got, want)
	}
}

func TestEvaluateMappingScores(t *testing.T) {
	ctx, _, _ := weavetest.NewClient(t)

	type closeness struct {
		Exact bool    `json:"exact"`
		Delta float64 `json:"delta"`
	}
	near := weave.Scorer{Op: weave.NewOp("near", func(_ context.Context, in matchIn) (closeness, error) {
		d := float64(in.Target - in.ModelOutput)
		return closeness{Exact: d == 0, Delta: d}, nil
	})}
	obs := evaluation.NewNamespacedObserver(func(string) *evaluation.ResultCollector {
		return evaluation.NewResultCollector(nil)
	})
	eval := &evaluation.Evaluation{Dataset: twoRows(), Scorers: []weave.Scorer{near}, Observer: obs}
	summary, _, err := eval.Evaluate(ctx, identity())
	require.NoError(t, err)

	want := map[string]any{
		"exact": map[string]any{evaluation.TrueCount: int64(2), evaluation.TrueFraction: 1.0},
		"delta": map[string]any{evaluation.Mean: 0.0},
	}
	if diff := cmp.Diff(want, summary["near"]); diff != "" {
		t.Errorf("near summary (-want +got):\n%s", diff)
	}
	if got := len(obs.Child("near").Child("exact").Inner().Grades()); got != 2 {
		t.Errorf("exact grades = %d, wanted = 2", got)
	}
}
