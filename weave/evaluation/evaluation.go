/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/wandb/weave-sub006/weave"
)

// Keys of a row result and of the summary.
const (
	OutputKey       = "output"
	ScoresKey       = "scores"
	ModelLatencyKey = "model_latency"
	ModelErrorKey   = "model_error"
	// ModelOutputParam is bound to the model's output for every scorer,
	// next to weave.OutputParam.
	ModelOutputParam = "model_output"
)

// Evaluation scores a model against a dataset.
type Evaluation struct {
	Name    string         `json:"name,omitempty"`
	Dataset *Dataset       `json:"dataset"`
	Scorers []weave.Scorer `json:"scorers"`
	// Trials runs every row this many times. Zero means once.
	Trials int `json:"trials,omitempty"`

	// PreprocessModelInput rewrites a row before the model's arguments
	// are picked from it. Scorers still see the original row.
	PreprocessModelInput func(row map[string]any) map[string]any `json:"-"`
	// Observer follows progress. It may be a *NamespacedObserver to get
	// a child per scorer.
	Observer Observer `json:"-"`
}

// ObjectName implements weave.Object.
func (e *Evaluation) ObjectName() string {
	if e.Name == "" {
		return "Evaluation"
	}
	return e.Name
}

var (
	evaluateOp = weave.NewOp("Evaluation.evaluate", func(ctx context.Context, in map[string]any) (map[string]any, error) {
		e, model, err := unpack(in)
		if err != nil {
			return nil, err
		}
		return e.evaluate(ctx, model)
	})

	predictAndScoreOp = weave.NewOp("Evaluation.predict_and_score", func(ctx context.Context, in map[string]any) (map[string]any, error) {
		e, model, err := unpack(in)
		if err != nil {
			return nil, err
		}
		row, _ := in["example"].(map[string]any)
		return e.predictAndScore(ctx, model, row)
	})

	summarizeOp = weave.NewOp("Evaluation.summarize", func(_ context.Context, in map[string]any) (map[string]any, error) {
		e, ok := in["self"].(*Evaluation)
		if !ok {
			return nil, fmt.Errorf("summarize: self is %T", in["self"])
		}
		results, _ := in["results"].([]map[string]any)
		return e.summarize(results), nil
	})
)

func unpack(in map[string]any) (*Evaluation, weave.Runnable, error) {
	e, ok := in["self"].(*Evaluation)
	if !ok || e == nil {
		return nil, nil, fmt.Errorf("self is %T, not *Evaluation", in["self"])
	}
	model, ok := in["model"].(weave.Runnable)
	if !ok {
		return nil, nil, fmt.Errorf("model is %T, not a weave.Runnable", in["model"])
	}
	return e, model, nil
}

var noObserver Observer = &discard{}

func (e *Evaluation) observer() Observer {
	if e.Observer != nil {
		return e.Observer
	}
	return noObserver
}

func (e *Evaluation) validate(model weave.Runnable) error {
	if model == nil {
		return errors.New("no model")
	}
	if e.Dataset == nil || e.Dataset.Rows == nil {
		return errors.New("no dataset")
	}
	if e.Trials < 0 {
		return fmt.Errorf("trials must not be negative, got %d", e.Trials)
	}
	seen := make(map[string]struct{}, len(e.Scorers))
	for i, s := range e.Scorers {
		if s.Op == nil {
			return fmt.Errorf("scorer %d has no op", i)
		}
		name := s.Name()
		switch name {
		case OutputKey, ModelLatencyKey:
			return fmt.Errorf("scorer name %q is reserved", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("two scorers are named %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Evaluate runs model over every row of the dataset and returns the summary
// together with the evaluation's call. It requires a client in ctx.
//
// A model or scorer that fails on a row is logged, reported to the Observer
// and left out of the summary. Arguments that do not bind to the model's or
// a scorer's parameters abort the evaluation with a *weave.OpCallError.
func (e *Evaluation) Evaluate(ctx context.Context, model weave.Runnable) (map[string]any, *weave.Call, error) {
	if _, err := weave.RequireClient(ctx); err != nil {
		return nil, nil, fmt.Errorf("evaluate %s: %w", e.ObjectName(), err)
	}
	if err := e.validate(model); err != nil {
		return nil, nil, fmt.Errorf("evaluate %s: %w", e.ObjectName(), err)
	}
	var opts []weave.CallOption
	if e.Name != "" {
		opts = append(opts, weave.WithDisplayName(e.Name))
	}
	return evaluateOp.Call(ctx, map[string]any{"self": e, "model": model}, opts...)
}

func (e *Evaluation) evaluate(ctx context.Context, model weave.Runnable) (map[string]any, error) {
	client, err := weave.RequireClient(ctx)
	if err != nil {
		return nil, err
	}
	rows := e.Dataset.Rows.Rows
	trials := max(e.Trials, 1)
	results := make([]map[string]any, len(rows)*trials)

	var g errgroup.Group
	g.SetLimit(client.Settings().Parallelism)
	for trial := range trials {
		for i, row := range rows {
			idx := trial*len(rows) + i
			g.Go(func() error {
				res, _, err := predictAndScoreOp.Call(ctx, map[string]any{"self": e, "model": model, "example": row})
				if err != nil {
					return fmt.Errorf("row %d: %w", i, err)
				}
				results[idx] = res
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary, _, err := summarizeOp.Call(ctx, map[string]any{"self": e, "results": results})
	if err != nil {
		return nil, err
	}
	var failed int
	for _, r := range results {
		if _, ok := r[ModelErrorKey]; ok {
			failed++
		}
	}
	clog.FromContext(ctx).Info("Evaluation finished",
		"evaluation", e.ObjectName(), "model", model.Name(), "rows", len(results), "failures", failed)
	return summary, nil
}

// modelArgs picks the model's arguments from a row. A model taking a map
// receives the whole row.
func modelArgs(model weave.Runnable, row map[string]any) map[string]any {
	sig := model.Signature()
	if sig.Variadic {
		return maps.Clone(row)
	}
	args := make(map[string]any, len(sig.Params))
	for _, p := range sig.Params {
		if v, ok := row[p]; ok {
			args[p] = v
		}
	}
	return args
}

func (e *Evaluation) predictAndScore(ctx context.Context, model weave.Runnable, row map[string]any) (map[string]any, error) {
	log := clog.FromContext(ctx)
	obs := e.observer()
	obs.Increment()

	input := row
	if e.PreprocessModelInput != nil {
		input = e.PreprocessModelInput(maps.Clone(row))
	}
	start := time.Now()
	output, modelCall, err := model.Invoke(ctx, modelArgs(model, input))
	latency := time.Since(start).Seconds()

	result := map[string]any{OutputKey: output, ModelLatencyKey: latency}
	if err != nil {
		if errors.Is(err, weave.ErrOpCall) {
			return nil, err
		}
		log.Warn("Model prediction failed", "model", model.Name(), "error", err)
		obs.Fail(fmt.Sprintf("%s: %v", model.Name(), err))
		result[OutputKey] = nil
		result[ModelErrorKey] = err.Error()
		result[ScoresKey] = map[string]any{}
		return result, nil
	}

	scores := make(map[string]any, len(e.Scorers))
	for _, s := range e.Scorers {
		name := s.Name()
		sub, child := namespace(obs, name)
		if child {
			sub.Increment()
		}

		extra := maps.Clone(row)
		extra[weave.OutputParam] = output
		extra[ModelOutputParam] = output
		var score any
		if modelCall != nil {
			var res weave.ApplyScorerResult
			res, err = modelCall.ApplyScorer(ctx, s, extra)
			score = res.Result
		} else {
			score, _, err = s.Score(ctx, extra)
		}
		if err != nil {
			if errors.Is(err, weave.ErrOpCall) {
				return nil, err
			}
			log.Warn("Scorer failed", "scorer", name, "error", err)
			sub.Fail(fmt.Sprintf("%s: %v", name, err))
			continue
		}
		scores[name] = score
		grade(sub, name, score)
	}
	result[ScoresKey] = scores
	return result, nil
}

// grade reports a scorer result to obs: a scalar as one grade, a mapping as
// one grade per scalar key under a child namespace.
func grade(obs Observer, name string, score any) {
	if g, ok := gradeOf(score); ok {
		obs.Grade(g, name)
		return
	}
	m, ok := normalize(score).(map[string]any)
	if !ok {
		return
	}
	for k, v := range m {
		if g, ok := gradeOf(v); ok {
			sub, child := namespace(obs, k)
			if child {
				sub.Increment()
			}
			sub.Grade(g, name+"."+k)
		}
	}
}

func (e *Evaluation) summarize(results []map[string]any) map[string]any {
	summary := make(map[string]any)
	var outputs, latencies []any
	for _, r := range results {
		if r == nil {
			continue
		}
		if _, failed := r[ModelErrorKey]; !failed {
			outputs = append(outputs, r[OutputKey])
		}
		latencies = append(latencies, r[ModelLatencyKey])
	}
	if s := AutoSummarize(outputs); s != nil {
		summary[OutputKey] = s
	}

	for _, s := range e.Scorers {
		name := s.Name()
		var column []any
		for _, r := range results {
			scores, _ := r[ScoresKey].(map[string]any)
			if v, ok := scores[name]; ok {
				column = append(column, v)
			}
		}
		var agg any
		if s.Summarize != nil {
			agg = s.Summarize(column)
		} else {
			agg = AutoSummarize(column)
		}
		if agg != nil {
			summary[name] = agg
		}
	}

	if s := AutoSummarize(latencies); s != nil {
		summary[ModelLatencyKey] = s
	}
	return summary
}
