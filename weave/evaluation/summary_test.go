/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wandb/weave-sub006/weave/evaluation"
)

type verdict struct {
	Correct bool    `json:"correct"`
	Score   float64 `json:"score"`
}

func TestAutoSummarize(t *testing.T) {
	half := 0.5
	tests := []struct {
		name   string
		values []any
		want   any
	}{{
		name:   "booleans",
		values: []any{true, false, true, true},
		want:   map[string]any{evaluation.TrueCount: int64(3), evaluation.TrueFraction: 0.75},
	}, {
		name:   "mixed numbers",
		values: []any{1, 2.5, int64(3), float32(1.5)},
		want:   map[string]any{evaluation.Mean: 2.0},
	}, {
		name:   "nil entries are skipped",
		values: []any{nil, 4, nil, 2},
		want:   map[string]any{evaluation.Mean: 3.0},
	}, {
		name:   "pointers",
		values: []any{&half, &half},
		want:   map[string]any{evaluation.Mean: 0.5},
	}, {
		name: "mappings",
		values: []any{
			map[string]any{"correct": true, "score": 1},
			map[string]any{"correct": false, "score": 0, "note": "wrong"},
		},
		want: map[string]any{
			"correct": map[string]any{evaluation.TrueCount: int64(1), evaluation.TrueFraction: 0.5},
			"score":   map[string]any{evaluation.Mean: 0.5},
		},
	}, {
		name:   "structs",
		values: []any{verdict{Correct: true, Score: 0.75}, &verdict{Correct: true, Score: 0.25}},
		want: map[string]any{
			"correct": map[string]any{evaluation.TrueCount: int64(2), evaluation.TrueFraction: 1.0},
			"score":   map[string]any{evaluation.Mean: 0.5},
		},
	}, {
		name:   "mixed kinds",
		values: []any{true, 1},
		want:   nil,
	}, {
		name:   "strings",
		values: []any{"a", "b"},
		want:   nil,
	}, {
		name:   "empty",
		values: nil,
		want:   nil,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluation.AutoSummarize(tt.values)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AutoSummarize() (-want +got):\n%s", diff)
			}
		})
	}
}
