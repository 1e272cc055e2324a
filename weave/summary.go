/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"maps"

	"github.com/wandb/weave-sub006/weave/usage"
)

// Summary keys written by the client.
const (
	SummaryUsage    = "usage"
	summaryRequests = "requests"
)

// rollupSummary sums the summaries of children leaf by leaf.
func rollupSummary(children []map[string]any) map[string]any {
	out := make(map[string]any)
	for _, c := range children {
		sumLeaves(out, c)
	}
	return out
}

// sumLeaves adds src into dst. Numbers under matching keys are added,
// mappings are merged recursively and any other leaf keeps the first value
// seen.
func sumLeaves(dst, src map[string]any) {
	for k, sv := range src {
		dv, ok := dst[k]
		if !ok {
			dst[k] = deepCopy(sv)
			continue
		}
		switch svt := sv.(type) {
		case map[string]any:
			if dvt, ok := dv.(map[string]any); ok {
				sumLeaves(dvt, svt)
			}
		default:
			if sum, ok := addNumbers(dv, sv); ok {
				dst[k] = sum
			}
		}
	}
}

func deepCopy(v any) any {
	if m, ok := v.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[k] = deepCopy(e)
		}
		return out
	}
	return v
}

// addNumbers adds two numeric leaves, staying integral when both are.
func addNumbers(a, b any) (any, bool) {
	ai, aInt := asInt64(a)
	bi, bInt := asInt64(b)
	if aInt && bInt {
		return ai + bi, true
	}
	af, aNum := asFloat64(a)
	bf, bNum := asFloat64(b)
	if aNum && bNum {
		return af + bf, true
	}
	return nil, false
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// usageSummary synthesizes {"usage": {model: {"requests": 1, ...}}} from an
// output that reports model usage.
func usageSummary(output any) (map[string]any, string, bool) {
	model, u, ok := usage.Extract(output)
	if !ok {
		return nil, "", false
	}
	entry := maps.Clone(u)
	if entry == nil {
		entry = make(map[string]any, 1)
	}
	entry[summaryRequests] = int64(1)
	return map[string]any{SummaryUsage: map[string]any{model: entry}}, model, true
}
