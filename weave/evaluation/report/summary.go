/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Summary renders an evaluation summary as a markdown table of metrics.
// Nested keys are joined with dots and rows are sorted by metric name.
func Summary(summary map[string]any) string {
	metrics := make(map[string]any)
	flatten("", summary, metrics)
	if len(metrics) == 0 {
		return ""
	}

	t := newTable(column{header: "Metric"}, column{header: "Value", numeric: true})
	for _, name := range slices.Sorted(maps.Keys(metrics)) {
		t.add(name, formatValue(metrics[name]))
	}
	out, err := t.render()
	if err != nil {
		return fmt.Sprintf("summary could not be rendered: %v\n", err)
	}
	return out
}

func flatten(prefix string, v any, into map[string]any) {
	m, ok := v.(map[string]any)
	if !ok {
		into[prefix] = v
		return
	}
	for k, child := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		flatten(key, child, into)
	}
}

func formatValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(tv, 'f', 4, 64)
	case float32:
		return strconv.FormatFloat(float64(tv), 'f', 4, 32)
	case string:
		return tv
	}
	return fmt.Sprint(v)
}
