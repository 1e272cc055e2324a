/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"fmt"
	"strings"

	"github.com/wandb/weave-sub006/weave/evaluation"
)

// Generator renders an observer tree and reports whether any namespace fell
// below threshold.
type Generator func(obs *evaluation.NamespacedObserver[*evaluation.ResultCollector], threshold float64) (string, bool)

var _ Generator = Results

// namespaceResult holds the figures of one observed namespace.
type namespaceResult struct {
	name     string
	rows     int64
	failures []string
	passRate float64
	mean     float64
	graded   bool
}

func (r namespaceResult) below(threshold float64) bool {
	return r.passRate < threshold || (r.graded && r.mean < threshold)
}

// Results renders one table row per namespace that observed any rows,
// followed by the failure messages of each namespace. It returns true when a
// pass rate or mean grade is below threshold.
func Results(obs *evaluation.NamespacedObserver[*evaluation.ResultCollector], threshold float64) (string, bool) {
	var results []namespaceResult
	obs.Walk(func(name string, rc *evaluation.ResultCollector) {
		// Skip namespaces that never saw a row
		if rc.Total() == 0 {
			return
		}
		mean, graded := rc.MeanGrade()
		results = append(results, namespaceResult{
			name:     name,
			rows:     rc.Total(),
			failures: rc.Failures(),
			passRate: rc.PassRate(),
			mean:     mean,
			graded:   graded,
		})
	})
	if len(results) == 0 {
		return "", false
	}

	t := newTable(
		column{header: "Namespace"},
		column{header: "Rows", numeric: true},
		column{header: "Pass rate", numeric: true},
		column{header: "Mean grade", numeric: true},
		column{header: "Status"},
	)
	hasFailure := false
	for _, r := range results {
		status := "✅"
		if r.below(threshold) {
			status = "❌"
			hasFailure = true
		}
		grade := "-"
		if r.graded {
			grade = fmt.Sprintf("%.2f", r.mean)
		}
		t.add(
			r.name,
			fmt.Sprintf("%d", r.rows),
			fmt.Sprintf("%.1f%%", r.passRate*100),
			grade,
			status,
		)
	}
	rendered, err := t.render()
	if err != nil {
		rendered = fmt.Sprintf("results could not be rendered: %v\n", err)
	}

	var report strings.Builder
	report.WriteString("## Results\n\n")
	report.WriteString(rendered)
	for _, r := range results {
		if len(r.failures) == 0 {
			continue
		}
		fmt.Fprintf(&report, "\n### Failures in %s\n\n", r.name)
		for _, f := range r.failures {
			fmt.Fprintf(&report, "- %s\n", f)
		}
	}
	return report.String(), hasFailure
}
