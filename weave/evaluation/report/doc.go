/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package report renders evaluation results as markdown.

# Summary

Summary flattens the mapping returned by Evaluation.Evaluate into a
two-column table, one row per leaf metric, with nested keys joined by dots:

	summary, _, err := eval.Evaluate(ctx, model)
	if err != nil {
		return err
	}
	fmt.Print(report.Summary(summary))

# Results

Results walks a NamespacedObserver tree of ResultCollectors and produces one
row per namespace with its pass rate and mean grade, followed by the
recorded failures. It also reports whether any namespace fell below the
threshold:

	obs := evaluation.NewNamespacedObserver(func(string) *evaluation.ResultCollector {
		return evaluation.NewResultCollector(nil)
	})
	eval.Observer = obs
	...
	text, failed := report.Results(obs, 0.8)

Both are pure functions and safe for concurrent use.
*/
package report
