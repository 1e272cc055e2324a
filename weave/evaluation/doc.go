/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package evaluation runs a model over a dataset, scores every prediction
// and aggregates the scores into a summary.
//
// An Evaluation is itself a published object. Running it records one
// "Evaluation.evaluate" call whose children are one
// "Evaluation.predict_and_score" call per dataset row and trial, plus a final
// "Evaluation.summarize" call. Each scorer result is attached to the model's
// call as feedback.
//
//	eval := &evaluation.Evaluation{
//		Name:    "arithmetic",
//		Dataset: evaluation.NewDataset("sums", rows),
//		Scorers: []weave.Scorer{{Op: exactMatch}},
//	}
//	summary, _, err := eval.Evaluate(ctx, model)
//
// Rows are evaluated concurrently, at most Settings.Parallelism at a time.
// Progress can be observed through an Observer; MetricsObserver exports it
// to Prometheus and the report package renders results as tables.
package evaluation
