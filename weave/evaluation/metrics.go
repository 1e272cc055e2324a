/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weave_evaluation_rows_total",
			Help: "Total number of dataset rows evaluated",
		},
		[]string{"evaluation", "namespace"},
	)

	failuresCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weave_evaluation_failures_total",
			Help: "Total number of rows whose prediction or scoring failed",
		},
		[]string{"evaluation", "namespace"},
	)

	scoreGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weave_evaluation_score",
			Help: "Most recent score recorded for a row",
		},
		[]string{"evaluation", "namespace"},
	)
)

// MetricsObserver exports evaluation progress as Prometheus metrics labelled
// with the evaluation name and the observer namespace. Combine it with
// NewNamespacedObserver to get one series per scorer:
//
//	obs := evaluation.NewNamespacedObserver(func(ns string) *evaluation.MetricsObserver {
//		return evaluation.NewMetricsObserver("arithmetic", ns)
//	})
type MetricsObserver struct {
	rows  prometheus.Counter
	fails prometheus.Counter
	score prometheus.Gauge
	total atomic.Int64
}

// NewMetricsObserver returns an observer for the given evaluation and namespace.
func NewMetricsObserver(evaluation, namespace string) *MetricsObserver {
	labels := prometheus.Labels{"evaluation": evaluation, "namespace": namespace}
	return &MetricsObserver{
		rows:  rowsCounter.With(labels),
		fails: failuresCounter.With(labels),
		score: scoreGauge.With(labels),
	}
}

// Increment implements Observer.
func (m *MetricsObserver) Increment() {
	m.rows.Inc()
	m.total.Add(1)
}

// Fail implements Observer.
func (m *MetricsObserver) Fail(string) {
	m.fails.Inc()
}

// Grade implements Observer.
func (m *MetricsObserver) Grade(score float64, _ string) {
	m.score.Set(score)
}

// Log implements Observer. Metrics ignore log lines.
func (m *MetricsObserver) Log(string) {}

// Total implements Observer.
func (m *MetricsObserver) Total() int64 {
	return m.total.Load()
}
