/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsObserver(t *testing.T) {
	obs := NewNamespacedObserver(func(ns string) *MetricsObserver {
		return NewMetricsObserver("metrics-test", ns)
	})
	child := obs.Child("exact")
	child.Increment()
	child.Increment()
	child.Fail("mismatch")
	child.Grade(0.25, "close")
	child.Log("ignored")

	if got := child.Total(); got != 2 {
		t.Errorf("Total() = %d, wanted = 2", got)
	}

	rows := testutil.ToFloat64(rowsCounter.WithLabelValues("metrics-test", "/exact"))
	if rows != 2 {
		t.Errorf("rows = %v, wanted = 2", rows)
	}
	fails := testutil.ToFloat64(failuresCounter.WithLabelValues("metrics-test", "/exact"))
	if fails != 1 {
		t.Errorf("failures = %v, wanted = 1", fails)
	}
	score := testutil.ToFloat64(scoreGauge.WithLabelValues("metrics-test", "/exact"))
	if score != 0.25 {
		t.Errorf("score = %v, wanted = 0.25", score)
	}
}
