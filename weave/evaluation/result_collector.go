/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation

import (
	"slices"
	"sync"
)

// Grade is one recorded score.
type Grade struct {
	Score     float64
	Reasoning string
}

// ResultCollector keeps the failures and grades it observes so they can be
// reported once the evaluation is done. It forwards everything to an
// optional inner observer; failures are forwarded as log lines.
type ResultCollector struct {
	inner Observer

	mu       sync.Mutex
	total    int64
	failures []string
	grades   []Grade
}

// NewResultCollector returns a collector wrapping inner, which may be nil.
func NewResultCollector(inner Observer) *ResultCollector {
	return &ResultCollector{inner: inner}
}

// Increment implements Observer.
func (r *ResultCollector) Increment() {
	r.mu.Lock()
	r.total++
	r.mu.Unlock()
	if r.inner != nil {
		r.inner.Increment()
	}
}

// Fail implements Observer.
func (r *ResultCollector) Fail(msg string) {
	r.mu.Lock()
	r.failures = append(r.failures, msg)
	r.mu.Unlock()
	if r.inner != nil {
		r.inner.Log(msg)
	}
}

// Grade implements Observer.
func (r *ResultCollector) Grade(score float64, reasoning string) {
	r.mu.Lock()
	r.grades = append(r.grades, Grade{Score: score, Reasoning: reasoning})
	r.mu.Unlock()
	if r.inner != nil {
		r.inner.Grade(score, reasoning)
	}
}

// Log implements Observer.
func (r *ResultCollector) Log(msg string) {
	if r.inner != nil {
		r.inner.Log(msg)
	}
}

// Total implements Observer.
func (r *ResultCollector) Total() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Failures returns the failure messages in the order they were recorded.
func (r *ResultCollector) Failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.failures)
}

// Grades returns the recorded grades.
func (r *ResultCollector) Grades() []Grade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.grades)
}

// PassRate is the fraction of observed rows that did not fail. It is 1 when
// nothing was observed.
func (r *ResultCollector) PassRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.total == 0 {
		return 1
	}
	passed := max(r.total-int64(len(r.failures)), 0)
	return float64(passed) / float64(r.total)
}

// MeanGrade is the mean of the recorded grades, and false when there are none.
func (r *ResultCollector) MeanGrade() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.grades) == 0 {
		return 0, false
	}
	var sum float64
	for _, g := range r.grades {
		sum += g.Score
	}
	return sum / float64(len(r.grades)), true
}
