/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"strings"
	"testing"
)

func TestTableRender(t *testing.T) {
	tbl := newTable(column{header: "Scorer"}, column{header: "Score", numeric: true})
	tbl.add("exact", "1.00")
	tbl.add("distance", "0.25")

	got, err := tbl.render()
	if err != nil {
		t.Fatalf("render() = %v", err)
	}
	var lines []string
	for _, l := range strings.Split(got, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	// Header, separator and one line per row.
	if len(lines) != 4 {
		t.Fatalf("lines: got = %d, wanted = %d:\n%s", len(lines), 4, got)
	}
	for i, want := range []string{"Scorer", "---", "exact", "distance"} {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d: got = %q, wanted it to contain %q", i, lines[i], want)
		}
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), "|") {
			t.Errorf("line %d is not a markdown row: %q", i, lines[i])
		}
	}
}

func TestTableRenderEmpty(t *testing.T) {
	got, err := newTable(column{header: "Scorer"}).render()
	if err != nil || got != "" {
		t.Errorf("render() = %q, %v, wanted empty", got, err)
	}
}
