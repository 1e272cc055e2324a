/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"bytes"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// maxWidth keeps long namespace and metric names from stretching a report.
const maxWidth = 100

// column is one column of a report table. Figures are right aligned.
type column struct {
	header  string
	numeric bool
}

// table collects the rows of one markdown report table.
type table struct {
	columns []column
	rows    [][]string
}

func newTable(columns ...column) *table {
	return &table{columns: columns}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// render returns the table as markdown, or "" when it has no rows.
func (t *table) render() (string, error) {
	if len(t.rows) == 0 {
		return "", nil
	}
	headers := make([]string, len(t.columns))
	aligns := make([]tw.Align, len(t.columns))
	for i, c := range t.columns {
		headers[i] = c.header
		aligns[i] = tw.AlignLeft
		if c.numeric {
			aligns[i] = tw.AlignRight
		}
	}
	alignment := tw.CellAlignment{Global: tw.AlignLeft, PerColumn: aligns}

	var buf bytes.Buffer
	tbl := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeader(headers),
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithHeaderAlignmentConfig(alignment),
		tablewriter.WithRowAlignmentConfig(alignment),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
		tablewriter.WithTrimSpace(tw.Off),
		tablewriter.WithMaxWidth(maxWidth),
	)
	if err := tbl.Bulk(t.rows); err != nil {
		return "", err
	}
	if err := tbl.Render(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
