/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluation

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wandb/weave-sub006/weave"
)

// Dataset is a named, versioned table of examples.
type Dataset struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Rows        *weave.Table `json:"rows"`
}

// NewDataset returns a dataset holding rows.
func NewDataset(name string, rows []map[string]any) *Dataset {
	return &Dataset{Name: name, Rows: weave.NewTable(rows)}
}

// ObjectName implements weave.Object.
func (d *Dataset) ObjectName() string {
	if d.Name == "" {
		return "Dataset"
	}
	return d.Name
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil || d.Rows == nil {
		return 0
	}
	return d.Rows.Len()
}

// LoadDataset reads rows from YAML or JSON. The document is either a list
// of rows or a mapping with a "rows" list and an optional "description".
func LoadDataset(name string, r io.Reader) (*Dataset, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return NewDataset(name, nil), nil
		}
		return nil, fmt.Errorf("decode dataset %s: %w", name, err)
	}

	var description string
	if m, ok := doc.(map[string]any); ok {
		description, _ = m["description"].(string)
		doc, ok = m["rows"]
		if !ok {
			return nil, fmt.Errorf("dataset %s: mapping has no rows", name)
		}
	}
	list, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("dataset %s: rows must be a list, got %T", name, doc)
	}
	rows := make([]map[string]any, 0, len(list))
	for i, item := range list {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("dataset %s: row %d is %T, not a mapping", name, i, item)
		}
		rows = append(rows, row)
	}
	d := NewDataset(name, rows)
	d.Description = description
	return d, nil
}

// LoadDatasetFile reads a dataset file. The dataset is named after the file.
func LoadDatasetFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return LoadDataset(name, f)
}
