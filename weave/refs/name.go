/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package refs

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxNameLength bounds object names, in characters; names become storage keys.
const MaxNameLength = 128

var (
	// Word characters are Unicode letters, digits and "_".
	disallowedRun = regexp.MustCompile(`[^\p{L}\p{N}_.]+`)
	separatorRun  = regexp.MustCompile(`[._-]{2,}`)
)

// InvalidNameError reports a name that sanitizes to nothing.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid object name %q: nothing left after sanitization", e.Name)
}

// SanitizeName maps name onto the persisted identifier alphabet of word
// characters and ".": runs of other characters become "-", runs of two or
// more separators collapse to "-", leading and trailing "-" and "_" are
// stripped and the result is truncated to MaxNameLength characters.
func SanitizeName(name string) (string, error) {
	s := disallowedRun.ReplaceAllString(name, "-")
	s = separatorRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-_")
	if r := []rune(s); len(r) > MaxNameLength {
		s = strings.TrimRight(string(r[:MaxNameLength]), "-_")
	}
	if s == "" {
		return "", &InvalidNameError{Name: name}
	}
	return s, nil
}
