/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wandb/weave-sub006/weave/tsi"
)

var (
	// ErrOpCall is wrapped by every *OpCallError.
	ErrOpCall = errors.New("op call error")

	// ErrNotFound is returned when a call, object or feedback row does not
	// exist. It wraps tsi.ErrNotFound.
	ErrNotFound = fmt.Errorf("weave: %w", tsi.ErrNotFound)

	// ErrNoClient is returned by operations that cannot run untraced.
	ErrNoClient = errors.New("weave: no client in context, call weave.Init first")

	// ErrProjectMismatch is returned when an active run belongs to another project.
	ErrProjectMismatch = errors.New("weave: run project does not match client project")

	// ErrInvalidProject is returned for project names not of the form "entity/project".
	ErrInvalidProject = errors.New("weave: project must be of the form entity/project")

	// ErrReservedAttribute is returned when user code writes the "weave" attribute.
	ErrReservedAttribute = errors.New(`weave: the "weave" attribute key is reserved`)

	// ErrAttributesFrozen is returned when attributes change after the call started.
	ErrAttributesFrozen = errors.New("weave: attributes cannot change once the call has started")

	// ErrNegativeIndex is returned for negative CallsIter positions.
	ErrNegativeIndex = errors.New("weave: negative indexing is not supported")
)

// OpCallError reports that an op was invoked with arguments that do not bind
// to its parameters. The op's function never ran.
type OpCallError struct {
	Op      string
	Missing []string
	Unknown []string
	Reason  string
}

func (e *OpCallError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required arguments: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unexpected arguments: "+strings.Join(e.Unknown, ", "))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	return fmt.Sprintf("call %s: %s", e.Op, strings.Join(parts, "; "))
}

func (e *OpCallError) Unwrap() error {
	return ErrOpCall
}

// ProjectMismatchError names both projects involved in ErrProjectMismatch.
type ProjectMismatchError struct {
	Client string
	Run    string
}

func (e *ProjectMismatchError) Error() string {
	return fmt.Sprintf("weave: client logs to %q but the active run logs to %q", e.Client, e.Run)
}

func (e *ProjectMismatchError) Unwrap() error {
	return ErrProjectMismatch
}

func notFound(what string, err error) error {
	if errors.Is(err, tsi.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
