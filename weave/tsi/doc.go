/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package tsi defines the trace server interface: the request and response
// schemas exchanged with a trace server and the TraceServer interface the
// client consumes.
//
// Two implementations live in subpackages. memory keeps everything in process
// and backs tests and local runs; remote speaks JSON over HTTP to a hosted
// trace server. Field names and JSON tags follow the hosted server's schema so
// that requests built here can be sent as-is.
//
// Project ids are "entity/project" strings throughout.
package tsi
