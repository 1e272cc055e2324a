/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

// Version is reported in the attributes of every call.
const Version = "0.1.0"
