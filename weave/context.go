/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"maps"

	"github.com/wandb/weave-sub006/weave/callctx"
)

type clientKey struct{}

type attributesKey struct{}

type disabledKey struct{}

// WithClient returns a context whose ops are traced by c. A nil c turns
// tracing off for everything run under the returned context.
func WithClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFromContext returns the client installed by WithClient or Init, or
// nil when there is none. A nil client traces nothing.
func ClientFromContext(ctx context.Context) *Client {
	c, _ := ctx.Value(clientKey{}).(*Client)
	return c
}

// RequireClient is ClientFromContext for operations that must not silently
// degrade, such as scoring and evaluation.
func RequireClient(ctx context.Context) (*Client, error) {
	if c := ClientFromContext(ctx); c != nil {
		return c, nil
	}
	return nil, ErrNoClient
}

// WithAttributes returns a context whose calls carry attrs in addition to
// any attributes set by enclosing contexts. Inner values win on conflict.
func WithAttributes(ctx context.Context, attrs map[string]any) (context.Context, error) {
	if _, ok := attrs[systemAttributesKey]; ok {
		return ctx, ErrReservedAttribute
	}
	merged := maps.Clone(contextAttributes(ctx))
	if merged == nil {
		merged = make(map[string]any, len(attrs))
	}
	maps.Copy(merged, attrs)
	return context.WithValue(ctx, attributesKey{}, merged), nil
}

func contextAttributes(ctx context.Context) map[string]any {
	m, _ := ctx.Value(attributesKey{}).(map[string]any)
	return m
}

// withTracingDisabled marks a subtree that was sampled out.
func withTracingDisabled(ctx context.Context) context.Context {
	return context.WithValue(ctx, disabledKey{}, true)
}

func tracingDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(disabledKey{}).(bool)
	return v
}

// CurrentCall returns the innermost open call in ctx, or nil.
func CurrentCall(ctx context.Context) *Call {
	c, _ := callctx.Current(ctx).(*Call)
	return c
}
