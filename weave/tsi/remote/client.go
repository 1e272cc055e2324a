/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package remote implements tsi.TraceServer over the hosted trace server's
// JSON HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wandb/weave-sub006/weave/retry"
	"github.com/wandb/weave-sub006/weave/tsi"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the trace server (e.g. "https://trace.wandb.ai").
	BaseURL string

	// APIKey authenticates requests with HTTP basic auth as user "api".
	APIKey string

	// HTTPClient is an optional custom HTTP client. If nil, a client with an
	// OpenTelemetry-instrumented transport and Timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual requests. Defaults to 30 seconds.
	Timeout time.Duration

	// Retry governs retries of throttled and failed requests.
	Retry retry.Config
}

// Client talks to a hosted trace server. All methods are safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retry   retry.Config
}

var _ tsi.TraceServer = (*Client)(nil)

// New creates a Client from the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote: BaseURL is required")
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  httpClient,
		retry:   cfg.Retry,
	}, nil
}

// EnsureProjectExists implements tsi.TraceServer. Projects are created on
// first write by the hosted server, so no request is made.
func (c *Client) EnsureProjectExists(_ context.Context, req *tsi.EnsureProjectExistsReq) (*tsi.EnsureProjectExistsRes, error) {
	return &tsi.EnsureProjectExistsRes{ProjectName: req.Project}, nil
}

// CallStart implements tsi.TraceServer.
func (c *Client) CallStart(ctx context.Context, req *tsi.CallStartReq) (*tsi.CallStartRes, error) {
	return post[tsi.CallStartRes](ctx, c, "/call/start", req)
}

// CallEnd implements tsi.TraceServer.
func (c *Client) CallEnd(ctx context.Context, req *tsi.CallEndReq) (*tsi.CallEndRes, error) {
	return post[tsi.CallEndRes](ctx, c, "/call/end", req)
}

// CallRead implements tsi.TraceServer.
func (c *Client) CallRead(ctx context.Context, req *tsi.CallReadReq) (*tsi.CallReadRes, error) {
	return post[tsi.CallReadRes](ctx, c, "/call/read", req)
}

// CallsQuery implements tsi.TraceServer by draining the streaming endpoint.
func (c *Client) CallsQuery(ctx context.Context, req *tsi.CallsQueryReq) (*tsi.CallsQueryRes, error) {
	res := &tsi.CallsQueryRes{Calls: []tsi.CallSchema{}}
	for call, err := range c.CallsQueryStream(ctx, req) {
		if err != nil {
			return nil, err
		}
		res.Calls = append(res.Calls, *call)
	}
	return res, nil
}

// CallsQueryStream implements tsi.TraceServer. The response is a stream of
// JSON documents, one call each. Only opening the stream is retried.
func (c *Client) CallsQueryStream(ctx context.Context, req *tsi.CallsQueryReq) iter.Seq2[*tsi.CallSchema, error] {
	return func(yield func(*tsi.CallSchema, error) bool) {
		resp, err := retry.Do(ctx, c.retry, "/calls/stream_query", isRetryable, func(ctx context.Context) (*http.Response, error) {
			return c.send(ctx, "/calls/stream_query", req, "application/jsonl")
		})
		if err != nil {
			yield(nil, err)
			return
		}
		defer func() { _ = resp.Body.Close() }()

		dec := json.NewDecoder(resp.Body)
		for {
			var call tsi.CallSchema
			if err := dec.Decode(&call); err != nil {
				if !errors.Is(err, io.EOF) {
					yield(nil, fmt.Errorf("remote: decode call stream: %w", err))
				}
				return
			}
			if !yield(&call, nil) {
				return
			}
		}
	}
}

// CallsQueryStats implements tsi.TraceServer.
func (c *Client) CallsQueryStats(ctx context.Context, req *tsi.CallsQueryStatsReq) (*tsi.CallsQueryStatsRes, error) {
	return post[tsi.CallsQueryStatsRes](ctx, c, "/calls/query_stats", req)
}

// CallsDelete implements tsi.TraceServer.
func (c *Client) CallsDelete(ctx context.Context, req *tsi.CallsDeleteReq) (*tsi.CallsDeleteRes, error) {
	return post[tsi.CallsDeleteRes](ctx, c, "/calls/delete", req)
}

// CallUpdate implements tsi.TraceServer.
func (c *Client) CallUpdate(ctx context.Context, req *tsi.CallUpdateReq) (*tsi.CallUpdateRes, error) {
	return post[tsi.CallUpdateRes](ctx, c, "/call/update", req)
}

// ObjCreate implements tsi.TraceServer.
func (c *Client) ObjCreate(ctx context.Context, req *tsi.ObjCreateReq) (*tsi.ObjCreateRes, error) {
	return post[tsi.ObjCreateRes](ctx, c, "/obj/create", req)
}

// ObjRead implements tsi.TraceServer.
func (c *Client) ObjRead(ctx context.Context, req *tsi.ObjReadReq) (*tsi.ObjReadRes, error) {
	return post[tsi.ObjReadRes](ctx, c, "/obj/read", req)
}

// ObjsQuery implements tsi.TraceServer.
func (c *Client) ObjsQuery(ctx context.Context, req *tsi.ObjQueryReq) (*tsi.ObjQueryRes, error) {
	return post[tsi.ObjQueryRes](ctx, c, "/objs/query", req)
}

// TableCreate implements tsi.TraceServer.
func (c *Client) TableCreate(ctx context.Context, req *tsi.TableCreateReq) (*tsi.TableCreateRes, error) {
	return post[tsi.TableCreateRes](ctx, c, "/table/create", req)
}

// TableQuery implements tsi.TraceServer.
func (c *Client) TableQuery(ctx context.Context, req *tsi.TableQueryReq) (*tsi.TableQueryRes, error) {
	return post[tsi.TableQueryRes](ctx, c, "/table/query", req)
}

// RefsReadBatch implements tsi.TraceServer.
func (c *Client) RefsReadBatch(ctx context.Context, req *tsi.RefsReadBatchReq) (*tsi.RefsReadBatchRes, error) {
	return post[tsi.RefsReadBatchRes](ctx, c, "/refs/read_batch", req)
}

// FeedbackCreate implements tsi.TraceServer.
func (c *Client) FeedbackCreate(ctx context.Context, req *tsi.FeedbackCreateReq) (*tsi.FeedbackCreateRes, error) {
	return post[tsi.FeedbackCreateRes](ctx, c, "/feedback/create", req)
}

// FeedbackQuery implements tsi.TraceServer.
func (c *Client) FeedbackQuery(ctx context.Context, req *tsi.FeedbackQueryReq) (*tsi.FeedbackQueryRes, error) {
	return post[tsi.FeedbackQueryRes](ctx, c, "/feedback/query", req)
}

// FeedbackPurge implements tsi.TraceServer.
func (c *Client) FeedbackPurge(ctx context.Context, req *tsi.FeedbackPurgeReq) (*tsi.FeedbackPurgeRes, error) {
	return post[tsi.FeedbackPurgeRes](ctx, c, "/feedback/purge", req)
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

func post[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	return retry.Do(ctx, c.retry, path, isRetryable, func(ctx context.Context) (*T, error) {
		resp, err := c.send(ctx, path, body, "application/json")
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		var dest T
		if err := json.NewDecoder(resp.Body).Decode(&dest); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("remote: decode %s response: %w", path, err)
		}
		return &dest, nil
	})
}

// send issues one POST and returns the response of a 2xx status. The caller
// closes the body.
func (c *Client) send(ctx context.Context, path string, body any, accept string) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("remote: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("remote: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.apiKey != "" {
		req.SetBasicAuth("api", c.apiKey)
	}

	clog.FromContext(ctx).With("path", path).Debug("Sending trace server request")
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transportError{err: fmt.Errorf("remote: POST %s: %w", path, err)}
	}
	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &transportError{err: fmt.Errorf("remote: read error body: %w", err)}
		}
		return nil, parseErrorResponse(resp, b)
	}
	return resp, nil
}
