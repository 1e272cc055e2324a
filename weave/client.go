/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/wandb/weave-sub006/weave/retry"
	"github.com/wandb/weave-sub006/weave/serialize"
	"github.com/wandb/weave-sub006/weave/tsi"
	"github.com/wandb/weave-sub006/weave/tsi/remote"
)

// Client records calls and objects of one project on a trace server.
// All methods are safe for concurrent use. A nil *Client is valid for
// CreateCall and FinishCall and records nothing.
type Client struct {
	entity   string
	project  string
	settings Settings
	server   tsi.TraceServer
	registry *serialize.Registry
	refs     *serialize.RefCache
	redactor *redactor
	runs     RunProvider
	tel      *telemetry
	tracers  oteltrace.TracerProvider
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithSettings replaces the settings read from the environment.
func WithSettings(s Settings) Option {
	return func(c *Client) {
		c.settings = s
	}
}

// WithTraceServer stores calls on srv instead of the hosted trace server.
func WithTraceServer(srv tsi.TraceServer) Option {
	return func(c *Client) {
		c.server = srv
	}
}

// WithRunProvider installs the source of the host's active run, which must
// log to the same project as the client.
func WithRunProvider(p RunProvider) Option {
	return func(c *Client) {
		c.runs = p
	}
}

// WithRegistry installs the custom type serializers used for inputs, outputs
// and published objects.
func WithRegistry(r *serialize.Registry) Option {
	return func(c *Client) {
		c.registry = r
	}
}

// WithTracerProvider mirrors calls as spans from tp instead of the global
// tracer provider.
func WithTracerProvider(tp oteltrace.TracerProvider) Option {
	return func(c *Client) {
		c.tracers = tp
	}
}

// WithClock overrides the source of call timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// RunInfo identifies an experiment run active in the host process.
type RunInfo struct {
	Entity  string
	Project string
	ID      string
}

// RunProvider reports the host's active run, if any.
type RunProvider interface {
	ActiveRun(ctx context.Context) (RunInfo, bool)
}

// RunProviderFunc adapts a function to RunProvider.
type RunProviderFunc func(ctx context.Context) (RunInfo, bool)

// ActiveRun implements RunProvider.
func (f RunProviderFunc) ActiveRun(ctx context.Context) (RunInfo, bool) {
	return f(ctx)
}

// NewClient creates a client for project, given as "entity/project".
// Without WithTraceServer it talks to the hosted trace server named by the
// settings.
func NewClient(ctx context.Context, project string, opts ...Option) (*Client, error) {
	entity, name, ok := strings.Cut(project, "/")
	if !ok || entity == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProject, project)
	}

	c := &Client{
		entity:   entity,
		project:  name,
		settings: DefaultSettings(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.settings.validate(); err != nil {
		return nil, err
	}
	if c.registry == nil {
		c.registry = serialize.DefaultRegistry()
	}
	c.refs = serialize.NewRefCacheSize(serialize.DefaultRefCacheSize, c.registry)
	c.redactor = newRedactor(c.settings.RedactKeys)
	c.tel = newTelemetry(ctx, c.tracers)

	if c.server == nil {
		rc := retry.DefaultConfig()
		rc.MaxRetries = c.settings.MaxRetries
		srv, err := remote.New(remote.Config{
			BaseURL: c.settings.TraceServerURL,
			APIKey:  c.settings.APIKey,
			Timeout: c.settings.HTTPTimeout,
			Retry:   rc,
		})
		if err != nil {
			return nil, fmt.Errorf("create trace server client: %w", err)
		}
		c.server = srv
	}

	res, err := c.server.EnsureProjectExists(ctx, &tsi.EnsureProjectExistsReq{Entity: entity, Project: name})
	if err != nil {
		return nil, fmt.Errorf("ensure project %s exists: %w", project, err)
	}
	if res != nil && res.ProjectName != "" {
		c.project = res.ProjectName
	}

	clog.FromContext(ctx).With("project", c.ProjectID()).Info("Logged in", "url", c.ProjectURL())
	return c, nil
}

// Init reads Settings from the environment, creates a client for project and
// returns a context carrying it. Options are applied after the environment,
// so WithSettings overrides it entirely.
func Init(ctx context.Context, project string, opts ...Option) (context.Context, *Client, error) {
	s, err := LoadSettings(ctx)
	if err != nil {
		return ctx, nil, err
	}
	c, err := NewClient(ctx, project, append([]Option{WithSettings(s)}, opts...)...)
	if err != nil {
		return ctx, nil, err
	}
	if c.settings.Disabled {
		clog.FromContext(ctx).Debug("Tracing disabled by WEAVE_DISABLED")
	}
	return WithClient(ctx, c), c, nil
}

// Entity returns the entity the client logs to.
func (c *Client) Entity() string { return c.entity }

// Project returns the project name without the entity.
func (c *Client) Project() string { return c.project }

// ProjectID returns "entity/project".
func (c *Client) ProjectID() string { return c.entity + "/" + c.project }

// Settings returns the client's settings.
func (c *Client) Settings() Settings { return c.settings }

// Server returns the trace server the client writes to.
func (c *Client) Server() tsi.TraceServer { return c.server }

// ProjectURL links to the project in the UI.
func (c *Client) ProjectURL() string {
	return fmt.Sprintf("%s/%s/%s/weave", strings.TrimRight(c.settings.UIURL, "/"),
		url.PathEscape(c.entity), url.PathEscape(c.project))
}

func (c *Client) callURL(id string) string {
	return fmt.Sprintf("%s/%s/%s/r/call/%s", strings.TrimRight(c.settings.UIURL, "/"),
		url.PathEscape(c.entity), url.PathEscape(c.project), url.PathEscape(id))
}

// enabled reports whether calls should be recorded in ctx.
func (c *Client) enabled(ctx context.Context) bool {
	return c != nil && !c.settings.Disabled && !tracingDisabled(ctx)
}

// checkRun enforces that an active run logs to the client's project.
func (c *Client) checkRun(ctx context.Context) (string, error) {
	if c.runs == nil {
		return "", nil
	}
	run, ok := c.runs.ActiveRun(ctx)
	if !ok {
		return "", nil
	}
	if run.Entity != c.entity || run.Project != c.project {
		return "", &ProjectMismatchError{Client: c.ProjectID(), Run: run.Entity + "/" + run.Project}
	}
	return run.Entity + "/" + run.Project + "/" + run.ID, nil
}

func (c *Client) mapper(ctx context.Context) *serialize.Mapper {
	return &serialize.Mapper{
		Registry:           c.registry,
		Refs:               c.refs,
		Project:            c.ProjectID(),
		AllowMixedProjects: c.settings.AllowMixedProjectRefs,
		Save:               c.saver(ctx),
	}
}

func (c *Client) fromWire(wire any) (any, error) {
	return serialize.FromWire(wire, c.registry)
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
