/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/wandb/weave-sub006/weave/refs"
	"github.com/wandb/weave-sub006/weave/tsi"
)

const defaultFeedbackLimit = 100

// Feedback is an annotation attached to a call or object.
type Feedback struct {
	ID          string
	Type        string
	WeaveRef    string
	RunnableRef string
	CallRef     string
	Creator     string
	Payload     map[string]any
	CreatedAt   time.Time
}

func feedbackFromSchema(f tsi.Feedback) Feedback {
	return Feedback{
		ID:          f.ID,
		Type:        f.FeedbackType,
		WeaveRef:    f.WeaveRef,
		RunnableRef: f.RunnableRef,
		CallRef:     f.CallRef,
		Creator:     f.Creator,
		Payload:     f.Payload,
		CreatedAt:   f.CreatedAt,
	}
}

// FeedbackOption narrows a feedback query.
type FeedbackOption func(*FeedbackQuery)

// FeedbackID selects the feedback row with the given id.
func FeedbackID(id string) FeedbackOption {
	return func(q *FeedbackQuery) {
		q.conds = append(q.conds, tsi.Eq(tsi.Field("id"), tsi.Lit(id)))
	}
}

// FeedbackWhere adds a query expression.
func FeedbackWhere(expr tsi.Operand) FeedbackOption {
	return func(q *FeedbackQuery) {
		q.conds = append(q.conds, expr)
	}
}

// FeedbackReaction selects emoji reactions equal to emoji.
func FeedbackReaction(emoji string) FeedbackOption {
	return func(q *FeedbackQuery) {
		q.conds = append(q.conds,
			tsi.Eq(tsi.Field("feedback_type"), tsi.Lit(tsi.FeedbackTypeReaction)),
			tsi.Eq(tsi.Field("payload.emoji"), tsi.Lit(emoji)))
	}
}

// FeedbackOffset skips the first n rows.
func FeedbackOffset(n int) FeedbackOption {
	return func(q *FeedbackQuery) {
		q.offset = n
	}
}

// FeedbackLimit returns at most n rows. The default is 100.
func FeedbackLimit(n int) FeedbackOption {
	return func(q *FeedbackQuery) {
		q.limit = n
	}
}

// FeedbackQuery is a lazily executed feedback query.
type FeedbackQuery struct {
	client *Client
	conds  []tsi.Operand
	offset int
	limit  int
}

// GetFeedback returns a query over the project's feedback. Nothing is
// fetched until the query runs.
func (c *Client) GetFeedback(opts ...FeedbackOption) *FeedbackQuery {
	q := &FeedbackQuery{client: c, limit: defaultFeedbackLimit}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *FeedbackQuery) expr() *tsi.Query {
	switch len(q.conds) {
	case 0:
		return nil
	case 1:
		return &tsi.Query{Expr: q.conds[0]}
	}
	return &tsi.Query{Expr: tsi.And(q.conds...)}
}

// Execute runs the query.
func (q *FeedbackQuery) Execute(ctx context.Context) ([]Feedback, error) {
	res, err := q.client.server.FeedbackQuery(ctx, &tsi.FeedbackQueryReq{
		ProjectID: q.client.ProjectID(),
		Query:     q.expr(),
		SortBy:    []tsi.SortBy{{Field: "created_at", Direction: "asc"}},
		Offset:    q.offset,
		Limit:     q.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	out := make([]Feedback, 0, len(res.Result))
	for _, f := range res.Result {
		out = append(out, feedbackFromSchema(f))
	}
	return out, nil
}

// All yields the matching rows. A failed query yields its error once.
func (q *FeedbackQuery) All(ctx context.Context) iter.Seq2[Feedback, error] {
	return func(yield func(Feedback, error) bool) {
		rows, err := q.Execute(ctx)
		if err != nil {
			yield(Feedback{}, err)
			return
		}
		for _, f := range rows {
			if !yield(f, nil) {
				return
			}
		}
	}
}

// GetFeedbackByID returns the single feedback row with the given id.
func (c *Client) GetFeedbackByID(ctx context.Context, id string) (Feedback, error) {
	rows, err := c.GetFeedback(FeedbackID(id), FeedbackLimit(1)).Execute(ctx)
	if err != nil {
		return Feedback{}, err
	}
	if len(rows) == 0 {
		return Feedback{}, fmt.Errorf("feedback %s: %w", id, ErrNotFound)
	}
	return rows[0], nil
}

// CallFeedback manages the feedback attached to one call.
type CallFeedback struct {
	call *Call
}

// Feedback returns the call's feedback.
func (c *Call) Feedback() *CallFeedback {
	return &CallFeedback{call: c}
}

func (f *CallFeedback) client() (*Client, error) {
	if f.call.client == nil {
		return nil, ErrNoClient
	}
	return f.call.client, nil
}

func (f *CallFeedback) refCond() tsi.Operand {
	return tsi.Eq(tsi.Field("weave_ref"), tsi.Lit(f.call.Ref().URI()))
}

// Query returns a feedback query scoped to the call.
func (f *CallFeedback) Query(opts ...FeedbackOption) (*FeedbackQuery, error) {
	c, err := f.client()
	if err != nil {
		return nil, err
	}
	return c.GetFeedback(append([]FeedbackOption{FeedbackWhere(f.refCond())}, opts...)...), nil
}

// List returns every feedback row attached to the call.
func (f *CallFeedback) List(ctx context.Context) ([]Feedback, error) {
	q, err := f.Query(FeedbackLimit(0))
	if err != nil {
		return nil, err
	}
	return q.Execute(ctx)
}

// FeedbackRequest describes a feedback row to attach.
type FeedbackRequest struct {
	Type        string
	Payload     map[string]any
	Creator     string
	RunnableRef string
	CallRef     string
}

// Add attaches a feedback row and returns its id.
func (f *CallFeedback) Add(ctx context.Context, req FeedbackRequest) (string, error) {
	c, err := f.client()
	if err != nil {
		return "", err
	}
	if req.Type == "" {
		return "", errors.New("feedback type must not be empty")
	}
	if req.RunnableRef != "" && !strings.HasPrefix(req.Type, tsi.FeedbackTypeRunnablePrefix) {
		return "", fmt.Errorf("feedback type %s cannot carry a runnable ref", req.Type)
	}
	payload, err := jsonSafe(req.Payload)
	if err != nil {
		return "", fmt.Errorf("feedback payload: %w", err)
	}
	pm, _ := payload.(map[string]any)
	res, err := c.server.FeedbackCreate(ctx, &tsi.FeedbackCreateReq{
		ProjectID:    c.ProjectID(),
		WeaveRef:     f.call.Ref().URI(),
		Creator:      req.Creator,
		FeedbackType: req.Type,
		Payload:      pm,
		RunnableRef:  req.RunnableRef,
		CallRef:      req.CallRef,
	})
	if err != nil {
		return "", fmt.Errorf("add feedback to call %s: %w", f.call.ID, err)
	}
	return res.ID, nil
}

// AddReaction attaches an emoji reaction.
func (f *CallFeedback) AddReaction(ctx context.Context, emoji string) (string, error) {
	return f.Add(ctx, FeedbackRequest{Type: tsi.FeedbackTypeReaction, Payload: map[string]any{"emoji": emoji}})
}

// AddNote attaches a free-text note.
func (f *CallFeedback) AddNote(ctx context.Context, note string) (string, error) {
	return f.Add(ctx, FeedbackRequest{Type: tsi.FeedbackTypeNote, Payload: map[string]any{"note": note}})
}

// Purge deletes the feedback row with the given id from the call.
func (f *CallFeedback) Purge(ctx context.Context, id string) error {
	c, err := f.client()
	if err != nil {
		return err
	}
	_, err = c.server.FeedbackPurge(ctx, &tsi.FeedbackPurgeReq{
		ProjectID: c.ProjectID(),
		Query: &tsi.Query{Expr: tsi.And(
			f.refCond(),
			tsi.Eq(tsi.Field("id"), tsi.Lit(id)),
		)},
	})
	if err != nil {
		return fmt.Errorf("purge feedback %s: %w", id, err)
	}
	return nil
}

// runnableFeedbackType is the feedback type written by a scorer.
func runnableFeedbackType(r refs.OpRef) string {
	return tsi.FeedbackTypeRunnablePrefix + r.Name
}
