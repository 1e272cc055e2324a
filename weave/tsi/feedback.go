/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package tsi

import "time"

// Feedback types produced by the client.
const (
	FeedbackTypeReaction = "wandb.reaction.1"
	FeedbackTypeNote     = "wandb.note.1"
	// FeedbackTypeRunnablePrefix prefixes the type of scorer feedback.
	FeedbackTypeRunnablePrefix = "wandb.runnable."
)

// Feedback is a stored feedback row.
type Feedback struct {
	ID           string         `json:"id"`
	ProjectID    string         `json:"project_id"`
	WeaveRef     string         `json:"weave_ref"`
	Creator      string         `json:"creator,omitempty"`
	FeedbackType string         `json:"feedback_type"`
	Payload      map[string]any `json:"payload"`
	CreatedAt    time.Time      `json:"created_at"`
	RunnableRef  string         `json:"runnable_ref,omitempty"`
	CallRef      string         `json:"call_ref,omitempty"`
	WBUserID     string         `json:"wb_user_id,omitempty"`
}

// FeedbackCreateReq attaches feedback to a ref.
type FeedbackCreateReq struct {
	ProjectID    string         `json:"project_id"`
	WeaveRef     string         `json:"weave_ref"`
	Creator      string         `json:"creator,omitempty"`
	FeedbackType string         `json:"feedback_type"`
	Payload      map[string]any `json:"payload"`
	RunnableRef  string         `json:"runnable_ref,omitempty"`
	CallRef      string         `json:"call_ref,omitempty"`
	WBUserID     string         `json:"wb_user_id,omitempty"`
}

// FeedbackCreateRes describes the stored row.
type FeedbackCreateRes struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	WBUserID  string         `json:"wb_user_id,omitempty"`
	Payload   map[string]any `json:"payload"`
}

// FeedbackQueryReq filters feedback rows with a query expression.
type FeedbackQueryReq struct {
	ProjectID string   `json:"project_id"`
	Query     *Query   `json:"query,omitempty"`
	SortBy    []SortBy `json:"sort_by,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Offset    int      `json:"offset,omitempty"`
}

// FeedbackQueryRes holds matching rows.
type FeedbackQueryRes struct {
	Result []Feedback `json:"result"`
}

// FeedbackPurgeReq deletes the feedback rows matching Query.
type FeedbackPurgeReq struct {
	ProjectID string `json:"project_id"`
	Query     *Query `json:"query"`
}

// FeedbackPurgeRes is empty.
type FeedbackPurgeRes struct{}
