/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wandb/weave-sub006/weave/refs"
	"github.com/wandb/weave-sub006/weave/tsi"
)

// FeedbackCreate implements tsi.TraceServer.
func (s *Server) FeedbackCreate(_ context.Context, req *tsi.FeedbackCreateReq) (*tsi.FeedbackCreateRes, error) {
	if req.FeedbackType == "" {
		return nil, fmt.Errorf("feedback create: feedback_type is required")
	}
	if _, err := refs.Parse(req.WeaveRef); err != nil {
		return nil, fmt.Errorf("feedback create: %w", err)
	}
	payload, err := normalizeMap(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("feedback create payload: %w", err)
	}
	if payload == nil {
		payload = map[string]any{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fb := tsi.Feedback{
		ID:           newID(),
		ProjectID:    req.ProjectID,
		WeaveRef:     req.WeaveRef,
		Creator:      req.Creator,
		FeedbackType: req.FeedbackType,
		Payload:      payload,
		CreatedAt:    s.now(),
		RunnableRef:  req.RunnableRef,
		CallRef:      req.CallRef,
		WBUserID:     req.WBUserID,
	}
	s.feedback = append(s.feedback, fb)
	return &tsi.FeedbackCreateRes{
		ID:        fb.ID,
		CreatedAt: fb.CreatedAt,
		WBUserID:  fb.WBUserID,
		Payload:   copyMap(payload),
	}, nil
}

// FeedbackQuery implements tsi.TraceServer. Results are in creation order.
func (s *Server) FeedbackQuery(_ context.Context, req *tsi.FeedbackQueryReq) (*tsi.FeedbackQueryRes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []tsi.Feedback
	for _, fb := range s.feedback {
		if fb.ProjectID != req.ProjectID {
			continue
		}
		ok, err := matchFeedback(fb, req.Query)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, fb)
		}
	}
	matched = window(matched, req.Offset, req.Limit)

	res := &tsi.FeedbackQueryRes{Result: make([]tsi.Feedback, 0, len(matched))}
	for _, fb := range matched {
		fb.Payload = copyMap(fb.Payload)
		res.Result = append(res.Result, fb)
	}
	return res, nil
}

// FeedbackPurge implements tsi.TraceServer.
func (s *Server) FeedbackPurge(_ context.Context, req *tsi.FeedbackPurgeReq) (*tsi.FeedbackPurgeRes, error) {
	if req.Query == nil {
		return nil, fmt.Errorf("feedback purge: a query is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]tsi.Feedback, 0, len(s.feedback))
	for _, fb := range s.feedback {
		if fb.ProjectID == req.ProjectID {
			ok, err := matchFeedback(fb, req.Query)
			if err != nil {
				return nil, err
			}
			if ok {
				continue
			}
		}
		kept = append(kept, fb)
	}
	s.feedback = kept
	return &tsi.FeedbackPurgeRes{}, nil
}

func matchFeedback(fb tsi.Feedback, q *tsi.Query) (bool, error) {
	if q == nil {
		return true, nil
	}
	b, err := json.Marshal(fb)
	if err != nil {
		return false, err
	}
	var row map[string]any
	if err := json.Unmarshal(b, &row); err != nil {
		return false, err
	}
	return tsi.Match(q, func(field string) (any, bool) { return tsi.LookupPath(row, field) })
}
