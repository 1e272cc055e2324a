/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/wandb/weave-sub006/weave/refs"
	"github.com/wandb/weave-sub006/weave/tsi"
)

func TestPublishIsContentAddressed(t *testing.T) {
	ctx, client, _ := newTestClient(t)

	// Two distinct maps with the same content.
	first, err := client.Publish(ctx, map[string]any{"a": 1, "b": "x"}, "cfg")
	require.NoError(t, err)
	second, err := client.Publish(ctx, map[string]any{"b": "x", "a": 1}, "cfg")
	require.NoError(t, err)
	if first.Digest != second.Digest {
		t.Errorf("digests: got = %s and %s, wanted them equal", first.Digest, second.Digest)
	}

	versions, err := client.GetObjectVersions(ctx, "cfg")
	require.NoError(t, err)
	require.Len(t, versions, 1)

	third, err := client.Publish(ctx, map[string]any{"a": 2, "b": "x"}, "cfg")
	require.NoError(t, err)
	if third.Digest == first.Digest {
		t.Error("different content produced the same digest")
	}
	versions, err = client.GetObjectVersions(ctx, "cfg")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	if versions[0].Latest || !versions[1].Latest {
		t.Errorf("latest flags: got = %v, %v, wanted = false, true", versions[0].Latest, versions[1].Latest)
	}
	if versions[1].Ref.URI() != third.URI() {
		t.Errorf("latest ref: got = %s, wanted = %s", versions[1].Ref.URI(), third.URI())
	}
	if versions[1].Kind != tsi.KindObject {
		t.Errorf("kind: got = %s, wanted = %s", versions[1].Kind, tsi.KindObject)
	}
}

func TestPublishReusesRefForSameValue(t *testing.T) {
	ctx, client, srv := newTestClient(t)
	cfg := map[string]any{"temperature": 0.5}

	ref, err := client.Publish(ctx, cfg, "settings")
	require.NoError(t, err)
	again, err := client.Publish(ctx, cfg, "settings")
	require.NoError(t, err)
	if ref.URI() != again.URI() {
		t.Errorf("second publish: got = %s, wanted = %s", again.URI(), ref.URI())
	}
	if got, ok := client.RefOf(cfg); !ok || got.URI() != ref.URI() {
		t.Errorf("RefOf: got = %v, %v, wanted = %s", got, ok, ref.URI())
	}

	res, err := srv.ObjsQuery(ctx, &tsi.ObjQueryReq{ProjectID: client.ProjectID()})
	require.NoError(t, err)
	if len(res.Objs) != 1 {
		t.Errorf("stored versions: got = %d, wanted = 1", len(res.Objs))
	}
}

func TestPublishAfterMutation(t *testing.T) {
	ctx, client, _ := newTestClient(t)
	cfg := map[string]any{"temperature": 0.5}

	first, err := client.Publish(ctx, cfg, "settings")
	require.NoError(t, err)
	cfg["temperature"] = 0.9
	second, err := client.Publish(ctx, cfg, "settings")
	require.NoError(t, err)
	if first.Digest == second.Digest {
		t.Fatalf("digest after mutation: got = %s, wanted a new digest", second.Digest)
	}

	got, err := client.Get(ctx, second)
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]any{"temperature": 0.9}, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
	if r, ok := client.RefOf(cfg); !ok || r.URI() != second.URI() {
		t.Errorf("RefOf: got = %v, %v, wanted = %s", r, ok, second.URI())
	}
	versions, err := client.GetObjectVersions(ctx, "settings")
	require.NoError(t, err)
	require.Len(t, versions, 2)
}

type genConfig struct {
	Temp float64 `json:"temp"`
}

type genIn struct {
	Config *genConfig `json:"config"`
}

func TestMutatedInputsAreNotRecordedAsStaleRefs(t *testing.T) {
	ctx, client, srv := newTestClient(t)
	cfg := &genConfig{Temp: 0.1}
	ref, err := client.Publish(ctx, cfg, "gen-config")
	require.NoError(t, err)

	gen := NewOp("gen", func(_ context.Context, in genIn) (float64, error) {
		return in.Config.Temp, nil
	})

	_, before, err := gen.Call(ctx, genIn{Config: cfg})
	require.NoError(t, err)
	if got, ok := before.Inputs["config"].(refs.Ref); !ok || got.URI() != ref.URI() {
		t.Errorf("inputs before mutation: got = %v, wanted = %s", before.Inputs["config"], ref.URI())
	}

	cfg.Temp = 0.7
	out, after, err := gen.Call(ctx, genIn{Config: cfg})
	require.NoError(t, err)
	if out != 0.7 {
		t.Errorf("output: got = %v, wanted = %v", out, 0.7)
	}
	if _, ok := after.Inputs["config"].(refs.Ref); ok {
		t.Error("inputs after mutation still point at the old version")
	}
	stored, err := srv.CallRead(ctx, &tsi.CallReadReq{ProjectID: client.ProjectID(), ID: after.ID})
	require.NoError(t, err)
	recorded, ok := stored.Call.Inputs["config"].(map[string]any)
	require.True(t, ok, "stored config: got = %T", stored.Call.Inputs["config"])
	if got := recorded["temp"]; got != 0.7 {
		t.Errorf("stored temp: got = %v, wanted = %v", got, 0.7)
	}
}

func TestPublishRejectsBadNames(t *testing.T) {
	ctx, client, _ := newTestClient(t)
	_, err := client.Publish(ctx, map[string]any{"a": 1}, "???")
	var nameErr *refs.InvalidNameError
	if !errors.As(err, &nameErr) {
		t.Errorf("error: got = %v, wanted *refs.InvalidNameError", err)
	}
}

func TestGetFollowsRefs(t *testing.T) {
	ctx, client, _ := newTestClient(t)
	ref, err := client.Publish(ctx, map[string]any{"a": 1, "b": []any{"x", "y"}}, "doc")
	require.NoError(t, err)

	got, err := client.Get(ctx, ref)
	require.NoError(t, err)
	want := map[string]any{"a": 1.0, "b": []any{"x", "y"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	got, err = client.Get(ctx, ref.WithKey("b").WithIndex(1))
	require.NoError(t, err)
	if got != "y" {
		t.Errorf("Get(b[1]): got = %v, wanted = y", got)
	}

	missing := refs.NewObjectRef("acme", "demo", "doc", strings.Repeat("0", 64))
	if _, err := client.Get(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error: got = %v, wanted ErrNotFound", err)
	}
	if _, err := client.GetObjectVersions(ctx, "nothing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetObjectVersions(nothing) error: got = %v, wanted ErrNotFound", err)
	}
}

type prompt struct {
	Text string `json:"text"`
}

func (*prompt) ObjectName() string { return "prompt" }

type promptIn struct {
	Prompt *prompt `json:"prompt"`
	N      int     `json:"n"`
}

func TestObjectsInInputsArePublished(t *testing.T) {
	ctx, client, srv := newTestClient(t)
	p := &prompt{Text: "hello"}
	echo := NewOp("echo", func(_ context.Context, in promptIn) (string, error) {
		return in.Prompt.Text, nil
	})

	_, call, err := echo.Call(ctx, promptIn{Prompt: p, N: 2})
	require.NoError(t, err)

	ref, ok := call.Inputs["prompt"].(refs.ObjectRef)
	if !ok {
		t.Fatalf("inputs[prompt]: got = %T, wanted refs.ObjectRef", call.Inputs["prompt"])
	}
	if ref.Name != "prompt" {
		t.Errorf("ref name: got = %s, wanted = prompt", ref.Name)
	}
	if cached, ok := client.RefOf(p); !ok || cached.URI() != ref.URI() {
		t.Errorf("RefOf(prompt): got = %v, wanted = %s", cached, ref.URI())
	}

	stored, err := srv.CallRead(ctx, &tsi.CallReadReq{ProjectID: client.ProjectID(), ID: call.ID})
	require.NoError(t, err)
	if got := stored.Call.Inputs["prompt"]; got != ref.URI() {
		t.Errorf("stored inputs[prompt]: got = %v, wanted = %s", got, ref.URI())
	}

	// A second call reuses the version already published.
	_, _, err = echo.Call(ctx, promptIn{Prompt: p, N: 3})
	require.NoError(t, err)
	versions, err := client.GetObjectVersions(ctx, "prompt")
	require.NoError(t, err)
	require.Len(t, versions, 1)
}

func TestSaveOp(t *testing.T) {
	ctx, client, _ := newTestClient(t)
	predict := addOne()

	ref, err := client.SaveOp(ctx, predict)
	require.NoError(t, err)
	if ref.Name != "predict" {
		t.Errorf("op ref name: got = %s, wanted = predict", ref.Name)
	}
	again, err := client.SaveOp(ctx, predict)
	require.NoError(t, err)
	if again.URI() != ref.URI() {
		t.Errorf("second save: got = %s, wanted = %s", again.URI(), ref.URI())
	}

	versions, err := client.GetObjectVersions(ctx, "predict")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	if versions[0].Kind != tsi.KindOp {
		t.Errorf("kind: got = %s, wanted = %s", versions[0].Kind, tsi.KindOp)
	}
}

func TestTables(t *testing.T) {
	ctx, client, _ := newTestClient(t)
	table := NewTable([]map[string]any{
		{"question": "2+2", "answer": 4},
		{"question": "3+3", "answer": 6},
	})
	if _, ok := table.Ref(); ok {
		t.Error("unsaved table has a ref")
	}

	ref, err := client.SaveTable(ctx, table)
	require.NoError(t, err)
	if got, ok := table.Ref(); !ok || got.URI() != ref.URI() {
		t.Errorf("Ref(): got = %v, %v, wanted = %s", got, ok, ref.URI())
	}
	row, ok := table.RowRef(1)
	if !ok {
		t.Fatal("RowRef(1) missing")
	}
	if _, ok := table.RowRef(2); ok {
		t.Error("RowRef(2) exists for a two row table")
	}

	again, err := client.SaveTable(ctx, table)
	require.NoError(t, err)
	if again.URI() != ref.URI() {
		t.Errorf("second save: got = %s, wanted = %s", again.URI(), ref.URI())
	}

	got, err := client.GetTable(ctx, ref)
	require.NoError(t, err)
	want := []map[string]any{
		{"question": "2+2", "answer": 4.0},
		{"question": "3+3", "answer": 6.0},
	}
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Errorf("GetTable() rows mismatch (-want +got):\n%s", diff)
	}
	if r, ok := got.RowRef(1); !ok || r.URI() != row.URI() {
		t.Errorf("row ref after read: got = %v, wanted = %s", r, row.URI())
	}

	v, err := client.Get(ctx, row)
	require.NoError(t, err)
	if diff := cmp.Diff(want[1], v); diff != "" {
		t.Errorf("Get(row) mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishedObjectsReferToTables(t *testing.T) {
	ctx, client, _ := newTestClient(t)
	table := NewTable([]map[string]any{{"x": 1}})
	ref, err := client.Publish(ctx, map[string]any{"name": "tiny", "rows": table}, "dataset")
	require.NoError(t, err)

	tref, ok := table.Ref()
	if !ok {
		t.Fatal("nested table was not saved")
	}
	got, err := client.Get(ctx, ref)
	require.NoError(t, err)
	m, ok := got.(map[string]any)
	require.True(t, ok, "Get() = %T", got)
	rows, ok := m["rows"].(refs.TableRef)
	if !ok {
		t.Fatalf("rows: got = %T, wanted refs.TableRef", m["rows"])
	}
	if rows.URI() != tref.URI() {
		t.Errorf("rows ref: got = %s, wanted = %s", rows.URI(), tref.URI())
	}
}
