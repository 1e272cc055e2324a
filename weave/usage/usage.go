/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package usage pulls model names and token counts out of op outputs so that
// a call's summary can report LLM usage.
package usage

import (
	"encoding/json"
	"reflect"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// Reporter is implemented by outputs that describe their own usage.
type Reporter interface {
	UsageReport() (model string, usage map[string]any)
}

// Extract returns the model and token usage carried by output, if any.
// It understands Reporter implementations, Anthropic, OpenAI and Gemini
// responses, maps with "model" and "usage" keys and structs with Model and
// Usage fields.
func Extract(output any) (model string, usage map[string]any, ok bool) {
	switch o := output.(type) {
	case nil:
		return "", nil, false
	case Reporter:
		model, usage = o.UsageReport()
		return model, usage, model != "" && usage != nil
	case *anthropic.Message:
		if o == nil {
			return "", nil, false
		}
		return fromAnthropic(o)
	case anthropic.Message:
		return fromAnthropic(&o)
	case *openai.ChatCompletion:
		if o == nil {
			return "", nil, false
		}
		return fromOpenAI(o)
	case openai.ChatCompletion:
		return fromOpenAI(&o)
	case *genai.GenerateContentResponse:
		return fromGenAI(o)
	case map[string]any:
		return fromMap(o)
	}
	return fromStruct(reflect.ValueOf(output))
}

func fromAnthropic(m *anthropic.Message) (string, map[string]any, bool) {
	u := m.Usage
	if m.Model == "" {
		return "", nil, false
	}
	usage := map[string]any{
		"input_tokens":  u.InputTokens,
		"output_tokens": u.OutputTokens,
		"total_tokens":  u.InputTokens + u.OutputTokens,
	}
	if u.CacheCreationInputTokens > 0 {
		usage["cache_creation_input_tokens"] = u.CacheCreationInputTokens
	}
	if u.CacheReadInputTokens > 0 {
		usage["cache_read_input_tokens"] = u.CacheReadInputTokens
	}
	return string(m.Model), usage, true
}

func fromOpenAI(c *openai.ChatCompletion) (string, map[string]any, bool) {
	if c.Model == "" {
		return "", nil, false
	}
	return c.Model, map[string]any{
		"prompt_tokens":     c.Usage.PromptTokens,
		"completion_tokens": c.Usage.CompletionTokens,
		"total_tokens":      c.Usage.TotalTokens,
	}, true
}

func fromGenAI(r *genai.GenerateContentResponse) (string, map[string]any, bool) {
	if r == nil || r.UsageMetadata == nil || r.ModelVersion == "" {
		return "", nil, false
	}
	md := r.UsageMetadata
	return r.ModelVersion, map[string]any{
		"prompt_tokens":     int64(md.PromptTokenCount),
		"completion_tokens": int64(md.CandidatesTokenCount),
		"total_tokens":      int64(md.TotalTokenCount),
	}, true
}

func fromMap(m map[string]any) (string, map[string]any, bool) {
	model, ok := m["model"].(string)
	if !ok || model == "" {
		return "", nil, false
	}
	usage, ok := asMap(m["usage"])
	if !ok {
		return "", nil, false
	}
	return model, usage, true
}

func fromStruct(v reflect.Value) (string, map[string]any, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", nil, false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", nil, false
	}
	mf := v.FieldByName("Model")
	uf := v.FieldByName("Usage")
	if !mf.IsValid() || !uf.IsValid() || mf.Kind() != reflect.String || !mf.CanInterface() || !uf.CanInterface() {
		return "", nil, false
	}
	model := mf.String()
	if model == "" {
		return "", nil, false
	}
	usage, ok := asMap(uf.Interface())
	if !ok {
		return "", nil, false
	}
	return model, usage, true
}

// asMap converts a usage value to a map, going through JSON for structs.
func asMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	if v == nil {
		return nil, false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// Tokens reports the input and output token counts of a usage map, whatever
// provider vocabulary it uses.
func Tokens(usage map[string]any) (input, output int64) {
	input = firstInt(usage, "input_tokens", "prompt_tokens")
	output = firstInt(usage, "output_tokens", "completion_tokens")
	return input, output
}

func firstInt(m map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch n := m[k].(type) {
		case int:
			return int64(n)
		case int32:
			return int64(n)
		case int64:
			return n
		case float64:
			return int64(n)
		}
	}
	return 0
}
