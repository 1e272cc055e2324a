/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/wandb/weave-sub006/weave/schema"
)

// Runnable is an op that can be invoked with named arguments. Scorers and
// evaluation models are Runnables.
type Runnable interface {
	// Name is the op's object name.
	Name() string
	// Signature describes the named parameters Invoke accepts.
	Signature() schema.Signature
	// Definition is the JSON-safe description stored as the op's version.
	Definition() map[string]any
	// Invoke binds args to the op's parameters and calls it.
	Invoke(ctx context.Context, args map[string]any) (any, *Call, error)
}

// Func is the function wrapped by an Op.
type Func[In, Out any] func(ctx context.Context, in In) (Out, error)

// OpOption configures an op.
type OpOption func(*opConfig)

type opConfig struct {
	displayName func(inputs map[string]any) string
	postInputs  func(inputs map[string]any) map[string]any
	postOutput  func(output any) any
	sampleRate  float64
	callOpts    []CallOption
}

// WithCallDisplayName gives every call of the op a fixed display name.
func WithCallDisplayName(name string) OpOption {
	return func(cfg *opConfig) {
		cfg.displayName = func(map[string]any) string { return name }
	}
}

// WithCallDisplayNameFunc derives each call's display name from its inputs.
func WithCallDisplayNameFunc(f func(inputs map[string]any) string) OpOption {
	return func(cfg *opConfig) {
		cfg.displayName = f
	}
}

// WithPostprocessInputs changes the inputs recorded for each call. The
// function still receives the original input.
func WithPostprocessInputs(f func(inputs map[string]any) map[string]any) OpOption {
	return func(cfg *opConfig) {
		cfg.postInputs = f
	}
}

// WithPostprocessOutput changes the output recorded for each call. The
// caller still receives the original output.
func WithPostprocessOutput(f func(output any) any) OpOption {
	return func(cfg *opConfig) {
		cfg.postOutput = f
	}
}

// WithTracingSampleRate records only a fraction of the op's root calls. A
// root call that is not sampled runs with tracing disabled for its whole
// subtree. Calls made under a recorded parent are always recorded.
func WithTracingSampleRate(rate float64) OpOption {
	return func(cfg *opConfig) {
		cfg.sampleRate = min(max(rate, 0), 1)
	}
}

// WithCallOptions applies call options to every call of the op.
func WithCallOptions(opts ...CallOption) OpOption {
	return func(cfg *opConfig) {
		cfg.callOpts = append(cfg.callOpts, opts...)
	}
}

// opCore is the part of an op shared by the plain and streaming variants.
type opCore struct {
	name     string
	funcName string
	file     string
	sig      schema.Signature
	cfg      opConfig
}

func newOpCore(name string, fn any, in reflect.Type, opts []OpOption) opCore {
	core := opCore{cfg: opConfig{sampleRate: 1}, sig: schema.SignatureFor(in)}
	for _, opt := range opts {
		opt(&core.cfg)
	}
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		core.funcName = f.Name()
		file, line := f.FileLine(f.Entry())
		core.file = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	if name == "" {
		name = core.funcName[strings.LastIndexByte(core.funcName, '.')+1:]
	}
	core.name = name
	return core
}

// Name implements Runnable.
func (o *opCore) Name() string { return o.name }

// Signature implements Runnable.
func (o *opCore) Signature() schema.Signature { return o.sig }

// Definition implements Runnable.
func (o *opCore) Definition() map[string]any {
	def := map[string]any{
		"name": o.name,
		"func": o.funcName,
		"file": o.file,
	}
	if o.sig.Schema != nil {
		def["input_schema"] = o.sig.Schema
	}
	return def
}

func (o *opCore) sampled() bool {
	return o.cfg.sampleRate >= 1 || rand.Float64() < o.cfg.sampleRate
}

// begin starts a call of self unless tracing is off. It returns the context
// to run the function under and the call, which is nil when untraced.
func (o *opCore) begin(ctx context.Context, self Runnable, inputs map[string]any, opts []CallOption) (context.Context, *Call, error) {
	client := ClientFromContext(ctx)
	if !client.enabled(ctx) {
		return ctx, nil, nil
	}
	if CurrentCall(ctx) == nil && !o.sampled() {
		clog.FromContext(ctx).Debug("Call not sampled, tracing disabled for subtree", "op", o.name)
		return withTracingDisabled(ctx), nil, nil
	}

	ref, err := client.SaveOp(ctx, self)
	if err != nil {
		return ctx, nil, err
	}
	if o.cfg.postInputs != nil {
		inputs = o.cfg.postInputs(inputs)
	}
	callOpts := slices.Clone(o.cfg.callOpts)
	if o.cfg.displayName != nil {
		callOpts = append(callOpts, WithDisplayName(o.cfg.displayName(inputs)))
	}
	callOpts = append(callOpts, opts...)
	return client.CreateCall(ctx, ref.URI(), inputs, callOpts...)
}

// end finishes call. The function's own error always wins over a tracing
// error, which is then only logged.
func (o *opCore) end(ctx context.Context, call *Call, output any, fnErr error) error {
	if call == nil {
		return fnErr
	}
	switch {
	case fnErr != nil:
		output = nil
	case o.cfg.postOutput != nil:
		output = o.cfg.postOutput(output)
	}
	_, err := call.client.FinishCall(ctx, call, output, fnErr)
	if fnErr != nil {
		if err != nil {
			clog.FromContext(ctx).Warn("Failed to finish call", "op", o.name, "call", call.ID, "error", err)
		}
		return fnErr
	}
	return err
}

// finishOnPanic records a panic as the call's exception and re-panics.
func (o *opCore) finishOnPanic(ctx context.Context, call *Call) {
	if call == nil {
		return
	}
	if r := recover(); r != nil {
		_ = o.end(ctx, call, nil, fmt.Errorf("panic: %v", r))
		panic(r)
	}
}

// Op is a function whose invocations are recorded as calls.
//
// Without a client in the context, or with tracing disabled, an op simply
// calls its function. Otherwise each invocation publishes the op's
// definition on first use, creates a call whose parent is the current call
// of the context, runs the function with the new call as the current call
// and finishes the call with the function's output or error.
type Op[In, Out any] struct {
	opCore
	fn Func[In, Out]
}

var _ Runnable = (*Op[any, any])(nil)

// NewOp wraps fn as an op. An empty name uses the function's name.
func NewOp[In, Out any](name string, fn Func[In, Out], opts ...OpOption) *Op[In, Out] {
	return &Op[In, Out]{
		opCore: newOpCore(name, fn, reflect.TypeFor[In](), opts),
		fn:     fn,
	}
}

// Run calls the op and returns its output, or the function's own error
// unchanged.
func (o *Op[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	out, _, err := o.Call(ctx, in)
	return out, err
}

// Call calls the op and also returns the recorded call, which is nil when
// nothing was traced. When the function fails its error is returned
// unchanged and the call carries it as its exception.
func (o *Op[In, Out]) Call(ctx context.Context, in In, opts ...CallOption) (out Out, call *Call, err error) {
	inner, call, err := o.begin(ctx, o, inputsOf(o.sig, in), opts)
	if err != nil {
		return out, nil, err
	}
	defer o.finishOnPanic(inner, call)

	out, fnErr := o.fn(inner, in)
	if err := o.end(inner, call, out, fnErr); err != nil {
		if fnErr != nil {
			var zero Out
			return zero, call, err
		}
		return out, call, err
	}
	return out, call, nil
}

// Bind converts named arguments to the op's input type.
func (o *Op[In, Out]) Bind(args map[string]any) (In, error) {
	return bindArgs[In](o.name, o.sig, args)
}

// Invoke implements Runnable.
func (o *Op[In, Out]) Invoke(ctx context.Context, args map[string]any) (any, *Call, error) {
	in, err := o.Bind(args)
	if err != nil {
		return nil, nil, err
	}
	out, call, err := o.Call(ctx, in)
	return out, call, err
}
