/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package weave

import (
	"context"
	"fmt"
)

// Pending is the result of an op started with Go.
type Pending[Out any] struct {
	call *Call
	done chan struct{}
	out  Out
	err  error
}

// Go starts the op in a new goroutine. The call is created before Go
// returns, so it is already the child of the current call, and it is
// finished only once the function has returned.
func (o *Op[In, Out]) Go(ctx context.Context, in In, opts ...CallOption) *Pending[Out] {
	p := &Pending[Out]{done: make(chan struct{})}
	inner, call, err := o.begin(ctx, o, inputsOf(o.sig, in), opts)
	if err != nil {
		p.err = err
		close(p.done)
		return p
	}
	p.call = call

	go func() {
		defer close(p.done)
		defer func() {
			if r := recover(); r != nil {
				p.err = fmt.Errorf("op %s panicked: %v", o.name, r)
				_ = o.end(inner, call, nil, p.err)
			}
		}()
		out, fnErr := o.fn(inner, in)
		if err := o.end(inner, call, out, fnErr); err != nil {
			p.err = err
			return
		}
		p.out = out
	}()
	return p
}

// Call returns the call recorded for the invocation, or nil.
func (p *Pending[Out]) Call() *Call { return p.call }

// Done is closed once the op has finished.
func (p *Pending[Out]) Done() <-chan struct{} { return p.done }

// Wait blocks until the op finishes and returns its result.
func (p *Pending[Out]) Wait() (Out, error) {
	<-p.done
	return p.out, p.err
}

// WaitContext is Wait that gives up when ctx is done. The op keeps running.
func (p *Pending[Out]) WaitContext(ctx context.Context) (Out, error) {
	select {
	case <-p.done:
		return p.out, p.err
	case <-ctx.Done():
		var zero Out
		return zero, ctx.Err()
	}
}
