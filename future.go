// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/gogama/fetchx/loop"
)

const (
	pending int32 = iota
	settled
	aborted
)

var errNotSettled = errors.New("fetchx: loop went idle before the future settled")

// A Future is the eventual outcome of a fetch: a Response once the
// response headers have arrived, or an error.
//
// A Future is settled by a loop task, and its callbacks run on the
// loop goroutine.
type Future struct {
	loop   *loop.Loop
	state  int32
	done   bool
	resp   *Response
	err    error
	then   []func(*Response, error)
	cancel context.CancelFunc

	// unlisten unregisters the future from its abort signal.
	unlisten func()
}

func newFuture(l *loop.Loop, cancel context.CancelFunc) *Future {
	return &Future{loop: l, cancel: cancel}
}

// Then registers fn to receive the outcome. If the future has already
// settled, fn is queued as a new loop task; otherwise it runs in the
// settling task, after callbacks registered before it. If the loop has
// been closed, fn is never called.
func (f *Future) Then(fn func(*Response, error)) {
	if f.done {
		resp, err := f.resp, f.err
		_ = f.loop.Submit(func() { fn(resp, err) })
		return
	}
	f.then = append(f.then, fn)
}

// Done reports whether the future has settled.
func (f *Future) Done() bool {
	return f.done
}

// Result returns the outcome of a settled future. Both return values
// are nil while the future is pending.
func (f *Future) Result() (*Response, error) {
	return f.resp, f.err
}

// Await runs the loop until it is idle and returns the outcome. It
// must not be called from inside a loop task.
func (f *Future) Await(ctx context.Context) (*Response, error) {
	if err := f.loop.Run(ctx); err != nil {
		return nil, err
	}
	if !f.done {
		return nil, errNotSettled
	}
	return f.resp, f.err
}

// deliver is called on the loop with the dispatch outcome. It reports
// false if the future was aborted first, in which case the caller owns
// resp.
func (f *Future) deliver(resp *Response, err error) bool {
	if !atomic.CompareAndSwapInt32(&f.state, pending, settled) {
		return false
	}
	if err != nil {
		f.cancel()
	}
	f.settle(resp, err)
	return true
}

// reject settles a pending future with err as a new loop task.
func (f *Future) reject(err error) {
	if atomic.CompareAndSwapInt32(&f.state, pending, settled) {
		f.cancel()
		_ = f.loop.Submit(func() { f.settle(nil, err) })
	}
}

// abort rejects a pending future with reason. If the future already
// resolved, the response body is cut off instead.
func (f *Future) abort(reason error) {
	if atomic.CompareAndSwapInt32(&f.state, pending, aborted) {
		f.cancel()
		_ = f.loop.Submit(func() { f.settle(nil, reason) })
		return
	}
	if f.resp != nil {
		f.resp.abort(reason)
	}
	f.cancel()
}

func (f *Future) settle(resp *Response, err error) {
	f.done = true
	f.resp, f.err = resp, err
	// A resolved future stays subscribed while its body can still be
	// cut off.
	if resp != nil {
		resp.mu.Lock()
		resp.release = f.unlisten
		resp.mu.Unlock()
	} else if f.unlisten != nil {
		f.unlisten()
	}
	f.unlisten = nil
	then := f.then
	f.then = nil
	for _, fn := range then {
		fn(resp, err)
	}
}
