// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrReentrant is returned when the loop is asked to run tasks
	// while it is already running them, or while it is blocked.
	ErrReentrant = errors.New("fetchx/loop: loop is already running or blocked")

	// ErrClosed is returned when operations are attempted on a closed
	// loop.
	ErrClosed = errors.New("fetchx/loop: loop is closed")
)

// A Loop is a single-threaded cooperative task queue. The zero value is
// not usable; construct a Loop with New.
//
// Submit, Hold and AfterFunc may be called from any goroutine. Run,
// Tick and Block are meant to be called from the loop goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	holds   int
	running bool
	blocked bool
	closed  bool

	wake   chan struct{}
	logger *zerolog.Logger
}

// An Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used to report recovered task panics.
func WithLogger(logger *zerolog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a new loop.
func New(opts ...Option) *Loop {
	nop := zerolog.Nop()
	l := &Loop{
		wake:   make(chan struct{}, 1),
		logger: &nop,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Submit queues fn to run on the loop.
func (l *Loop) Submit(fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
	return nil
}

// Hold keeps Run from returning until the returned release function is
// called. Calling release more than once has no further effect.
func (l *Loop) Hold() (release func()) {
	l.mu.Lock()
	l.holds++
	l.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.holds--
			l.mu.Unlock()
			l.signal()
		})
	}
}

// AfterFunc runs fn on the loop once d has elapsed, holding the loop
// open meanwhile. The returned stop function cancels the timer and
// reports whether it did so before fn was queued.
func (l *Loop) AfterFunc(d time.Duration, fn func()) (stop func() bool) {
	release := l.Hold()
	var fired int32
	t := time.AfterFunc(d, func() {
		if atomic.CompareAndSwapInt32(&fired, 0, 1) {
			_ = l.Submit(fn)
			release()
		}
	})
	return func() bool {
		if !atomic.CompareAndSwapInt32(&fired, 0, 1) {
			return false
		}
		t.Stop()
		release()
		return true
	}
}

// Run runs tasks until the loop is idle, meaning no task is queued and
// no Hold is outstanding, or until ctx is done or the loop is closed.
//
// Run returns ErrReentrant if it is called while the loop is already
// running or blocked, for example from inside a task.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.leave()

	for {
		if l.runQueued() > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		l.mu.Lock()
		idle := len(l.queue) == 0 && l.holds == 0
		closed := l.closed
		l.mu.Unlock()
		if idle || closed {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Tick runs the tasks queued at the moment of the call, without
// waiting for more, and returns how many ran.
func (l *Loop) Tick() (int, error) {
	if err := l.enter(); err != nil {
		return 0, err
	}
	defer l.leave()
	return l.runQueued(), nil
}

// Block calls fn with the loop blocked. While fn runs, Run and Tick
// return ErrReentrant and submitted tasks stay queued. Block returns
// ErrReentrant without calling fn if the loop is already blocked.
func (l *Loop) Block(fn func()) error {
	l.mu.Lock()
	if l.blocked {
		l.mu.Unlock()
		return ErrReentrant
	}
	l.blocked = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.blocked = false
		l.mu.Unlock()
		l.signal()
	}()
	fn()
	return nil
}

// Blocked reports whether a Block call is in progress.
func (l *Loop) Blocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blocked
}

// Pending returns the number of queued tasks plus outstanding holds.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) + l.holds
}

// Close discards queued tasks and makes further submissions fail with
// ErrClosed. A Run in progress returns after its current task.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.closed = true
	l.queue = nil
	l.mu.Unlock()
	l.signal()
	return nil
}

func (l *Loop) enter() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running || l.blocked {
		return ErrReentrant
	}
	if l.closed {
		return ErrClosed
	}
	l.running = true
	return nil
}

func (l *Loop) leave() {
	l.mu.Lock()
	l.running = false
	l.mu.Unlock()
}

func (l *Loop) runQueued() int {
	l.mu.Lock()
	tasks := l.queue
	l.queue = nil
	l.mu.Unlock()
	for i, fn := range tasks {
		if l.isClosed() {
			return i
		}
		l.safeExecute(fn)
	}
	return len(tasks)
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Loop) safeExecute(fn func()) {
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("fetchx/loop: task panicked")
		}
	}()

	fn()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
