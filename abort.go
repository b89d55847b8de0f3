// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"sync"

	"github.com/gogama/fetchx/failure"
)

// An AbortController aborts fetches through the AbortSignal it owns.
// The zero value is not usable; construct one with NewAbortController.
type AbortController struct {
	signal *AbortSignal
}

// NewAbortController returns a controller with a fresh, unaborted
// signal.
func NewAbortController() *AbortController {
	return &AbortController{signal: &AbortSignal{handlers: make(map[int]func(error))}}
}

// Signal returns the controller's signal.
func (c *AbortController) Signal() *AbortSignal {
	return c.signal
}

// Abort aborts the signal with reason. A nil reason selects an
// AbortError. Aborting an aborted signal has no effect.
func (c *AbortController) Abort(reason error) {
	c.signal.abort(reason)
}

// An AbortSignal reports abortion to the operations observing it.
type AbortSignal struct {
	mu       sync.Mutex
	aborted  bool
	reason   error
	next     int
	handlers map[int]func(error)
}

// Aborted reports whether the signal has been aborted.
func (s *AbortSignal) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// Reason returns the abort reason, or nil if the signal is not
// aborted.
func (s *AbortSignal) Reason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// OnAbort registers fn to be called with the reason when the signal is
// aborted. If the signal is already aborted, fn is called immediately.
// The returned function unregisters fn.
func (s *AbortSignal) OnAbort(fn func(error)) (remove func()) {
	s.mu.Lock()
	if s.aborted {
		reason := s.reason
		s.mu.Unlock()
		fn(reason)
		return func() {}
	}
	id := s.next
	s.next++
	s.handlers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

func (s *AbortSignal) abort(reason error) {
	if reason == nil {
		reason = failure.New(failure.Abort, "", "", errAborted)
	}
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	s.reason = reason
	handlers := make([]func(error), 0, len(s.handlers))
	for id := 0; id < s.next; id++ {
		if fn, ok := s.handlers[id]; ok {
			handlers = append(handlers, fn)
		}
	}
	s.handlers = nil
	s.mu.Unlock()
	for _, fn := range handlers {
		fn(reason)
	}
}
