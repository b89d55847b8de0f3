// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"sync"

	"github.com/gogama/fetchx/request"
)

// A HandlerGroup holds one handler chain per Event and can be
// installed in a Client. The zero value is an empty group.
//
// Handlers run on the goroutine doing the dispatch, which for an
// asynchronous dispatch is not the loop goroutine. A group may be
// extended while dispatches are in flight; a dispatch sees the chain
// as it was when the event fired.
type HandlerGroup struct {
	mu     sync.RWMutex
	chains [numEvents][]Handler
}

// PushBack appends h to the chain for evt. It panics if h is nil or
// evt is not a known Event.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("fetchx: nil handler")
	}
	if evt < 0 || evt >= eventSentinel {
		panic("fetchx: unknown event")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	// Full slice expression so that a chain snapshot taken by run is
	// never appended to in place.
	chain := g.chains[evt]
	g.chains[evt] = append(chain[:len(chain):len(chain)], h)
}

// Len returns the length of the chain for evt.
func (g *HandlerGroup) Len(evt Event) int {
	if evt < 0 || evt >= eventSentinel {
		return 0
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.chains[evt])
}

func (g *HandlerGroup) run(evt Event, e *request.Execution) {
	g.mu.RLock()
	chain := g.chains[evt]
	g.mu.RUnlock()
	for _, h := range chain {
		h.Handle(evt, e)
	}
}

// A Handler observes or adjusts a dispatch when an event occurs.
type Handler interface {
	Handle(Event, *request.Execution)
}

// HandlerFunc lets an ordinary function be used as a Handler.
type HandlerFunc func(Event, *request.Execution)

// Handle calls f(evt, e).
func (f HandlerFunc) Handle(evt Event, e *request.Execution) {
	f(evt, e)
}
