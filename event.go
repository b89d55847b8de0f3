// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Client to observe or adjust
// dispatches, for example to sign requests or to record metrics.
type Event int

const (
	// BeforeExecutionStart identifies the event that occurs before the
	// dispatch starts.
	//
	// When Client fires BeforeExecutionStart, the execution is
	// non-nil but the only fields that have been set are its ID and
	// the logical request.
	BeforeExecutionStart Event = iota
	// BeforeHop identifies the event that occurs before each hop of
	// the dispatch: the initial request and every followed redirect.
	//
	// When Client fires BeforeHop, the execution's HTTPRequest field
	// is set to the wire request that WILL BE sent after all BeforeHop
	// handlers have finished. Handlers may modify it.
	BeforeHop
	// AfterHop identifies the event that occurs after a hop has
	// produced a response or an error.
	//
	// When Client fires AfterHop, exactly one of the execution's
	// Response and Err fields is non-nil. If a response was received,
	// its body has not been read.
	AfterHop
	// AfterTimeout identifies the event that occurs after the dispatch
	// failed because its timeout elapsed.
	AfterTimeout
	// AfterExecutionEnd identifies the event that occurs after the
	// dispatch ends.
	//
	// When Client fires AfterExecutionEnd, the execution is in its
	// final state. Its End time is set, and exactly one of Response
	// and Err is non-nil.
	AfterExecutionEnd
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel
	// numEvents provides the total number of events types as an int.
	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecutionStart",
	"BeforeHop",
	"AfterHop",
	"AfterTimeout",
	"AfterExecutionEnd",
}

// Events returns a slice containing all events which can occur in a
// dispatch, in the order in which they would occur.
func Events() []Event {
	return []Event{
		BeforeExecutionStart,
		BeforeHop,
		AfterHop,
		AfterTimeout,
		AfterExecutionEnd,
	}
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[int(evt)]
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
