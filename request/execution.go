// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"net/http"
	urlpkg "net/url"
	"time"

	"github.com/gogama/fetchx/failure"
)

// An Execution represents the state of a single Request dispatch.
//
// When a Request is dispatched, an Execution is created for it. The
// Execution is updated as the dispatch progresses (for example when a
// redirect is followed, or when the response headers arrive) and is
// ultimately returned as the result of the dispatch.
//
// Redirect and timeout policies and event handlers may set values on
// an Execution using its SetValue method and read them back using the
// Value method. However, they should treat the structure's exported
// field values as immutable, as the execution state is vital to the
// correct functioning of the dispatcher. Limited exceptions to this
// rule include making reasonable changes to HTTPRequest before it is
// sent, for example to sign it.
type Execution struct {
	// ID is a unique identifier for the execution, used to correlate
	// log lines. It is assigned when the execution starts.
	ID string

	// Request is the logical request of the current hop. On the first
	// hop it is the Request the caller dispatched; after a redirect it
	// is a copy derived for the redirect target. It is never nil.
	Request *Request

	// Start is the start time of the execution. It is assigned a
	// non-zero value when the execution starts, and this value remains
	// constant thereafter.
	Start time.Time

	// End is the end time of the execution. It contains the zero value
	// until the execution ends, when it is set to the current time.
	End time.Time

	// Hop is the zero-based number of the current hop. It is zero on
	// the initial request, one after the first redirect, and so on.
	Hop int

	// URLs is the redirect chain: the URL of every hop made so far,
	// in order. The last element is the URL of the current hop.
	URLs []*urlpkg.URL

	// HTTPRequest is the wire request of the current hop.
	HTTPRequest *http.Request

	// Response is the HTTP response received on the most recent hop.
	// It is nil if the most recent hop ended in an error, or if a hop
	// is underway, or before the execution starts.
	Response *http.Response

	// Err is the error that ended the execution, or the error of the
	// most recent hop while the execution is in flight.
	//
	// Whenever Err is non-nil, it has the type *failure.Error.
	Err error

	// Body is the complete response body. It is only filled in by the
	// synchronous bridge, which drains the body before returning; an
	// asynchronous dispatch leaves the body on Response for lazy
	// reading.
	Body []byte

	// data contains arbitrary user data. The fetchx library will not
	// touch it.
	data context.Context
}

// StatusCode returns the status code of the HTTP response from the
// most recent hop. If there is no HTTP response, 0 is returned.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the HTTP response headers from the most recent hop.
// If there is no HTTP response, the nil header is returned.
//
// Note that a nil return value is always safe for read-only operations,
// since http.Header is a map type.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		var nilHeader http.Header
		return nilHeader
	}

	return e.Response.Header
}

// Duration returns the duration of the execution.
//
// If the execution has not yet started, the duration is zero. If the
// execution has Ended, the duration returned is equal to End minus
// Start. Otherwise, it is equal to the current time minus Start.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Now().Sub(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the execution has ended. Once it has, there
// will be no further changes to the execution.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Timeout indicates whether Err currently contains a timeout.
func (e *Execution) Timeout() bool {
	return failure.Categorize(e.Err) == failure.Timeout
}

// Kind returns the failure kind of Err, which is failure.None if Err
// is nil.
func (e *Execution) Kind() failure.Kind {
	return failure.Categorize(e.Err)
}

// Redirected indicates whether at least one redirect was followed.
func (e *Execution) Redirected() bool {
	return e.Hop > 0
}

// FinalURL returns the URL of the most recent hop, or nil if the
// execution has not started.
func (e *Execution) FinalURL() *urlpkg.URL {
	if len(e.URLs) == 0 {
		return nil
	}
	return e.URLs[len(e.URLs)-1]
}

// SetValue allows event handlers to store arbitrary data in the
// execution.
//
// The key must follow the same rules as the key parameter in
// context.WithValue, namely it:
//
// • it may not be nil;
//
// • it must be comparable;
//
// • it should not be of type string or any other built-in type to avoid
// collisions between different event handlers putting data into the
// same execution.
func (e *Execution) SetValue(key, value interface{}) {
	ctx := e.data
	if ctx == nil {
		ctx = context.Background()
	}

	e.data = context.WithValue(ctx, key, value)
}

// Value returns the data value associated with this execution for key,
// or nil if there is no value associated with key.
func (e *Execution) Value(key interface{}) interface{} {
	ctx := e.data
	if ctx == nil {
		return nil
	}

	return ctx.Value(key)
}
