// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package failure

import (
	"context"
	"errors"
	"strconv"
)

// A Kind is the category of a request failure, as reported by function
// Categorize().
type Kind int

const (
	// None indicates no failure. Categorize returns None only for a
	// nil error.
	None Kind = iota
	// InvalidState indicates an API method was called outside the
	// state in which it is legal, for example sending an
	// XMLHttpRequest that was never opened.
	InvalidState
	// Network indicates the request could not be completed because of
	// a connection or protocol failure: refused or reset connections,
	// DNS failures, malformed responses, and so on. A Network failure
	// never carries a partial response.
	//
	// Function Categorize() returns Network for any non-nil error that
	// does not fall into one of the more specific kinds.
	Network
	// Timeout indicates a caller-supplied timeout elapsed before the
	// request completed.
	//
	// Function Categorize() returns Timeout if the error is, or wraps,
	// context.DeadlineExceeded, or if the error or any of its wrapped
	// causes has a Timeout() function that reports true.
	Timeout
	// Abort indicates the caller aborted the request.
	//
	// Function Categorize() returns Abort if the error is, or wraps,
	// context.Canceled.
	Abort
	// RedirectLoop indicates the redirect hop bound was exceeded.
	RedirectLoop
	// BodyConsumed indicates an attempt to read a response body that
	// was already read.
	BodyConsumed
)

var kindNames = [...]string{
	None:         "None",
	InvalidState: "InvalidStateError",
	Network:      "NetworkError",
	Timeout:      "TimeoutError",
	Abort:        "AbortError",
	RedirectLoop: "RedirectLoopError",
	BodyConsumed: "BodyConsumedError",
}

// String returns the DOM-style name of the kind, for example
// "AbortError".
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Error lets a bare Kind be used as an error and as an errors.Is
// target.
func (k Kind) Error() string {
	return k.String()
}

// An Error records a request failure together with the operation and
// URL that caused it. It is shaped like *url.Error, with the addition
// of the failure Kind.
type Error struct {
	Kind Kind
	Op   string
	URL  string
	Err  error
}

// New constructs an Error of the given kind.
func New(kind Kind, op, url string, err error) *Error {
	return &Error{Kind: kind, Op: op, URL: url, Err: err}
}

// Wrap constructs an Error whose kind is determined by calling
// Categorize on err. If err is nil, Wrap returns nil. If err is
// already an *Error, it is returned unchanged.
func Wrap(op, url string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return New(Categorize(err), op, url, err)
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.URL != "" {
		msg += " " + strconv.Quote(e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure is a Timeout.
func (e *Error) Timeout() bool {
	return e.Kind == Timeout
}

// Is reports whether target is the Kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Categorize returns the failure kind of the given error. A nil error
// produces None; any other error produces some other kind, with
// Network as the fallback.
//
// In assessing the kind, Categorize looks at wrapped cause errors
// contained within err, not just err itself.
func Categorize(err error) Kind {
	if err == nil {
		return None
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	var k Kind
	if errors.As(err, &k) {
		return k
	}

	if errors.Is(err, context.Canceled) {
		return Abort
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}

	return Network
}

type hasTimeout interface {
	Timeout() bool
}
