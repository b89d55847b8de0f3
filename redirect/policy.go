// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package redirect

import (
	"net/url"
	"time"

	"github.com/gogama/fetchx/origin"
	"github.com/gogama/fetchx/request"
)

// A Policy decides whether a redirect should be followed.
//
// Decide is called after a redirect response has been received on hop
// e.Hop, with e.Response set to that response. The execution's hop
// count has not yet been incremented.
//
// Implementations of Policy must be safe for concurrent use by
// multiple goroutines.
//
// Use the built-in constructors Hops and Before, and the built-in
// policy SameOrigin; or implement your own Policy. Use PolicyFunc to
// convert an ordinary function into a Policy, and to compose policies
// logically using PolicyFunc.And and PolicyFunc.Or.
type Policy interface {
	Decide(e *request.Execution) bool
}

// The PolicyFunc type is an adapter to allow the use of ordinary
// functions as redirect policies. It implements the Policy interface,
// and also provides the logical composition methods And and Or.
type PolicyFunc func(e *request.Execution) bool

// DefaultHops is the number of redirects DefaultPolicy follows.
const DefaultHops = 20

// DefaultPolicy follows up to DefaultHops redirects.
var DefaultPolicy Policy = Hops(DefaultHops)

// Never is a policy that follows no redirects at all. Every redirect
// response fails the dispatch.
var Never Policy = Hops(0)

// SameOrigin is a policy that only follows redirects whose target has
// the same origin as the URL of the first hop.
var SameOrigin PolicyFunc = sameOrigin

// Decide returns true if the redirect should be followed.
func (f PolicyFunc) Decide(e *request.Execution) bool {
	return f(e)
}

// And composes two policies into a new policy which returns true if
// both sub-policies return true, and false otherwise.
//
// Short-circuit logic is used, so g will not be evaluated if f returns
// false.
func (f PolicyFunc) And(g PolicyFunc) PolicyFunc {
	return func(e *request.Execution) bool {
		return f(e) && g(e)
	}
}

// Or composes two policies into a new policy which returns true if
// either of the two sub-policies returns true, but false if they both
// return false.
//
// Short-circuit logic is used, so g will not be evaluated if f returns
// true.
func (f PolicyFunc) Or(g PolicyFunc) PolicyFunc {
	return func(e *request.Execution) bool {
		return f(e) || g(e)
	}
}

// Hops constructs a policy which allows up to n redirects. The
// returned policy returns true while the hop index e.Hop is less than
// n, and false otherwise.
func Hops(n int) PolicyFunc {
	return func(e *request.Execution) bool {
		return e.Hop < n
	}
}

// Before constructs a policy which allows redirects until a certain
// amount of time has elapsed since the start of the execution.
func Before(d time.Duration) PolicyFunc {
	return func(e *request.Execution) bool {
		return e.Duration() < d
	}
}

// Target returns the URL the redirect response of the current hop
// points to, resolved against the current hop's URL. It returns false
// if the execution has no redirect response with a usable Location.
func Target(e *request.Execution) (*url.URL, bool) {
	if e.Response == nil || !IsRedirect(e.Response.StatusCode) {
		return nil, false
	}
	loc := e.Response.Header.Get("Location")
	if loc == "" {
		return nil, false
	}
	u, err := url.Parse(loc)
	if err != nil {
		return nil, false
	}
	if base := e.FinalURL(); base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, false
	}
	return u, true
}

func sameOrigin(e *request.Execution) bool {
	if len(e.URLs) == 0 {
		return false
	}
	target, ok := Target(e)
	return ok && origin.SameURL(e.URLs[0], target)
}
