// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package redirect provides policies bounding how many redirects a
// dispatch follows, and the HTTP rules for rewriting a request when a
// redirect is followed.
//
// A Policy is consulted with the current execution state after every
// redirect response, before the next hop is made. If it returns false,
// the dispatch fails with a RedirectLoop failure. Policies compose:
//
//	policy := redirect.Hops(5).And(redirect.Before(10 * time.Second))
//
// DefaultPolicy allows DefaultHops redirects, the limit browsers use.
package redirect
