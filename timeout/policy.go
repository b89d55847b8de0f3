// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/fetchx/request"
)

// A Policy defines a timeout policy which may be plugged into the
// client (fetchx.Client) to direct how long an asynchronous dispatch
// may run before it fails with a Timeout failure.
//
// The timeout covers the whole dispatch, including every redirect hop
// and reading the response headers. Synchronous dispatches never time
// out, whatever the policy says.
//
// Implementations of Policy must be safe for concurrent use by multiple
// goroutines.
type Policy interface {
	// Timeout returns the timeout to set on the execution.
	//
	// Parameter e contains the execution state at the moment the
	// dispatch starts. A zero or negative return value means no
	// timeout.
	Timeout(e *request.Execution) time.Duration
}

// Infinite is a built-in timeout policy which never times out.
var Infinite Policy = Fixed(0)

// DefaultPolicy is the default timeout policy. Browsers do not time out
// fetch or XMLHttpRequest unless asked to, so it is Infinite.
var DefaultPolicy = Infinite

// Fixed constructs a timeout policy that uses the same value for every
// execution. A zero or negative d means no timeout.
func Fixed(d time.Duration) Policy {
	return fixed(d)
}

// The PolicyFunc type is an adapter to allow the use of ordinary
// functions as timeout policies.
type PolicyFunc func(e *request.Execution) time.Duration

// Timeout returns f(e).
func (f PolicyFunc) Timeout(e *request.Execution) time.Duration {
	return f(e)
}

// ByMethod constructs a timeout policy that looks up the timeout by the
// request method, falling back to def for methods not in m.
func ByMethod(m map[string]time.Duration, def time.Duration) Policy {
	m2 := make(map[string]time.Duration, len(m))
	for k, v := range m {
		m2[k] = v
	}
	return PolicyFunc(func(e *request.Execution) time.Duration {
		if e.Request != nil {
			if d, ok := m2[e.Request.Method]; ok {
				return d
			}
		}
		return def
	})
}

type fixed time.Duration

func (p fixed) Timeout(_ *request.Execution) time.Duration {
	return time.Duration(p)
}
