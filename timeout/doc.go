// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout defines policies for setting the timeout of an
// asynchronous dispatch. A generic interface for timeout policies is
// provided, Policy, along with several useful policy generating
// functions and built-in policies.
//
// A per-request timeout, such as XMLHttpRequest's timeout property,
// takes precedence over the client's policy.
package timeout
