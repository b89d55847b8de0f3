// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package failure defines the error taxonomy shared by fetch and
// XMLHttpRequest, and classifies raw transport errors into it.
//
// Every Kind is itself an error, so callers can test the outcome of a
// request with errors.Is:
//
//	if errors.Is(err, failure.Abort) {
//		// The caller aborted the request.
//	}
//
// InvalidState and BodyConsumed are programming errors and are always
// returned synchronously. The remaining kinds describe the outcome of
// a dispatched request and are delivered asynchronously, through a
// rejected future or an XMLHttpRequest event.
package failure
