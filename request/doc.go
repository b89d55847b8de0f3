// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core types Request (describes a logical
HTTP request issued by fetch or XMLHttpRequest) and Execution
(describes the dispatch of a Request).

A Request looks like a stripped-down http.Request. Its URL is always
absolute, since relative input is resolved against the document's base
URL when the Request is constructed, and its body is a pre-encoded
[]byte produced by package body:

	r, err := request.New("POST", "/upload", base)
	...
	enc, err := new(body.Encoder).Encode(body.TextValue("hello"))
	...
	r.SetBody(enc)

A Request may be assigned a context, which aborts the dispatch when
cancelled:

	r, err := request.NewWithContext(ctx, "GET", "https://example.com", nil)

The second core type is Execution, which represents the state of a
dispatch: the redirect chain followed so far, the current hop's wire
request, and eventually the response or error. Execution is both the
output type of the client's dispatching methods and the input type for
callbacks invoked during dispatch: timeout policies, redirect policies,
and event handlers.
*/
package request
