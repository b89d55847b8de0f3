// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogama/fetchx/body"
	"github.com/gogama/fetchx/header"
	"github.com/gogama/fetchx/origin"
	"github.com/gogama/fetchx/request"
)

var errAborted = errors.New("the operation was aborted")

// Init holds the optional parameters of a fetch. The zero value
// describes a GET with same-origin credentials which follows
// redirects.
type Init struct {
	// Method is the request method. An empty string means GET.
	Method string
	// Header holds request headers. Forbidden header names are
	// silently dropped.
	Header *header.Header
	// Body is the request body, of any type supported by body.From.
	// A GET or HEAD request may not have a body.
	Body interface{}
	// Credentials decides whether forwardable headers such as
	// Authorization are sent cross-origin.
	Credentials origin.Credentials
	// Redirect says how redirects are handled.
	Redirect request.RedirectMode
	// Signal, if not nil, aborts the fetch.
	Signal *AbortSignal
}

// Fetch starts a fetch of rawURL, resolved against BaseURL, and returns
// a Future for its Response. Fetch never blocks and never fails
// directly: invalid arguments reject the future.
//
// The future resolves once the response headers arrive; the body is
// left unread. Any HTTP status, including 4XX and 5XX, resolves the
// future. Network failures, aborts, timeouts and redirect loops reject
// it with a *failure.Error.
//
// Fetch must be called from the loop goroutine.
func (c *Client) Fetch(rawURL string, init *Init) *Future {
	if init == nil {
		init = &Init{}
	}
	l := c.Loop()
	ctx, cancel := context.WithCancel(context.Background())
	f := newFuture(l, cancel)

	r, err := c.newFetchRequest(ctx, rawURL, init)
	if err != nil {
		f.reject(err)
		return f
	}

	if init.Signal != nil {
		f.unlisten = init.Signal.OnAbort(f.abort)
		if init.Signal.Aborted() {
			return f
		}
	}

	c.DoAsync(r, func(e *request.Execution, err error) {
		var resp *Response
		if err == nil {
			resp = newResponse(e, c.ContentTypeCharset, l)
		}
		if !f.deliver(resp, err) && resp != nil {
			_ = resp.Close()
		}
	})
	return f
}

func (c *Client) newFetchRequest(ctx context.Context, rawURL string, init *Init) (*request.Request, error) {
	r, err := request.NewWithContext(ctx, init.Method, rawURL, c.BaseURL)
	if err != nil {
		return nil, err
	}
	for _, f := range init.Header.Entries() {
		if header.Forbidden(f.Name) {
			continue
		}
		if err = r.Header.Append(f.Name, f.Value); err != nil {
			return nil, err
		}
	}
	v, err := body.From(init.Body)
	if err != nil {
		return nil, err
	}
	if !v.Empty() {
		if request.NullBodyMethod(r.Method) {
			return nil, fmt.Errorf("fetchx: request with %s method cannot have body", r.Method)
		}
		enc, err := c.encoder().Encode(v)
		if err != nil {
			return nil, err
		}
		r.SetBody(enc)
	}
	r.Credentials = init.Credentials
	r.Redirect = init.Redirect
	return r, nil
}
