// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"context"
	"errors"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gogama/fetchx/body"
	"github.com/gogama/fetchx/failure"
	"github.com/gogama/fetchx/loop"
	"github.com/gogama/fetchx/origin"
	"github.com/gogama/fetchx/redirect"
	"github.com/gogama/fetchx/request"
	"github.com/gogama/fetchx/timeout"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const acceptEncoding = "gzip, deflate, br"

var emptyHandlers = HandlerGroup{}

var errRedirectMode = errors.New("redirect response received in redirect mode \"error\"")

// A Client dispatches fetch and XMLHttpRequest requests. Its zero value
// is a valid configuration.
//
// The zero value client uses http.DefaultTransport (from net/http) as
// the transport, redirect.DefaultPolicy as the redirect policy,
// timeout.DefaultPolicy as the timeout policy, a private event loop,
// and an empty handler group (no event handlers/plug-ins). It has no
// base URL, so it only accepts absolute URLs and treats every target
// as cross-origin.
//
// Client's Transport typically has an internal state (cached TCP
// connections) so Client instances should be reused instead of created
// as needed. Do, DoAsync and the helper methods are safe for concurrent
// use by multiple goroutines. Fetch, DoSync and everything built on
// them belong to the loop goroutine.
//
// On top of the round trip provided by the Transport, Client adds the
// following features:
//
// • Client resolves relative URLs against BaseURL and applies the
// same-origin credential rule relative to it;
//
// • Client adds browser default headers (Accept, Accept-Encoding, and
// Origin where a browser would send one) and transparently decodes
// gzip, deflate and br response bodies;
//
// • Client follows redirects itself, rewriting the method the way
// browsers do and bounding the hop count with a redirect policy;
//
// • Client sets a timeout on asynchronous dispatches using a
// customizable timeout policy; and
//
// • Client invokes user-provided handler functions at designated
// plug-in points within the dispatch.
type Client struct {
	// BaseURL is the URL of the hosting document. Relative request
	// URLs are resolved against it, and its origin is the origin the
	// same-origin guard compares targets with.
	//
	// If BaseURL is nil, only absolute URLs can be dispatched and
	// every target is cross-origin.
	BaseURL *url.URL
	// Transport specifies the mechanics of sending a single HTTP
	// request and receiving its response. It must not follow
	// redirects itself.
	//
	// If Transport is nil, http.DefaultTransport from the standard
	// net/http package is used.
	Transport http.RoundTripper
	// EventLoop is the loop on which asynchronous results are
	// delivered.
	//
	// If EventLoop is nil, the client creates a private loop on first
	// use. Use Loop to get hold of it.
	EventLoop *loop.Loop
	// RedirectPolicy decides whether to follow each redirect.
	//
	// If RedirectPolicy is nil, redirect.DefaultPolicy is used.
	RedirectPolicy redirect.Policy
	// TimeoutPolicy specifies how to set timeouts on asynchronous
	// dispatches.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Encoder encodes request bodies.
	//
	// If Encoder is nil, a zero value body.Encoder is used.
	Encoder *body.Encoder
	// ContentTypeCharset, if not empty, is appended as a charset
	// parameter to textual response Content-Type headers that have
	// none. For example with "utf-8", a response typed
	// application/json is reported as
	// "application/json; charset=utf-8".
	ContentTypeCharset string
	// UserAgent, if not empty, is sent as the User-Agent header of
	// requests which do not set one.
	UserAgent string
	// Forwardable names the headers which are only sent same-origin.
	//
	// If Forwardable is nil, origin.DefaultForwardable is used.
	Forwardable []string
	// Logger receives debug events for every hop and redirect.
	//
	// If Logger is nil, nothing is logged.
	Logger *zerolog.Logger
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during a dispatch.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup

	loopOnce    sync.Once
	privateLoop *loop.Loop
}

// Loop returns the client's event loop.
func (c *Client) Loop() *loop.Loop {
	if c.EventLoop != nil {
		return c.EventLoop
	}
	c.loopOnce.Do(func() {
		c.privateLoop = loop.New(loop.WithLogger(c.Logger))
	})
	return c.privateLoop
}

// NewRequest constructs a request resolved against the client's base
// URL.
func (c *Client) NewRequest(method, rawURL string) (*request.Request, error) {
	return request.New(method, rawURL, c.BaseURL)
}

// Do dispatches a request on the calling goroutine and returns the
// final execution state, following the redirect and timeout policy set
// on Client.
//
// The returned Execution is never nil. On success its Response is
// non-nil and the response body is left unread: the caller must read
// and close it. On failure Response is nil, and the Err field of the
// Execution references the same error that is returned.
//
// Any returned error will be of type *failure.Error. Its kind is
// Network for transport failures, Abort if the request context was
// cancelled, Timeout if the timeout elapsed or the request context's
// deadline was exceeded, and RedirectLoop if the redirect policy
// refused a redirect. A non-2XX status code does not result in an
// error.
//
// For simple use cases, the Get, Head, Post, and PostForm methods may
// prove easier to use than Do.
func (c *Client) Do(r *request.Request) (*request.Execution, error) {
	e := &request.Execution{
		ID:      uuid.NewString(),
		Request: r,
	}

	handlers := c.Handlers
	if handlers == nil {
		handlers = &emptyHandlers
	}
	logger := c.logger().With().Str("request_id", e.ID).Logger()

	handlers.run(BeforeExecutionStart, e)
	e.Start = time.Now()

	ctx, cancel := r.Context(), context.CancelFunc(func() {})
	if r.Mode == request.Async {
		if d := c.timeoutPolicy().Timeout(e); d > 0 {
			ctx, cancel = context.WithTimeout(ctx, d)
		}
	}

	c.dispatch(ctx, e, handlers, &logger)

	if e.Err != nil {
		cancel()
		if e.Timeout() {
			handlers.run(AfterTimeout, e)
		}
		logger.Debug().Err(e.Err).Dur("duration", e.Duration()).Msg("fetchx: execution failed")
	} else {
		e.Response.Body = &cancelBody{ReadCloser: e.Response.Body, cancel: cancel}
	}

	e.End = time.Now()
	handlers.run(AfterExecutionEnd, e)
	return e, e.Err
}

// DoAsync dispatches a request on a new goroutine and delivers the
// outcome to fn as a task on the client's loop. The loop is held open
// until fn has been queued.
//
// If the loop is closed before the outcome is ready, fn is never
// called and any response body is closed.
func (c *Client) DoAsync(r *request.Request, fn func(*request.Execution, error)) {
	l := c.Loop()
	release := l.Hold()
	go func() {
		defer release()
		e, err := c.Do(r)
		if l.Submit(func() { fn(e, err) }) != nil && e.Response != nil {
			_ = e.Response.Body.Close()
		}
	}()
}

func (c *Client) dispatch(ctx context.Context, e *request.Execution, handlers *HandlerGroup, logger *zerolog.Logger) {
	guard := c.guard()
	hop := e.Request.Clone()
	negotiated := c.prepare(hop)
	if stripped := guard.Apply(hop.URL, hop.Header, hop.Credentials); len(stripped) > 0 {
		logger.Debug().Strs("headers", stripped).Msg("fetchx: stripped cross-origin credentials")
	}
	c.setOrigin(hop)

	transport := c.transport()
	redirectPolicy := c.redirectPolicy()
	for {
		e.Request = hop
		e.URLs = append(e.URLs, hop.URL)
		e.HTTPRequest = hop.ToHTTP(ctx)
		handlers.run(BeforeHop, e)
		logger.Debug().
			Int("hop", e.Hop).
			Str("method", e.HTTPRequest.Method).
			Stringer("url", e.HTTPRequest.URL).
			Msg("fetchx: sending request")

		resp, err := transport.RoundTrip(e.HTTPRequest)
		if err != nil {
			e.Err = wrapErr(ctx, hop, err)
			handlers.run(AfterHop, e)
			return
		}
		if negotiated {
			decodeResponse(resp)
		}
		e.Response = resp
		handlers.run(AfterHop, e)
		logger.Debug().Int("hop", e.Hop).Int("status", resp.StatusCode).Msg("fetchx: received response")

		if hop.Redirect == request.Manual {
			return
		}
		target, ok := redirect.Target(e)
		if !ok {
			return
		}
		if hop.Redirect == request.Error {
			closeBody(resp)
			e.Response = nil
			e.Err = failure.New(failure.Network, urlErrorOp(hop.Method), hop.URL.String(), errRedirectMode)
			return
		}
		if !redirectPolicy.Decide(e) {
			closeBody(resp)
			e.Response = nil
			e.Err = failure.New(failure.RedirectLoop, urlErrorOp(hop.Method), hop.URL.String(), nil)
			return
		}
		closeBody(resp)

		next := hop.Clone()
		next.URL = target
		next.Method = redirect.Method(resp.StatusCode, hop.Method)
		if !redirect.KeepsBody(hop.Method, next.Method) {
			next.Body = nil
			redirect.DropBodyHeaders(next.Header)
		}
		if !origin.SameURL(hop.URL, target) && next.Credentials != origin.Include {
			origin.Strip(next.Header, guard.ForwardableNames())
		}
		guard.Apply(next.URL, next.Header, next.Credentials)
		c.setOrigin(next)

		logger.Debug().
			Int("status", resp.StatusCode).
			Stringer("from", hop.URL).
			Stringer("to", target).
			Str("method", next.Method).
			Msg("fetchx: following redirect")
		e.Response = nil
		e.Hop++
		hop = next
	}
}

// prepare adds the default request headers to r and reports whether
// the client negotiated the response content encoding.
func (c *Client) prepare(r *request.Request) bool {
	if !r.Header.Has("Accept") {
		_ = r.Header.Set("Accept", "*/*")
	}
	negotiated := false
	if !r.Header.Has("Accept-Encoding") {
		_ = r.Header.Set("Accept-Encoding", acceptEncoding)
		negotiated = true
	}
	if c.UserAgent != "" && !r.Header.Has("User-Agent") {
		_ = r.Header.Set("User-Agent", c.UserAgent)
	}
	return negotiated
}

// setOrigin sets the Origin header the way browsers do: on every
// request that is cross-origin relative to the document, and on every
// request whose method is neither GET nor HEAD.
func (c *Client) setOrigin(r *request.Request) {
	if c.BaseURL == nil {
		return
	}
	doc := origin.Of(c.BaseURL)
	if doc.Opaque() {
		return
	}
	if doc.Same(origin.Of(r.URL)) && request.NullBodyMethod(r.Method) {
		r.Header.Del("Origin")
		return
	}
	_ = r.Header.Set("Origin", doc.String())
}

// Get issues a GET to the specified URL, using the same policies
// followed by Do. The URL may be relative to BaseURL.
//
// To make a request with custom headers, use NewRequest and Client.Do.
func (c *Client) Get(url string) (*request.Execution, error) {
	return Get(c, url)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Do.
func (c *Client) Head(url string) (*request.Execution, error) {
	return Head(c, url)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Do.
//
// The body parameter may be any of the types supported by body.From.
// If contentType is empty, the Content-Type suggested by the body
// encoder is used.
func (c *Client) Post(url, contentType string, body interface{}) (*request.Execution, error) {
	return Post(c, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
func (c *Client) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(c, url, data)
}

// CloseIdleConnections invokes the same method on the client's
// underlying Transport, if it has one.
func (c *Client) CloseIdleConnections() {
	type closeIdler interface {
		CloseIdleConnections()
	}
	if ci, ok := c.transport().(closeIdler); ok {
		ci.CloseIdleConnections()
	}
}

func (c *Client) guard() *origin.Guard {
	return &origin.Guard{Document: c.BaseURL, Forwardable: c.Forwardable}
}

func (c *Client) transport() http.RoundTripper {
	if c.Transport == nil {
		return http.DefaultTransport
	}

	return c.Transport
}

func (c *Client) redirectPolicy() redirect.Policy {
	if c.RedirectPolicy == nil {
		return redirect.DefaultPolicy
	}

	return c.RedirectPolicy
}

func (c *Client) timeoutPolicy() timeout.Policy {
	if c.TimeoutPolicy == nil {
		return timeout.DefaultPolicy
	}

	return c.TimeoutPolicy
}

func (c *Client) encoder() *body.Encoder {
	if c.Encoder == nil {
		return &body.Encoder{}
	}

	return c.Encoder
}

func (c *Client) logger() *zerolog.Logger {
	if c.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}

	return c.Logger
}

// wrapErr converts a transport error into a *failure.Error. When the
// request context is done, its error decides the kind, since the
// transport may report the cancellation in many different ways.
func wrapErr(ctx context.Context, r *request.Request, err error) error {
	op, u := urlErrorOp(r.Method), r.URL.String()
	var fe *failure.Error
	if errors.As(err, &fe) {
		return fe
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return failure.New(failure.Categorize(ctxErr), op, u, err)
	}
	kind := failure.Categorize(err)
	if kind == failure.Abort {
		kind = failure.Network
	}
	return failure.New(kind, op, u, err)
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(ioutil.Discard, io.LimitReader(resp.Body, 2<<10))
	_ = resp.Body.Close()
}

// cancelBody releases the dispatch context when the response body is
// closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
