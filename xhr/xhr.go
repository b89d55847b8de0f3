// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gogama/fetchx"
	"github.com/gogama/fetchx/body"
	"github.com/gogama/fetchx/failure"
	"github.com/gogama/fetchx/header"
	"github.com/gogama/fetchx/loop"
	"github.com/gogama/fetchx/origin"
	"github.com/gogama/fetchx/request"
	"github.com/rs/zerolog"
)

// A State is the ready state of an XMLHttpRequest.
type State int

const (
	Unsent State = iota
	Opened
	HeadersReceived
	Loading
	Done
)

var stateNames = []string{"UNSENT", "OPENED", "HEADERS_RECEIVED", "LOADING", "DONE"}

func (s State) String() string {
	if s < Unsent || s > Done {
		return "State(?)"
	}
	return stateNames[s]
}

const chunkSize = 32 << 10

// An XMLHttpRequest is one XHR session. Construct it with New.
//
// An XMLHttpRequest belongs to the loop goroutine: its methods must be
// called, and its listeners are invoked, on the goroutine running the
// client's loop.
type XMLHttpRequest struct {
	client *fetchx.Client
	loop   *loop.Loop
	logger zerolog.Logger

	state           State
	method          string
	url             *url.URL
	async           bool
	reqHeader       *header.Header
	timeout         time.Duration
	withCredentials bool
	sendFlag        bool

	// gen is bumped whenever the current request is terminated, so that
	// results still in flight for an older request are discarded.
	gen    uint64
	cancel context.CancelFunc

	status     int
	statusText string
	respHeader *header.Header
	respURL    string
	body       []byte
	total      int64
	err        error

	listeners listeners
}

// New returns an XMLHttpRequest which dispatches through c. A nil c
// selects a zero value Client.
func New(c *fetchx.Client) *XMLHttpRequest {
	if c == nil {
		c = &fetchx.Client{}
	}
	logger := zerolog.Nop()
	if c.Logger != nil {
		logger = *c.Logger
	}
	return &XMLHttpRequest{
		client: c,
		loop:   c.Loop(),
		logger: logger,
	}
}

// AddEventListener registers fn for events of type typ and returns a
// handle for removing it.
func (x *XMLHttpRequest) AddEventListener(typ EventType, fn Listener) ListenerID {
	return x.listeners.add(typ, fn)
}

// RemoveEventListener removes the listener registered under id. It
// reports whether there was one.
func (x *XMLHttpRequest) RemoveEventListener(id ListenerID) bool {
	return x.listeners.remove(id)
}

// Open initializes the request. A request in flight is terminated
// without firing any event.
//
// An asynchronous Open fires readystatechange; a synchronous one fires
// nothing.
func (x *XMLHttpRequest) Open(method, rawURL string, async bool) error {
	m, err := request.NormalizeMethod(method)
	if err != nil {
		return err
	}
	u, err := request.Resolve(rawURL, x.client.BaseURL)
	if err != nil {
		return err
	}

	x.terminate()
	x.method = m
	x.url = u
	x.async = async
	x.reqHeader = header.New()
	x.sendFlag = false
	x.clearResponse()
	x.err = nil
	x.setState(Opened, async)
	return nil
}

// SetRequestHeader appends a request header. Forbidden header names
// are silently ignored.
func (x *XMLHttpRequest) SetRequestHeader(name, value string) error {
	if x.state != Opened || x.sendFlag {
		return x.invalidState("SetRequestHeader")
	}
	if header.Forbidden(name) {
		return nil
	}
	return x.reqHeader.Append(name, value)
}

// Send dispatches the request. The body may be any type supported by
// body.From; it is ignored for GET and HEAD.
//
// An asynchronous Send returns at once and reports the outcome through
// events. A synchronous Send blocks the loop until the whole response
// is available, fires no events, and returns the failure, if any.
func (x *XMLHttpRequest) Send(b interface{}) error {
	if x.state != Opened || x.sendFlag {
		return x.invalidState("Send")
	}
	r, err := x.newRequest(b)
	if err != nil {
		return err
	}
	if !x.async {
		return x.sendSync(r)
	}

	x.sendFlag = true
	x.fire(LoadStart, 0)
	if !x.sendFlag || x.state != Opened {
		// A loadstart listener aborted or reopened the request.
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	if x.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), x.timeout)
	}
	x.cancel = cancel
	release := x.loop.Hold()
	go x.pump(ctx, x.gen, r.WithContext(ctx), release)
	return nil
}

// Abort terminates the request. If a request is in flight, the state
// becomes DONE and readystatechange, abort and loadend are fired, in
// that order. The state stays DONE afterwards.
func (x *XMLHttpRequest) Abort() {
	inFlight := (x.state == Opened && x.sendFlag) || x.state == HeadersReceived || x.state == Loading
	x.terminate()
	if inFlight {
		x.requestError(Abort, failure.New(failure.Abort, "Abort", x.url.String(), nil))
	}
}

// ReadyState returns the current state.
func (x *XMLHttpRequest) ReadyState() State {
	return x.state
}

// Status returns the response status code, or 0 before the headers
// arrive and after a failure.
func (x *XMLHttpRequest) Status() int {
	return x.status
}

// StatusText returns the reason phrase of the response status line.
func (x *XMLHttpRequest) StatusText() string {
	return x.statusText
}

// GetResponseHeader returns the combined value of the named response
// header. Set-Cookie headers are never exposed.
func (x *XMLHttpRequest) GetResponseHeader(name string) (string, bool) {
	if x.respHeader == nil || hiddenHeader(name) {
		return "", false
	}
	return x.respHeader.Get(name)
}

// GetAllResponseHeaders returns every exposed response header as
// "name: value\r\n" lines, names lower-cased and sorted.
func (x *XMLHttpRequest) GetAllResponseHeaders() string {
	if x.respHeader == nil {
		return ""
	}
	h := x.respHeader.Clone()
	h.Del("Set-Cookie")
	h.Del("Set-Cookie2")
	return h.String()
}

// ResponseText returns the body received so far, decoded with the
// charset of the response Content-Type.
func (x *XMLHttpRequest) ResponseText() string {
	if x.state != Loading && x.state != Done {
		return ""
	}
	ct, _ := x.respHeader.Get("Content-Type")
	return decodeText(x.body, ct)
}

// Response returns the raw body received so far.
func (x *XMLHttpRequest) Response() []byte {
	return x.body
}

// ResponseURL returns the final URL of the response, after redirects.
func (x *XMLHttpRequest) ResponseURL() string {
	return x.respURL
}

// Err returns the failure which ended the last request, if any.
func (x *XMLHttpRequest) Err() error {
	return x.err
}

// Timeout returns the request timeout. Zero means none.
func (x *XMLHttpRequest) Timeout() time.Duration {
	return x.timeout
}

// SetTimeout sets the timeout of subsequent asynchronous sends.
// Synchronous sends never time out.
func (x *XMLHttpRequest) SetTimeout(d time.Duration) {
	x.timeout = d
}

// WithCredentials reports whether credentials are sent cross-origin.
func (x *XMLHttpRequest) WithCredentials() bool {
	return x.withCredentials
}

// SetWithCredentials sets whether forwardable headers such as
// Authorization are sent cross-origin. It fails once the request is
// sent.
func (x *XMLHttpRequest) SetWithCredentials(v bool) error {
	if (x.state != Unsent && x.state != Opened) || x.sendFlag {
		return x.invalidState("SetWithCredentials")
	}
	x.withCredentials = v
	return nil
}

func (x *XMLHttpRequest) newRequest(b interface{}) (*request.Request, error) {
	r, err := request.New(x.method, x.url.String(), nil)
	if err != nil {
		return nil, err
	}
	r.Header = x.reqHeader.Clone()
	if x.withCredentials {
		r.Credentials = origin.Include
	}
	if request.NullBodyMethod(r.Method) {
		return r, nil
	}
	v, err := body.From(b)
	if err != nil {
		return nil, err
	}
	enc := x.client.Encoder
	if enc == nil {
		enc = &body.Encoder{}
	}
	encoded, err := enc.Encode(v)
	if err != nil {
		return nil, err
	}
	r.SetBody(encoded)
	return r, nil
}

func (x *XMLHttpRequest) sendSync(r *request.Request) error {
	e, err := x.client.DoSync(r)
	if err != nil {
		x.clearResponse()
		x.err = err
		x.state = Done
		return err
	}
	x.setResponse(e)
	x.body = e.Body
	x.state = Done
	return nil
}

// pump runs on its own goroutine. It dispatches r and hands the
// response headers and every body chunk back to the loop.
func (x *XMLHttpRequest) pump(ctx context.Context, gen uint64, r *request.Request, release func()) {
	defer release()
	submit := func(fn func()) {
		_ = x.loop.Submit(func() {
			if gen == x.gen {
				fn()
			}
		})
	}

	e, err := x.client.Do(r)
	if err != nil {
		submit(func() { x.fail(err) })
		return
	}
	rc := e.Response.Body
	defer rc.Close()
	submit(func() { x.headersReceived(e) })

	buf := make([]byte, chunkSize)
	for {
		n, err := rc.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			submit(func() { x.progress(chunk) })
		}
		if err == io.EOF {
			submit(x.complete)
			return
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = failure.New(failure.Categorize(ctxErr), "Read", r.URL.String(), err)
			} else {
				err = failure.Wrap("Read", r.URL.String(), err)
			}
			submit(func() { x.fail(err) })
			return
		}
	}
}

func (x *XMLHttpRequest) headersReceived(e *request.Execution) {
	x.setResponse(e)
	x.setState(HeadersReceived, true)
}

func (x *XMLHttpRequest) progress(chunk []byte) {
	if x.state == HeadersReceived {
		x.setState(Loading, true)
		if x.state != Loading {
			return
		}
	}
	x.body = append(x.body, chunk...)
	x.fire(Progress, int64(len(x.body)))
}

func (x *XMLHttpRequest) complete() {
	x.finish()
	x.sendFlag = false
	x.setState(Done, true)
	if x.state != Done {
		return
	}
	loaded := int64(len(x.body))
	x.fire(Load, loaded)
	x.fire(LoadEnd, loaded)
}

func (x *XMLHttpRequest) fail(err error) {
	x.finish()
	typ := Error
	switch failure.Categorize(err) {
	case failure.Timeout:
		typ = Timeout
	case failure.Abort:
		typ = Abort
	}
	x.requestError(typ, err)
}

// requestError moves the request to DONE with a network error response
// and fires readystatechange, then typ, then loadend.
func (x *XMLHttpRequest) requestError(typ EventType, err error) {
	x.logger.Debug().Err(err).Str("event", string(typ)).Msg("fetchx/xhr: request failed")
	x.sendFlag = false
	x.clearResponse()
	x.err = err
	gen := x.gen
	x.setState(Done, true)
	if gen != x.gen {
		return
	}
	x.fire(typ, 0)
	if gen != x.gen {
		return
	}
	x.fire(LoadEnd, 0)
}

// terminate discards the request in flight, if any, without events.
func (x *XMLHttpRequest) terminate() {
	x.gen++
	x.finish()
}

func (x *XMLHttpRequest) finish() {
	if x.cancel != nil {
		x.cancel()
		x.cancel = nil
	}
}

func (x *XMLHttpRequest) setResponse(e *request.Execution) {
	resp := e.Response
	h := header.FromHTTP(resp.Header)
	h.ApplyDefaultCharset(x.client.ContentTypeCharset)
	x.status = resp.StatusCode
	x.statusText = reasonPhrase(resp.Status, resp.StatusCode)
	x.respHeader = h
	x.total = resp.ContentLength
	if u := e.FinalURL(); u != nil {
		x.respURL = u.String()
	}
}

func (x *XMLHttpRequest) clearResponse() {
	x.status = 0
	x.statusText = ""
	x.respHeader = nil
	x.respURL = ""
	x.body = nil
	x.total = -1
}

func (x *XMLHttpRequest) setState(s State, notify bool) {
	x.state = s
	x.logger.Debug().Stringer("state", s).Msg("fetchx/xhr: ready state changed")
	if notify {
		x.fire(ReadyStateChange, 0)
	}
}

func (x *XMLHttpRequest) fire(typ EventType, loaded int64) {
	evt := Event{Type: typ, Target: x}
	if typ != ReadyStateChange {
		evt.Loaded = loaded
		if x.total > 0 {
			evt.Total = x.total
			evt.LengthComputable = true
		}
	}
	for _, fn := range x.listeners.snapshot(typ) {
		x.safeCall(fn, evt)
	}
}

func (x *XMLHttpRequest) safeCall(fn Listener, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error().Interface("panic", r).Str("event", string(evt.Type)).Msg("fetchx/xhr: listener panicked")
		}
	}()

	fn(evt)
}

func (x *XMLHttpRequest) invalidState(op string) error {
	u := ""
	if x.url != nil {
		u = x.url.String()
	}
	return failure.New(failure.InvalidState, op, u, nil)
}

func hiddenHeader(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return name == "set-cookie" || name == "set-cookie2"
}

func reasonPhrase(status string, code int) string {
	if text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code))); text != "" {
		return text
	}
	return http.StatusText(code)
}
