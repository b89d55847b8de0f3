// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gogama/fetchx/failure"
	"github.com/gogama/fetchx/header"
	"github.com/gogama/fetchx/loop"
	"github.com/gogama/fetchx/request"
)

const utf8BOM = "\xef\xbb\xbf"

// A Response is the result of a fetch. Its metadata is available as
// soon as the response headers arrive; its body can be drained exactly
// once, by exactly one of Body, Bytes, Text, JSON or Consume.
//
// A Response belongs to the loop goroutine and is not safe for
// concurrent use.
type Response struct {
	exec       *request.Execution
	status     int
	statusText string
	header     *header.Header
	url        string
	redirected bool

	body io.ReadCloser
	used bool
	loop *loop.Loop

	mu       sync.Mutex
	abortErr error
	release  func()
}

func newResponse(e *request.Execution, charset string, l *loop.Loop) *Response {
	resp := e.Response
	h := header.FromHTTP(resp.Header)
	h.ApplyDefaultCharset(charset)
	r := &Response{
		exec:       e,
		status:     resp.StatusCode,
		statusText: statusText(resp),
		header:     h,
		redirected: e.Redirected(),
		body:       resp.Body,
		loop:       l,
	}
	if u := e.FinalURL(); u != nil {
		r.url = u.String()
	}
	if r.body == nil {
		r.body = http.NoBody
	}
	return r
}

// statusText returns the reason phrase the server sent, falling back to
// the standard phrase for the status code.
func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// Status returns the HTTP status code.
func (r *Response) Status() int {
	return r.status
}

// StatusText returns the reason phrase from the status line, for
// example "OK" or "Not Found".
func (r *Response) StatusText() string {
	return r.statusText
}

// OK reports whether the status code is in the range 200-299.
func (r *Response) OK() bool {
	return r.status >= 200 && r.status <= 299
}

// Header returns the response header. The caller must not modify it.
func (r *Response) Header() *header.Header {
	return r.header
}

// URL returns the final URL of the response, after any redirects.
func (r *Response) URL() string {
	return r.url
}

// Redirected reports whether at least one redirect was followed.
func (r *Response) Redirected() bool {
	return r.redirected
}

// BodyUsed reports whether the body has been drained or handed out.
func (r *Response) BodyUsed() bool {
	return r.used
}

// Execution returns the dispatch state the response came from.
func (r *Response) Execution() *request.Execution {
	return r.exec
}

// Body hands out the raw body stream. The caller must close it.
func (r *Response) Body() (io.ReadCloser, error) {
	if err := r.take(); err != nil {
		return nil, err
	}
	return r.body, nil
}

// Bytes reads the whole body.
func (r *Response) Bytes() ([]byte, error) {
	if err := r.take(); err != nil {
		return nil, err
	}
	return r.drain()
}

// Text reads the whole body as UTF-8 text. A leading byte order mark
// is removed and invalid byte sequences are replaced by U+FFFD.
func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return utf8Text(b), nil
}

// JSON reads the whole body and unmarshals it into v.
func (r *Response) JSON(v interface{}) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(utf8Text(b)), v)
}

// Consume reads the whole body off the loop goroutine and delivers the
// result to fn as a loop task. It fails synchronously, without calling
// fn, if the body was already used.
func (r *Response) Consume(fn func([]byte, error)) error {
	if err := r.take(); err != nil {
		return err
	}
	release := r.loop.Hold()
	go func() {
		defer release()
		b, err := r.drain()
		_ = r.loop.Submit(func() { fn(b, err) })
	}()
	return nil
}

// ConsumeText is Consume for the body decoded as by Text.
func (r *Response) ConsumeText(fn func(string, error)) error {
	return r.Consume(func(b []byte, err error) {
		if err != nil {
			fn("", err)
			return
		}
		fn(utf8Text(b), nil)
	})
}

// Close discards the body. It does not mark the body as used.
func (r *Response) Close() error {
	r.done()
	return r.body.Close()
}

func (r *Response) take() error {
	if r.used {
		return failure.New(failure.BodyConsumed, "Read", r.url, nil)
	}
	r.used = true
	return nil
}

func (r *Response) drain() ([]byte, error) {
	b, err := ioutil.ReadAll(r.body)
	_ = r.body.Close()
	r.done()
	if err != nil {
		if reason := r.aborted(); reason != nil {
			return nil, reason
		}
		return nil, failure.Wrap("Read", r.url, err)
	}
	return b, nil
}

// abort cuts off the body. Reads which fail from then on report
// reason rather than the transport error.
func (r *Response) abort(reason error) {
	r.mu.Lock()
	if r.abortErr == nil {
		r.abortErr = reason
	}
	r.mu.Unlock()
	_ = r.body.Close()
}

// done drops the abort signal subscription once the body is finished.
func (r *Response) done() {
	r.mu.Lock()
	release := r.release
	r.release = nil
	r.mu.Unlock()
	if release != nil {
		release()
	}
}

func (r *Response) aborted() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.abortErr
}

func utf8Text(b []byte) string {
	return strings.ToValidUTF8(strings.TrimPrefix(string(b), utf8BOM), "\uFFFD")
}
