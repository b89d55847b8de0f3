// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"io/ioutil"
	"net/http"
	urlpkg "net/url"

	"github.com/gogama/fetchx/body"
	"github.com/gogama/fetchx/header"
	"github.com/gogama/fetchx/origin"
)

var (
	template, _ = http.NewRequest("GET", "", nil)
)

const (
	nilCtxMsg = "fetchx/request: nil context"
)

// A Mode is the execution mode of a request.
type Mode int

const (
	// Async requests return control to the event loop immediately
	// and deliver their outcome as a later loop task.
	Async Mode = iota
	// Sync requests block the event loop until they complete. Only
	// XMLHttpRequest uses this mode.
	Sync
)

func (m Mode) String() string {
	if m == Sync {
		return "sync"
	}
	return "async"
}

// A RedirectMode says what the dispatcher does with a redirect
// response.
type RedirectMode int

const (
	// Follow follows redirects, up to the client's hop bound.
	Follow RedirectMode = iota
	// Error fails the request with a network error on any redirect.
	Error
	// Manual returns the redirect response itself.
	Manual
)

func (m RedirectMode) String() string {
	switch m {
	case Error:
		return "error"
	case Manual:
		return "manual"
	default:
		return "follow"
	}
}

// ParseRedirectMode converts a fetch redirect string to a
// RedirectMode. Unknown strings select Follow.
func ParseRedirectMode(s string) RedirectMode {
	switch s {
	case "error":
		return Error
	case "manual":
		return Manual
	default:
		return Follow
	}
}

// A Request is a logical HTTP request issued by fetch or
// XMLHttpRequest.
//
// A Request carries a fully resolved URL, a normalized method, and a
// pre-encoded body. While redirects are followed the dispatcher derives
// a new Request for every hop, so the Request a caller constructs is
// never modified by the dispatcher.
type Request struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	// An empty string means GET.
	Method string

	// URL specifies the absolute URL to access.
	URL *urlpkg.URL

	// Header contains the request header fields. It is owned by the
	// Request and must not be shared with another request.
	Header *header.Header

	// Body is the pre-encoded request body to be sent. A nil or empty
	// body indicates no request body should be sent.
	Body []byte

	// Mode is the execution mode.
	Mode Mode

	// Credentials is the credentials mode, which decides whether
	// forwardable headers such as Authorization survive to a
	// cross-origin target.
	Credentials origin.Credentials

	// Redirect says how redirect responses are handled.
	Redirect RedirectMode

	// ctx allows the request to be aborted. It should only be modified
	// by copying the whole Request using WithContext.
	ctx context.Context
}

// New wraps NewWithContext using the background context.
func New(method, url string, base *urlpkg.URL) (*Request, error) {
	return NewWithContext(context.Background(), method, url, base)
}

// NewWithContext returns a new Request given a method and URL.
//
// The URL is resolved against base, which may be nil. If the result is
// not an absolute URL, an error is returned. The method is normalized
// as described for NormalizeMethod.
func NewWithContext(ctx context.Context, method, url string, base *urlpkg.URL) (*Request, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	m, err := NormalizeMethod(method)
	if err != nil {
		return nil, err
	}
	u, err := Resolve(url, base)
	if err != nil {
		return nil, err
	}
	return &Request{
		ctx:    ctx,
		Method: m,
		URL:    u,
		Header: header.New(),
	}, nil
}

// Context returns the request's context. To change the context, use
// WithContext.
//
// The returned context is always non-nil; it defaults to the
// background context.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of r with its context changed to
// ctx, which must be non-nil.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	r2 := new(Request)
	*r2 = *r
	r2.ctx = ctx
	return r2
}

// Clone returns a deep copy of r. The header and URL are copied so
// that the clone may be modified independently.
func (r *Request) Clone() *Request {
	r2 := new(Request)
	*r2 = *r
	if r.URL != nil {
		u := *r.URL
		if r.URL.User != nil {
			user := *r.URL.User
			u.User = &user
		}
		r2.URL = &u
	}
	r2.Header = r.Header.Clone()
	if r.Body != nil {
		r2.Body = append([]byte(nil), r.Body...)
	}
	return r2
}

// SetBody installs an encoded body. The encoded content type is set as
// the Content-Type header only if the caller did not set one already.
func (r *Request) SetBody(enc body.Encoded) {
	r.Body = enc.Bytes
	if enc.ContentType == "" {
		return
	}
	if r.Header == nil {
		r.Header = header.New()
	}
	if !r.Header.Has("Content-Type") {
		_ = r.Header.Set("Content-Type", enc.ContentType)
	}
}

// SetBasicAuth sets the request's Authorization header to use HTTP
// Basic Authentication with the provided username and password.
//
// With HTTP Basic Authentication the provided username and password
// are not encrypted.
func (r *Request) SetBasicAuth(username, password string) {
	if r.Header == nil {
		r.Header = header.New()
	}
	_ = r.Header.Set("Authorization", "Basic "+basicAuth(username, password))
}

// ToHTTP creates the wire request corresponding to r. Header names are
// canonicalized. The context of the new request is set to ctx, which
// may not be nil.
func (r *Request) ToHTTP(ctx context.Context) *http.Request {
	hr := template.WithContext(ctx)
	hr.Method = r.Method
	hr.URL = r.URL
	hr.Header = r.Header.HTTP()
	if len(r.Body) > 0 {
		b := r.Body
		hr.Body = ioutil.NopCloser(bytes.NewReader(b))
		hr.GetBody = func() (io.ReadCloser, error) {
			return ioutil.NopCloser(bytes.NewReader(b)), nil
		}
		hr.ContentLength = int64(len(b))
	}
	hr.Host = r.URL.Host
	return hr
}

// basicAuth is lifted verbatim from net/http/client.go.
//
// See 2 (end of page 4) https://www.ietf.org/rfc/rfc2617.txt
// "To receive authorization, the client sends the userid and password,
// separated by a single colon (":") character, within a base64
// encoded string in the credentials."
// It is not meant to be urlencoded.
func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}
