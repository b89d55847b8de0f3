// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"net/url"

	"github.com/gogama/fetchx/body"
	"github.com/gogama/fetchx/request"
)

// Doer is the interface that wraps the basic Do method.
//
// Do dispatches a request and returns the final execution state (and
// error, if any). Client implements the Doer interface, and any other
// Doer implementation must behave substantially the same as Client.Do.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Doer interface {
	Do(r *request.Request) (*request.Execution, error)
}

// Getter is the interface that wraps the basic Get method.
//
// Any Doer can be used to emulate a Getter via the Get function.
type Getter interface {
	Get(url string) (*request.Execution, error)
}

// Header is the interface that wraps the basic Head method.
//
// Any Doer can be used to emulate a Header via the Head function.
type Header interface {
	Head(url string) (*request.Execution, error)
}

// Poster is the interface that wraps the basic Post method.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by body.From.
//
// Any Doer can be used to emulate a Poster via the Post function.
type Poster interface {
	Post(url, contentType string, body interface{}) (*request.Execution, error)
}

// FormPoster is the interface that wraps the basic PostForm method.
//
// The request body is set to the URL-encoded keys and values from
// data, and the content type is set to
// application/x-www-form-urlencoded.
//
// Any Doer can be used to emulate a FormPoster via the PostForm
// function.
type FormPoster interface {
	PostForm(url string, data url.Values) (*request.Execution, error)
}

// IdleCloser is the interface that wraps the basic CloseIdleConnections
// method.
//
// If the underlying implementation does not support this ability,
// CloseIdleConnections does nothing.
type IdleCloser interface {
	CloseIdleConnections()
}

// Executor is the interface that groups the basic Do, Get, Head, Post,
// PostForm, and CloseIdleConnections methods.
//
// Any Doer can be converted into an Executor via the Inflate function.
type Executor interface {
	Doer
	Getter
	Header
	Poster
	FormPoster
	IdleCloser
}

// requestMaker is implemented by Doers, such as Client, which resolve
// relative URLs against a base URL.
type requestMaker interface {
	NewRequest(method, url string) (*request.Request, error)
}

// Get uses the specified Doer to issue a GET to the specified URL,
// using the same policies as d.Do.
//
// If d is a Client, relative URLs are resolved against its BaseURL.
// Otherwise url must be absolute.
func Get(d Doer, url string) (*request.Execution, error) {
	r, err := newRequest(d, "GET", url)
	if err != nil {
		return nil, err
	}
	return d.Do(r)
}

// Head uses the specified Doer to issue a HEAD to the specified URL,
// using the same policies as d.Do.
func Head(d Doer, url string) (*request.Execution, error) {
	r, err := newRequest(d, "HEAD", url)
	if err != nil {
		return nil, err
	}
	return d.Do(r)
}

// Post uses the specified Doer to issue a POST to the specified URL,
// using the same policies as d.Do.
//
// The body is converted with body.From and encoded. If contentType is
// not empty it overrides the content type chosen by the encoder.
func Post(d Doer, url, contentType string, b interface{}) (*request.Execution, error) {
	v, err := body.From(b)
	if err != nil {
		return nil, err
	}
	enc, err := encoderOf(d).Encode(v)
	if err != nil {
		return nil, err
	}
	r, err := newRequest(d, "POST", url)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		if err = r.Header.Set("Content-Type", contentType); err != nil {
			return nil, err
		}
	}
	r.SetBody(enc)
	return d.Do(r)
}

// PostForm uses the specified Doer to issue a POST to the specified URL,
// with data's keys and values URL-encoded as the request body.
func PostForm(d Doer, url string, data url.Values) (*request.Execution, error) {
	return Post(d, url, "", body.URLEncodedValue(data))
}

// Inflate converts any non-nil Doer into an Executor. This may be
// helpful for interop across library boundaries, i.e. if code that only
// has access to a Doer needs to call a function that requires an
// Executor.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("fetchx: nil doer")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

func newRequest(d Doer, method, url string) (*request.Request, error) {
	if rm, ok := d.(requestMaker); ok {
		return rm.NewRequest(method, url)
	}
	return request.New(method, url, nil)
}

func encoderOf(d Doer) *body.Encoder {
	if c, ok := d.(*Client); ok {
		return c.encoder()
	}
	return &body.Encoder{}
}

type inflated struct {
	doer Doer
}

func (i inflated) Do(r *request.Request) (*request.Execution, error) {
	return i.doer.Do(r)
}

func (i inflated) Get(url string) (*request.Execution, error) {
	return Get(i.doer, url)
}

func (i inflated) Head(url string) (*request.Execution, error) {
	return Head(i.doer, url)
}

func (i inflated) Post(url, contentType string, body interface{}) (*request.Execution, error) {
	return Post(i.doer, url, contentType, body)
}

func (i inflated) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(i.doer, url, data)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
