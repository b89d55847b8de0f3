// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"testing"
	"time"

	"github.com/gogama/fetchx/failure"
	"github.com/gogama/fetchx/header"
	"github.com/gogama/fetchx/loop"
	"github.com/gogama/fetchx/origin"
	"github.com/gogama/fetchx/redirect"
	"github.com/gogama/fetchx/request"
	"github.com/gogama/fetchx/timeout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	t.Run("zero value", testClientZeroValue)
	t.Run("default headers", testClientDefaultHeaders)
	t.Run("credentials", testClientCredentials)
	t.Run("redirect chain", testClientRedirectChain)
	t.Run("redirect method", testClientRedirectMethod)
	t.Run("redirect loop", testClientRedirectLoop)
	t.Run("network error", testClientNetworkError)
	t.Run("timeout", testClientTimeout)
	t.Run("decoding", testClientDecoding)
	t.Run("handlers", testClientHandlers)
	t.Run("close idle connections", testClientCloseIdleConnections)
}

func TestURLErrorOp(t *testing.T) {
	assert.Equal(t, "Get", urlErrorOp(""))
	assert.Equal(t, "Get", urlErrorOp("GET"))
	assert.Equal(t, "G", urlErrorOp("G"))
	assert.Equal(t, "X", urlErrorOp("X"))
	assert.Equal(t, "Xyz", urlErrorOp("XYZ"))
	assert.Equal(t, "Put", urlErrorOp("PUT"))
}

func testClientZeroValue(t *testing.T) {
	cl := &Client{} // Must use zero value!

	e, err := cl.Get(server.URL + "/text")

	require.NoError(t, err)
	require.NotNil(t, e)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 200, e.StatusCode())
	assert.Equal(t, 0, e.Hop)
	assert.False(t, e.Redirected())
	assert.True(t, e.Ended())
	b, err := ioutil.ReadAll(e.Response.Body)
	require.NoError(t, err)
	require.NoError(t, e.Response.Body.Close())
	assert.Equal(t, "hello, world", string(b))
	assert.NotNil(t, cl.Loop())
	assert.Same(t, cl.Loop(), cl.Loop())

	_, err = cl.Get("relative")
	assert.Error(t, err)
}

func testClientDefaultHeaders(t *testing.T) {
	cl := &Client{BaseURL: documentURL(), UserAgent: "fetchx-test"}

	t.Run("same origin GET", func(t *testing.T) {
		got := echoOf(t, cl, "/echo", nil)
		assert.Equal(t, "GET", got.Method)
		assert.Equal(t, "*/*", got.Accept)
		assert.Equal(t, "fetchx-test", got.UserAgent)
		assert.Empty(t, got.Origin)
	})
	t.Run("same origin POST", func(t *testing.T) {
		h := header.New()
		require.NoError(t, h.Set("X-Custom", "1"))
		require.NoError(t, h.Set("Cookie", "a=1"))
		got := echoOf(t, cl, "/echo", &Init{Method: "post", Header: h, Body: "x"})
		assert.Equal(t, "POST", got.Method)
		assert.Equal(t, "x", got.Body)
		assert.Equal(t, "text/plain;charset=UTF-8", got.ContentType)
		assert.Equal(t, server.URL, got.Origin)
		assert.Equal(t, "1", got.Custom)
		assert.Empty(t, got.Cookie)
	})
	t.Run("cross origin GET", func(t *testing.T) {
		got := echoOf(t, cl, otherServer.URL+"/echo", nil)
		assert.Equal(t, server.URL, got.Origin)
	})
}

func testClientCredentials(t *testing.T) {
	cl := &Client{BaseURL: documentURL()}
	testCases := []struct {
		name   string
		url    string
		creds  origin.Credentials
		status int
	}{
		{"same origin", "/auth", origin.SameOrigin, 200},
		{"same origin omit", "/auth", origin.Omit, 401},
		{"cross origin", otherServer.URL + "/auth", origin.SameOrigin, 401},
		{"cross origin include", otherServer.URL + "/auth", origin.Include, 200},
		{"redirect to cross origin", "/to-other", origin.SameOrigin, 401},
		{"redirect to cross origin include", "/to-other", origin.Include, 200},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			h := header.New()
			require.NoError(t, h.Set("Authorization", secret))
			resp, err := await(t, cl.Fetch(testCase.url, &Init{Header: h, Credentials: testCase.creds}))
			require.NoError(t, err)
			assert.Equal(t, testCase.status, resp.Status())
			require.NoError(t, resp.Close())
		})
	}
}

func testClientRedirectChain(t *testing.T) {
	cl := &Client{BaseURL: documentURL()}

	e, err := cl.Get("/redirect/3")

	require.NoError(t, err)
	assert.Equal(t, 3, e.Hop)
	assert.True(t, e.Redirected())
	require.Len(t, e.URLs, 4)
	assert.Equal(t, "/redirect/3", e.URLs[0].Path)
	assert.Equal(t, "/redirect/0", e.FinalURL().Path)
	assert.Equal(t, 200, e.StatusCode())
	_ = e.Response.Body.Close()

	t.Run("fetch", func(t *testing.T) {
		resp, err := await(t, cl.Fetch("/redirect/2", nil))
		require.NoError(t, err)
		assert.True(t, resp.Redirected())
		assert.Equal(t, server.URL+"/redirect/0", resp.URL())
		text, err := resp.Text()
		require.NoError(t, err)
		assert.Equal(t, "done", text)
	})
	t.Run("mode error", func(t *testing.T) {
		_, err := await(t, cl.Fetch("/redirect/1", &Init{Redirect: request.Error}))
		assert.True(t, errors.Is(err, failure.Network))
	})
	t.Run("mode manual", func(t *testing.T) {
		resp, err := await(t, cl.Fetch("/redirect/1", &Init{Redirect: request.Manual}))
		require.NoError(t, err)
		assert.Equal(t, 302, resp.Status())
		assert.False(t, resp.Redirected())
		_ = resp.Close()
	})
}

func testClientRedirectMethod(t *testing.T) {
	cl := &Client{BaseURL: documentURL()}
	testCases := []struct {
		path        string
		method      string
		body        string
		contentType string
	}{
		{"/found", "GET", "", ""},
		{"/see-other", "GET", "", ""},
		{"/temporary", "POST", "x", "text/plain;charset=UTF-8"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.path, func(t *testing.T) {
			got := echoOf(t, cl, testCase.path, &Init{Method: "POST", Body: "x"})
			assert.Equal(t, testCase.method, got.Method)
			assert.Equal(t, testCase.body, got.Body)
			assert.Equal(t, testCase.contentType, got.ContentType)
		})
	}
	t.Run("cross origin hop", func(t *testing.T) {
		h := header.New()
		require.NoError(t, h.Set("Authorization", secret))
		got := echoOf(t, cl, "/to-other-echo", &Init{Header: h})
		assert.Empty(t, got.Authorization)
		assert.Equal(t, server.URL, got.Origin)
	})
}

func testClientRedirectLoop(t *testing.T) {
	t.Run("custom bound", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL(), RedirectPolicy: redirect.Hops(3)}
		e, err := cl.Get("/loop")
		require.Error(t, err)
		assert.True(t, errors.Is(err, failure.RedirectLoop))
		assert.Same(t, err, e.Err)
		assert.Equal(t, 3, e.Hop)
		assert.Len(t, e.URLs, 4)
		assert.Nil(t, e.Response)
	})
	t.Run("default bound", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL()}
		_, err := await(t, cl.Fetch("/loop", nil))
		assert.True(t, errors.Is(err, failure.RedirectLoop))
		var fe *failure.Error
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "Get", fe.Op)
	})
}

func testClientNetworkError(t *testing.T) {
	mockTransport := newMockTransport(t)
	mockTransport.On("RoundTrip", mock.AnythingOfType("*http.Request")).
		Return(nil, errors.New("connection refused")).
		Once()
	cl := &Client{Transport: mockTransport}

	e, err := cl.Get("http://unreachable.test/x")

	mockTransport.AssertExpectations(t)
	require.Error(t, err)
	assert.Same(t, err, e.Err)
	assert.Nil(t, e.Response)
	assert.Equal(t, failure.Network, e.Kind())
	assert.EqualError(t, err, `NetworkError: Get "http://unreachable.test/x": connection refused`)
}

func testClientTimeout(t *testing.T) {
	var timeouts int
	handlers := &HandlerGroup{}
	handlers.PushBack(AfterTimeout, HandlerFunc(func(_ Event, _ *request.Execution) {
		timeouts++
	}))
	cl := &Client{
		BaseURL:       documentURL(),
		TimeoutPolicy: timeout.Fixed(50 * time.Millisecond),
		Handlers:      handlers,
	}

	_, err := await(t, cl.Fetch("/slow", nil))

	assert.True(t, errors.Is(err, failure.Timeout))
	assert.Equal(t, 1, timeouts)
}

func testClientDecoding(t *testing.T) {
	cl := &Client{BaseURL: documentURL()}
	testCases := []struct {
		path string
		want string
	}{
		{"/gzip", "hello gzip"},
		{"/deflate", "hello deflate"},
		{"/br", "hello brotli"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.path, func(t *testing.T) {
			resp, err := await(t, cl.Fetch(testCase.path, nil))
			require.NoError(t, err)
			assert.False(t, resp.Header().Has("Content-Encoding"))
			text, err := resp.Text()
			require.NoError(t, err)
			assert.Equal(t, testCase.want, text)
		})
	}
}

func testClientHandlers(t *testing.T) {
	var trace []string
	handlers := &HandlerGroup{}
	for _, evt := range Events() {
		handlers.PushBack(evt, HandlerFunc(func(evt Event, e *request.Execution) {
			trace = append(trace, evt.Name())
		}))
	}
	cl := &Client{BaseURL: documentURL(), Handlers: handlers}

	e, err := cl.Get("/redirect/1")

	require.NoError(t, err)
	_ = e.Response.Body.Close()
	assert.Equal(t, []string{
		"BeforeExecutionStart",
		"BeforeHop",
		"AfterHop",
		"BeforeHop",
		"AfterHop",
		"AfterExecutionEnd",
	}, trace)
}

func testClientCloseIdleConnections(t *testing.T) {
	t.Run("Transport does not implement IdleCloser", func(t *testing.T) {
		mockTransport := newMockTransport(t)
		cl := &Client{Transport: mockTransport}
		cl.CloseIdleConnections()
		mockTransport.AssertNotCalled(t, "CloseIdleConnections")
	})
	t.Run("Transport implements IdleCloser", func(t *testing.T) {
		mockTransport := newMockTransportWithCloseIdleConnections(t)
		mockTransport.On("CloseIdleConnections").Once()
		cl := &Client{Transport: mockTransport}
		cl.CloseIdleConnections()
		mockTransport.AssertExpectations(t)
	})
}

func TestFetch(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL()}
		resp, err := await(t, cl.Fetch("/json", nil))
		require.NoError(t, err)
		assert.True(t, resp.OK())
		assert.Equal(t, 200, resp.Status())
		assert.Equal(t, "OK", resp.StatusText())
		assert.False(t, resp.Redirected())
		assert.Equal(t, server.URL+"/json", resp.URL())
		ct, _ := resp.Header().Get("Content-Type")
		assert.Equal(t, "application/json", ct)
		assert.False(t, resp.BodyUsed())
		var v struct {
			OK    bool  `json:"ok"`
			Items []int `json:"items"`
		}
		require.NoError(t, resp.JSON(&v))
		assert.True(t, v.OK)
		assert.Equal(t, []int{1, 2, 3}, v.Items)
		assert.True(t, resp.BodyUsed())
		assert.NotNil(t, resp.Execution())
	})
	t.Run("charset", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL(), ContentTypeCharset: "utf-8"}
		resp, err := await(t, cl.Fetch("/json", nil))
		require.NoError(t, err)
		ct, _ := resp.Header().Get("content-type")
		assert.Equal(t, "application/json; charset=utf-8", ct)
		_ = resp.Close()
	})
	t.Run("body consumed", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL()}
		resp, err := await(t, cl.Fetch("/json", nil))
		require.NoError(t, err)
		var v interface{}
		require.NoError(t, resp.JSON(&v))
		err = resp.JSON(&v)
		assert.True(t, errors.Is(err, failure.BodyConsumed))
		_, err = resp.Text()
		assert.True(t, errors.Is(err, failure.BodyConsumed))
		_, err = resp.Body()
		assert.True(t, errors.Is(err, failure.BodyConsumed))
		err = resp.Consume(func([]byte, error) {
			t.Error("Consume callback must not run")
		})
		assert.True(t, errors.Is(err, failure.BodyConsumed))
	})
	t.Run("text", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL()}
		resp, err := await(t, cl.Fetch("/bom", nil))
		require.NoError(t, err)
		text, err := resp.Text()
		require.NoError(t, err)
		assert.Equal(t, "café �!", text)
	})
	t.Run("not ok", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL()}
		resp, err := await(t, cl.Fetch("/teapot", nil))
		require.NoError(t, err)
		assert.False(t, resp.OK())
		assert.Equal(t, 418, resp.Status())
		assert.Equal(t, "I'm a teapot", resp.StatusText())
	})
	t.Run("consume", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL()}
		resp, err := await(t, cl.Fetch("/text", nil))
		require.NoError(t, err)
		var got []byte
		require.NoError(t, resp.Consume(func(b []byte, err error) {
			assert.NoError(t, err)
			got = b
		}))
		assert.Nil(t, got)
		require.NoError(t, cl.Loop().Run(testContext(t)))
		assert.Equal(t, "hello, world", string(got))
	})
	t.Run("GET with body", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL()}
		_, err := await(t, cl.Fetch("/json", &Init{Body: "x"}))
		assert.EqualError(t, err, "fetchx: request with GET method cannot have body")
	})
	t.Run("invalid URL", func(t *testing.T) {
		cl := &Client{}
		_, err := await(t, cl.Fetch("relative", nil))
		assert.Error(t, err)
	})
	t.Run("invalid method", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL()}
		_, err := await(t, cl.Fetch("/json", &Init{Method: "CONNECT"}))
		assert.EqualError(t, err, `fetchx/request: forbidden method "CONNECT"`)
	})
	t.Run("in-memory transport", func(t *testing.T) {
		cl := &Client{
			Transport: routeTransport{
				"GET http://api.test/items": respond(201, `[1]`, http.Header{"Content-Type": {"application/json"}}),
			},
		}
		resp, err := await(t, cl.Fetch("http://api.test/items", nil))
		require.NoError(t, err)
		assert.Equal(t, 201, resp.Status())
		assert.Equal(t, "Created", resp.StatusText())
		var v []int
		require.NoError(t, resp.JSON(&v))
		assert.Equal(t, []int{1}, v)
	})
}

func TestFuture(t *testing.T) {
	cl := &Client{BaseURL: documentURL()}
	f := cl.Fetch("/text", nil)
	var order []int
	f.Then(func(*Response, error) { order = append(order, 1) })
	f.Then(func(*Response, error) { order = append(order, 2) })
	assert.False(t, f.Done())
	resp, err := f.Result()
	assert.Nil(t, resp)
	assert.NoError(t, err)

	require.NoError(t, cl.Loop().Run(testContext(t)))

	assert.True(t, f.Done())
	assert.Equal(t, []int{1, 2}, order)
	f.Then(func(*Response, error) { order = append(order, 3) })
	assert.Equal(t, []int{1, 2}, order)
	require.NoError(t, cl.Loop().Run(testContext(t)))
	assert.Equal(t, []int{1, 2, 3}, order)
	resp, err = f.Result()
	require.NoError(t, err)
	_ = resp.Close()
}

func TestAbort(t *testing.T) {
	t.Run("in flight", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL()}
		ctrl := NewAbortController()
		f := cl.Fetch("/slow", &Init{Signal: ctrl.Signal()})
		cl.Loop().AfterFunc(20*time.Millisecond, func() {
			ctrl.Abort(nil)
		})
		_, err := await(t, f)
		assert.True(t, errors.Is(err, failure.Abort))
		assert.True(t, ctrl.Signal().Aborted())
		assert.Same(t, ctrl.Signal().Reason(), err)
	})
	t.Run("already aborted", func(t *testing.T) {
		mockTransport := newMockTransport(t)
		cl := &Client{BaseURL: documentURL(), Transport: mockTransport}
		ctrl := NewAbortController()
		reason := errors.New("changed my mind")
		ctrl.Abort(reason)
		_, err := await(t, cl.Fetch("/json", &Init{Signal: ctrl.Signal()}))
		assert.Same(t, reason, err)
		mockTransport.AssertNotCalled(t, "RoundTrip", mock.Anything)
	})
	t.Run("after resolution", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL()}
		ctrl := NewAbortController()
		resp, err := await(t, cl.Fetch("/slow-body", &Init{Signal: ctrl.Signal()}))
		require.NoError(t, err)
		ctrl.Abort(nil)
		_, err = resp.Bytes()
		assert.True(t, errors.Is(err, failure.Abort))
	})
	t.Run("settled futures unsubscribe", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL()}
		ctrl := NewAbortController()
		sig := ctrl.Signal()

		_, err := await(t, cl.Fetch("http://127.0.0.1:1/", &Init{Signal: sig}))
		require.True(t, errors.Is(err, failure.Network))
		assert.Equal(t, 0, listeners(sig))

		read, err := await(t, cl.Fetch("/text", &Init{Signal: sig}))
		require.NoError(t, err)
		unread, err := await(t, cl.Fetch("/text", &Init{Signal: sig}))
		require.NoError(t, err)
		assert.Equal(t, 2, listeners(sig))
		_, err = read.Text()
		require.NoError(t, err)
		assert.Equal(t, 1, listeners(sig))
		require.NoError(t, unread.Close())
		assert.Equal(t, 0, listeners(sig))
	})
	t.Run("signal", func(t *testing.T) {
		ctrl := NewAbortController()
		var calls []string
		remove := ctrl.Signal().OnAbort(func(error) { calls = append(calls, "a") })
		ctrl.Signal().OnAbort(func(error) { calls = append(calls, "b") })
		remove()
		ctrl.Abort(nil)
		ctrl.Abort(errors.New("ignored"))
		assert.Equal(t, []string{"b"}, calls)
		assert.True(t, errors.Is(ctrl.Signal().Reason(), failure.Abort))
		ctrl.Signal().OnAbort(func(error) { calls = append(calls, "late") })
		assert.Equal(t, []string{"b", "late"}, calls)
	})
}

func listeners(s *AbortSignal) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

func TestDoSync(t *testing.T) {
	t.Run("blocks loop", func(t *testing.T) {
		var tickErr error
		handlers := &HandlerGroup{}
		cl := &Client{BaseURL: documentURL(), Handlers: handlers}
		handlers.PushBack(BeforeHop, HandlerFunc(func(Event, *request.Execution) {
			_, tickErr = cl.Loop().Tick()
		}))
		ran := false
		require.NoError(t, cl.Loop().Submit(func() { ran = true }))
		r, err := cl.NewRequest("GET", "/text")
		require.NoError(t, err)

		e, err := cl.DoSync(r)

		require.NoError(t, err)
		assert.Equal(t, "hello, world", string(e.Body))
		assert.Equal(t, request.Sync, e.Request.Mode)
		assert.Equal(t, request.Async, r.Mode)
		assert.Equal(t, loop.ErrReentrant, tickErr)
		assert.False(t, ran)
		require.NoError(t, cl.Loop().Run(testContext(t)))
		assert.True(t, ran)
	})
	t.Run("no timeout", func(t *testing.T) {
		cl := &Client{BaseURL: documentURL(), TimeoutPolicy: timeout.Fixed(time.Nanosecond)}
		r, err := cl.NewRequest("GET", "/text")
		require.NoError(t, err)
		e, err := cl.DoSync(r)
		require.NoError(t, err)
		assert.Equal(t, "hello, world", string(e.Body))
	})
	t.Run("nested", func(t *testing.T) {
		var nestedErr error
		handlers := &HandlerGroup{}
		cl := &Client{BaseURL: documentURL(), Handlers: handlers}
		handlers.PushBack(BeforeHop, HandlerFunc(func(_ Event, e *request.Execution) {
			if nestedErr == nil {
				_, nestedErr = cl.DoSync(e.Request)
			}
		}))
		r, err := cl.NewRequest("GET", "/text")
		require.NoError(t, err)
		_, err = cl.DoSync(r)
		require.NoError(t, err)
		assert.True(t, errors.Is(nestedErr, failure.InvalidState))
	})
	t.Run("network error", func(t *testing.T) {
		cl := &Client{Transport: routeTransport{
			"GET http://api.test/x": func(*http.Request) (*http.Response, error) {
				return nil, errors.New("boom")
			},
		}}
		r, err := cl.NewRequest("GET", "http://api.test/x")
		require.NoError(t, err)
		e, err := cl.DoSync(r)
		assert.True(t, errors.Is(err, failure.Network))
		assert.Nil(t, e.Body)
	})
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func await(t *testing.T, f *Future) (*Response, error) {
	resp, err := f.Await(testContext(t))
	require.True(t, f.Done())
	return resp, err
}

func echoOf(t *testing.T, cl *Client, url string, init *Init) echo {
	resp, err := await(t, cl.Fetch(url, init))
	require.NoError(t, err)
	require.Equal(t, 200, resp.Status())
	b, err := resp.Bytes()
	require.NoError(t, err)
	var got echo
	require.NoError(t, json.Unmarshal(b, &got))
	return got
}

type mockTransport struct {
	mock.Mock
}

func newMockTransport(t *testing.T) *mockTransport {
	m := &mockTransport{}
	m.Test(t)
	return m
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	err := args.Error(1)
	if resp, ok := args.Get(0).(*http.Response); ok {
		return resp, err
	}
	return nil, err
}

type mockTransportWithCloseIdleConnections struct {
	mockTransport
}

func newMockTransportWithCloseIdleConnections(t *testing.T) *mockTransportWithCloseIdleConnections {
	m := &mockTransportWithCloseIdleConnections{}
	m.Test(t)
	return m
}

func (m *mockTransportWithCloseIdleConnections) CloseIdleConnections() {
	m.Called()
}
