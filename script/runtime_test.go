// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/gogama/fetchx"
	"github.com/gogama/fetchx/failure"
	"github.com/rs/zerolog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	t.Run("JSON", testFetchJSON)
	t.Run("FormData", testFetchFormData)
	t.Run("body used", testFetchBodyUsed)
	t.Run("headers", testFetchHeaders)
	t.Run("network error", testFetchNetworkError)
	t.Run("abort", testFetchAbort)
}

func TestXMLHttpRequest(t *testing.T) {
	t.Run("async", testXHRAsync)
	t.Run("authorization", testXHRAuthorization)
	t.Run("sync", testXHRSync)
	t.Run("handlers", testXHRHandlers)
	t.Run("response type", testXHRResponseType)
	t.Run("invalid state", testXHRInvalidState)
}

func TestRuntime(t *testing.T) {
	t.Run("completion value", testCompletionValue)
	t.Run("rejection", testRejection)
	t.Run("timers", testTimers)
	t.Run("console", testConsole)
	t.Run("require", testRequire)
	t.Run("interrupt", testInterrupt)
	t.Run("callback error", testCallbackError)
}

func testFetchJSON(t *testing.T) {
	rt := newRuntime(t, newServer(t))
	v := run(t, rt, `(async () => {
		const response = await fetch(base + '/get/json');
		const json = await response.json();
		return {
			contentType: response.headers.get('content-type'),
			ok: response.ok,
			status: response.status,
			statusText: response.statusText,
			url: response.url,
			redirected: response.redirected,
			key1: json.key1,
		};
	})()`)

	m := v.Export().(map[string]interface{})
	assert.Equal(t, "application/json; charset=utf-8", m["contentType"])
	assert.Equal(t, true, m["ok"])
	assert.EqualValues(t, 200, m["status"])
	assert.Equal(t, "OK", m["statusText"])
	assert.Equal(t, baseOf(rt)+"/get/json", m["url"])
	assert.Equal(t, false, m["redirected"])
	assert.Equal(t, "value1", m["key1"])
}

func testFetchFormData(t *testing.T) {
	rt := newRuntime(t, newServer(t))
	v := run(t, rt, `(async () => {
		const requestFormData = new FormData();
		requestFormData.append('key1', 'value1');
		requestFormData.append('key2', 'value2');
		const response = await fetch(base + '/post/formdata', {
			method: 'POST',
			body: requestFormData,
		});
		return [response.headers.get('content-type'), response.status, await response.text()];
	})()`)

	var got []interface{}
	require.NoError(t, rt.VM().ExportTo(v, &got))
	require.Len(t, got, 3)
	assert.Equal(t, "text/html; charset=utf-8", got[0])
	assert.EqualValues(t, 200, got[1])
	boundary := regexp.MustCompile(`----FetchxFormDataBoundary\d+\.[a-zA-Z0-9]+`)
	assert.Equal(t,
		"header:\nmultipart/form-data; boundary=----FetchxFormDataBoundary0.noRandom\n\nbody:\n"+
			"------FetchxFormDataBoundary0.noRandom\r\nContent-Disposition: form-data; name=\"key1\"\r\n\r\nvalue1\r\n"+
			"------FetchxFormDataBoundary0.noRandom\r\nContent-Disposition: form-data; name=\"key2\"\r\n\r\nvalue2\r\n"+
			"------FetchxFormDataBoundary0.noRandom--\r\n",
		boundary.ReplaceAllString(got[2].(string), "----FetchxFormDataBoundary0.noRandom"))
}

func testFetchBodyUsed(t *testing.T) {
	rt := newRuntime(t, newServer(t))
	v := run(t, rt, `(async () => {
		const response = await fetch(base + '/get/json');
		const before = response.bodyUsed;
		await response.text();
		try {
			await response.text();
			return 'no error';
		} catch (e) {
			return [before, response.bodyUsed, e.name].join(' ');
		}
	})()`)
	assert.Equal(t, "false true BodyConsumedError", v.String())
}

func testFetchHeaders(t *testing.T) {
	rt := newRuntime(t, newServer(t))
	v := run(t, rt, `(async () => {
		const response = await fetch(base + '/echo', {
			method: 'PUT',
			headers: [['X-Custom', 'a'], ['x-custom', 'b']],
			body: 'payload',
		});
		const seen = [];
		response.headers.forEach((value, name) => seen.push(name + '=' + value));
		return [await response.text(), response.headers.has('X-Echo'), response.headers.get('missing'), seen.includes('x-echo=1')].join('|');
	})()`)
	assert.Equal(t, "PUT payload a, b|true||true", v.String())
}

func testFetchNetworkError(t *testing.T) {
	cl := &fetchx.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})}
	rt := New(cl)

	v := run(t, rt, `fetch('http://unreachable.test/x').then(() => 'resolved', e => e.name)`)
	assert.Equal(t, "NetworkError", v.String())

	_, err := rt.Run(testContext(t), `fetch('http://unreachable.test/x')`)
	assert.True(t, errors.Is(err, failure.Network))
}

func testFetchAbort(t *testing.T) {
	rt := newRuntime(t, newServer(t))

	t.Run("default reason", func(t *testing.T) {
		v := run(t, rt, `(async () => {
			const controller = new AbortController();
			let fired = 0;
			controller.signal.addEventListener('abort', () => fired++);
			const p = fetch(base + '/slow', { signal: controller.signal });
			controller.abort();
			controller.abort();
			try {
				await p;
				return 'resolved';
			} catch (e) {
				return [e.name, controller.signal.aborted, fired].join(' ');
			}
		})()`)
		assert.Equal(t, "AbortError true 1", v.String())
	})
	t.Run("script reason", func(t *testing.T) {
		v := run(t, rt, `(async () => {
			const controller = new AbortController();
			const reason = { why: 'stop' };
			const p = fetch(base + '/slow', { signal: controller.signal });
			controller.abort(reason);
			try {
				await p;
				return 'resolved';
			} catch (e) {
				return e === reason && controller.signal.reason === reason;
			}
		})()`)
		assert.Equal(t, true, v.Export())
	})
	t.Run("already aborted", func(t *testing.T) {
		v := run(t, rt, `(async () => {
			const controller = new AbortController();
			controller.abort();
			return fetch(base + '/get/json', { signal: controller.signal }).catch(e => e.name);
		})()`)
		assert.Equal(t, "AbortError", v.String())
	})
}

func testXHRAsync(t *testing.T) {
	rt := newRuntime(t, newServer(t))
	run(t, rt, `
		var result = null;
		var events = [];
		const request = new XMLHttpRequest();
		request.open('GET', base + '/get/json', true);
		request.addEventListener('readystatechange', () => events.push('readystatechange:' + request.readyState));
		request.addEventListener('load', () => {
			result = {
				contentType: request.getResponseHeader('content-type'),
				responseText: request.responseText,
				status: request.status,
				statusText: request.statusText,
				responseURL: request.responseURL,
			};
		});
		request.addEventListener('loadend', () => events.push('loadend'));
		request.send();
	`)

	m := rt.VM().Get("result").Export().(map[string]interface{})
	assert.Equal(t, "application/json; charset=utf-8", m["contentType"])
	assert.Equal(t, `{ "key1": "value1" }`, m["responseText"])
	assert.EqualValues(t, 200, m["status"])
	assert.Equal(t, "OK", m["statusText"])
	assert.Equal(t, baseOf(rt)+"/get/json", m["responseURL"])

	var events []string
	require.NoError(t, rt.VM().ExportTo(rt.VM().Get("events"), &events))
	require.NotEmpty(t, events)
	assert.Equal(t, "readystatechange:2", events[0])
	assert.Equal(t, "loadend", events[len(events)-1])
	assert.Contains(t, events, "readystatechange:4")
}

func testXHRAuthorization(t *testing.T) {
	srv := newServer(t)
	rt := New(&fetchx.Client{BaseURL: mustParse(t, srv.URL+"/")})
	require.NoError(t, rt.VM().Set("base", srv.URL))
	run(t, rt, `
		var status = 0;
		const request = new XMLHttpRequest();
		request.open('GET', base + '/get/auth', true);
		request.setRequestHeader('Authorization', 'Basic test');
		request.addEventListener('load', () => { status = request.status; });
		request.send();
	`)
	assert.EqualValues(t, 200, rt.VM().Get("status").Export())
}

func testXHRSync(t *testing.T) {
	rt := newRuntime(t, newServer(t))
	v := run(t, rt, `
		const fired = [];
		const request = new XMLHttpRequest();
		request.onreadystatechange = () => fired.push(request.readyState);
		request.open('GET', base + '/get/json', false);
		request.send();
		[fired.length, request.readyState, request.status, request.responseText].join('|');
	`)
	assert.Equal(t, `0|4|200|{ "key1": "value1" }`, v.String())
}

func testXHRHandlers(t *testing.T) {
	rt := newRuntime(t, newServer(t))
	run(t, rt, `
		var calls = [];
		const request = new XMLHttpRequest();
		const listener = () => calls.push('listener');
		request.addEventListener('load', listener);
		request.addEventListener('load', listener);
		request.onload = function (e) { calls.push('onload:' + e.type + ':' + (this === request)); };
		request.addEventListener('load', () => calls.push('second'));
		request.removeEventListener('load', listener);
		request.open('GET', base + '/get/json');
		request.send();
	`)
	var calls []string
	require.NoError(t, rt.VM().ExportTo(rt.VM().Get("calls"), &calls))
	assert.Equal(t, []string{"onload:load:true", "second"}, calls)
	assert.Equal(t, int64(4), rt.VM().Get("XMLHttpRequest").ToObject(rt.VM()).Get("DONE").ToInteger())
}

func testXHRResponseType(t *testing.T) {
	rt := newRuntime(t, newServer(t))
	v := run(t, rt, `(async () => {
		const request = new XMLHttpRequest();
		request.responseType = 'json';
		await new Promise(resolve => {
			request.onloadend = resolve;
			request.open('GET', base + '/get/json');
			request.send();
		});
		let threw = '';
		try {
			request.responseText;
		} catch (e) {
			threw = e.name;
		}
		return request.response.key1 + ' ' + threw;
	})()`)
	assert.Equal(t, "value1 InvalidStateError", v.String())
}

func testXHRInvalidState(t *testing.T) {
	rt := newRuntime(t, newServer(t))
	v := run(t, rt, `
		const request = new XMLHttpRequest();
		let name = '';
		try {
			request.send();
		} catch (e) {
			name = e.name;
		}
		name;
	`)
	assert.Equal(t, "InvalidStateError", v.String())
}

func testCompletionValue(t *testing.T) {
	rt := New(nil)
	v := run(t, rt, `1 + 2`)
	assert.EqualValues(t, 3, v.Export())

	v = run(t, rt, `Promise.resolve('done')`)
	assert.Equal(t, "done", v.String())

	_, err := rt.Run(testContext(t), `new Promise(() => {})`)
	assert.Equal(t, errPending, err)
}

func testRejection(t *testing.T) {
	rt := New(nil)
	_, err := rt.Run(testContext(t), `Promise.reject(new Error('boom'))`)
	var rej *RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Contains(t, rej.Error(), "boom")

	_, err = rt.Run(testContext(t), `throw new TypeError('bad')`)
	var ex *goja.Exception
	require.True(t, errors.As(err, &ex))
	assert.Contains(t, ex.Error(), "bad")
}

func testTimers(t *testing.T) {
	rt := New(nil)
	v := run(t, rt, `(async () => {
		const log = [];
		setTimeout((x) => log.push(x), 20, 'late');
		setTimeout(() => log.push('early'), 1);
		const cancelled = setTimeout(() => log.push('cancelled'), 5);
		clearTimeout(cancelled);
		clearTimeout(12345);
		log.push('sync');
		await new Promise(resolve => setTimeout(resolve, 40));
		return log.join(',');
	})()`)
	assert.Equal(t, "sync,early,late", v.String())
}

func testConsole(t *testing.T) {
	t.Run("printer", func(t *testing.T) {
		p := &recordingPrinter{}
		rt := New(nil, WithPrinter(p))
		run(t, rt, `console.log('a', 1); console.warn('b'); console.error('c')`)
		assert.Equal(t, []string{"log:a 1", "warn:b", "error:c"}, p.lines)
	})
	t.Run("logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)
		rt := New(nil, WithLogger(&logger))
		run(t, rt, `console.info('hello')`)
		assert.Contains(t, buf.String(), `"level":"info"`)
		assert.Contains(t, buf.String(), `"source":"console"`)
		assert.Contains(t, buf.String(), `"message":"hello"`)
	})
}

func testRequire(t *testing.T) {
	rt := New(nil)
	v := run(t, rt, `
		const fx = require('fetchx');
		[typeof fx.fetch, typeof fx.FormData, typeof fx.XMLHttpRequest, typeof fx.AbortController].join(',');
	`)
	assert.Equal(t, "function,function,function,function", v.String())
}

func testInterrupt(t *testing.T) {
	rt := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := rt.Run(ctx, `for (;;) {}`)
	var interrupted *goja.InterruptedError
	assert.True(t, errors.As(err, &interrupted))

	v := run(t, rt, `'usable again'`)
	assert.Equal(t, "usable again", v.String())
}

func testCallbackError(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	rt := New(nil, WithLogger(&logger))
	v := run(t, rt, `
		var after = false;
		setTimeout(() => { throw new Error('kaput'); }, 0);
		setTimeout(() => { after = true; }, 1);
	`)
	// Completion value is the id of the second timer.
	assert.EqualValues(t, 2, v.Export())
	assert.Equal(t, true, rt.VM().Get("after").Export())
	assert.Contains(t, buf.String(), "fetchx/script: callback threw")
	assert.Contains(t, buf.String(), "kaput")
}

type recordingPrinter struct {
	lines []string
}

func (p *recordingPrinter) Log(s string)   { p.lines = append(p.lines, "log:"+s) }
func (p *recordingPrinter) Warn(s string)  { p.lines = append(p.lines, "warn:"+s) }
func (p *recordingPrinter) Error(s string) { p.lines = append(p.lines, "error:"+s) }

func newRuntime(t *testing.T, srv *httptest.Server) *Runtime {
	rt := New(&fetchx.Client{ContentTypeCharset: "utf-8"})
	require.NoError(t, rt.VM().Set("base", srv.URL))
	return rt
}

func baseOf(rt *Runtime) string {
	return rt.VM().Get("base").String()
}

func run(t *testing.T, rt *Runtime, src string) goja.Value {
	v, err := rt.Run(testContext(t), src)
	require.NoError(t, err)
	return v
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func mustParse(t *testing.T, rawURL string) *url.URL {
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get/json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{ "key1": "value1" }`)
		case "/get/auth":
			if r.Header.Get("Authorization") != "Basic test" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/post/formdata":
			b, _ := ioutil.ReadAll(r.Body)
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprintf(w, "header:\n%s\n\nbody:\n%s", r.Header.Get("Content-Type"), b)
		case "/echo":
			b, _ := ioutil.ReadAll(r.Body)
			w.Header().Set("X-Echo", "1")
			w.Header().Set("Content-Type", "text/plain")
			_, _ = fmt.Fprintf(w, "%s %s %s", r.Method, b, strings.Join(r.Header.Values("X-Custom"), ", "))
		case "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}
