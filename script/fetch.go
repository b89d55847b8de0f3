// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package script

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/gogama/fetchx"
	"github.com/gogama/fetchx/body"
	"github.com/gogama/fetchx/header"
	"github.com/gogama/fetchx/origin"
	"github.com/gogama/fetchx/request"
)

func (rt *Runtime) fetch(call goja.FunctionCall) goja.Value {
	p, resolve, reject := rt.vm.NewPromise()
	init, err := rt.fetchInit(call.Argument(1))
	if err != nil {
		_ = reject(rt.toValue(err))
		return rt.vm.ToValue(p)
	}
	f := rt.client.Fetch(call.Argument(0).String(), init)
	f.Then(func(resp *fetchx.Response, err error) {
		if err != nil {
			_ = reject(rt.toValue(err))
			return
		}
		_ = resolve(rt.newResponse(resp))
	})
	return rt.vm.ToValue(p)
}

func (rt *Runtime) fetchInit(v goja.Value) (*fetchx.Init, error) {
	init := &fetchx.Init{}
	if nullish(v) {
		return init, nil
	}
	obj := v.ToObject(rt.vm)
	if m := obj.Get("method"); !nullish(m) {
		init.Method = m.String()
	}
	if h := obj.Get("headers"); !nullish(h) {
		hdr, err := rt.toHeader(h)
		if err != nil {
			return nil, err
		}
		init.Header = hdr
	}
	if b := obj.Get("body"); !nullish(b) {
		init.Body = rt.toBody(b)
	}
	if c := obj.Get("credentials"); !nullish(c) {
		init.Credentials = origin.ParseCredentials(c.String())
	}
	if r := obj.Get("redirect"); !nullish(r) {
		init.Redirect = request.ParseRedirectMode(r.String())
	}
	if s := obj.Get("signal"); !nullish(s) {
		sig, ok := rt.native(s).(*fetchx.AbortSignal)
		if !ok {
			return nil, fmt.Errorf("fetchx/script: signal is not an AbortSignal")
		}
		init.Signal = sig
	}
	return init, nil
}

// toHeader accepts a response headers object, an array of name/value
// pairs, or a plain object.
func (rt *Runtime) toHeader(v goja.Value) (*header.Header, error) {
	if h, ok := rt.native(v).(*header.Header); ok {
		return h.Clone(), nil
	}
	h := header.New()
	obj := v.ToObject(rt.vm)
	if obj.ClassName() == "Array" {
		var pairs [][]string
		if err := rt.vm.ExportTo(v, &pairs); err != nil {
			return nil, err
		}
		for _, pair := range pairs {
			if len(pair) != 2 {
				return nil, fmt.Errorf("fetchx/script: header pair must have exactly two items, got %d", len(pair))
			}
			if err := h.Append(pair[0], pair[1]); err != nil {
				return nil, err
			}
		}
		return h, nil
	}
	for _, k := range obj.Keys() {
		if err := h.Append(k, obj.Get(k).String()); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// toBody converts a script body to a value accepted by body.From.
// Values with no better mapping are sent as their string form.
func (rt *Runtime) toBody(v goja.Value) interface{} {
	if fd, ok := rt.native(v).(*body.FormData); ok {
		return fd
	}
	switch x := v.Export().(type) {
	case string:
		return x
	case goja.ArrayBuffer:
		return x.Bytes()
	case []byte:
		return x
	}
	return v.String()
}

func (rt *Runtime) newResponse(resp *fetchx.Response) *goja.Object {
	obj := rt.vm.NewObject()
	rt.setNative(obj, resp)
	must(obj.Set("status", resp.Status()))
	must(obj.Set("statusText", resp.StatusText()))
	must(obj.Set("ok", resp.OK()))
	must(obj.Set("url", resp.URL()))
	must(obj.Set("redirected", resp.Redirected()))
	must(obj.Set("headers", rt.newHeaders(resp.Header())))
	rt.getter(obj, "bodyUsed", func() interface{} { return resp.BodyUsed() })

	rt.method(obj, "text", func(goja.FunctionCall) goja.Value {
		return rt.consumeText(resp, func(s string) (goja.Value, error) {
			return rt.vm.ToValue(s), nil
		})
	})
	rt.method(obj, "json", func(goja.FunctionCall) goja.Value {
		return rt.consumeText(resp, rt.parseJSON)
	})
	rt.method(obj, "arrayBuffer", func(goja.FunctionCall) goja.Value {
		p, resolve, reject := rt.vm.NewPromise()
		err := resp.Consume(func(b []byte, err error) {
			if err != nil {
				_ = reject(rt.toValue(err))
				return
			}
			_ = resolve(rt.vm.NewArrayBuffer(b))
		})
		if err != nil {
			_ = reject(rt.toValue(err))
		}
		return rt.vm.ToValue(p)
	})
	return obj
}

func (rt *Runtime) consumeText(resp *fetchx.Response, convert func(string) (goja.Value, error)) goja.Value {
	p, resolve, reject := rt.vm.NewPromise()
	err := resp.ConsumeText(func(s string, err error) {
		if err != nil {
			_ = reject(rt.toValue(err))
			return
		}
		v, err := convert(s)
		if err != nil {
			_ = reject(rt.exceptionValue(err))
			return
		}
		_ = resolve(v)
	})
	if err != nil {
		_ = reject(rt.toValue(err))
	}
	return rt.vm.ToValue(p)
}

// parseJSON parses with the script's own JSON.parse, so that the
// result is made of ordinary script objects.
func (rt *Runtime) parseJSON(s string) (goja.Value, error) {
	parse, ok := goja.AssertFunction(rt.vm.Get("JSON").ToObject(rt.vm).Get("parse"))
	if !ok {
		return nil, fmt.Errorf("fetchx/script: JSON.parse is not a function")
	}
	return parse(goja.Undefined(), rt.vm.ToValue(s))
}

// exceptionValue unwraps a script exception to the thrown value.
func (rt *Runtime) exceptionValue(err error) goja.Value {
	if ex, ok := err.(*goja.Exception); ok {
		return ex.Value()
	}
	return rt.toValue(err)
}

func (rt *Runtime) newHeaders(h *header.Header) *goja.Object {
	obj := rt.vm.NewObject()
	rt.setNative(obj, h)
	rt.method(obj, "get", func(call goja.FunctionCall) goja.Value {
		v, ok := h.Get(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return rt.vm.ToValue(v)
	})
	rt.method(obj, "has", func(call goja.FunctionCall) goja.Value {
		return rt.vm.ToValue(h.Has(call.Argument(0).String()))
	})
	rt.method(obj, "forEach", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(rt.vm.NewTypeError("forEach requires a function"))
		}
		for _, f := range h.Sorted() {
			if _, err := fn(call.Argument(1), rt.vm.ToValue(f.Value), rt.vm.ToValue(f.Name), obj); err != nil {
				panic(rt.exceptionValue(err))
			}
		}
		return goja.Undefined()
	})
	rt.method(obj, "entries", func(goja.FunctionCall) goja.Value {
		fields := h.Sorted()
		pairs := make([]interface{}, len(fields))
		for i, f := range fields {
			pairs[i] = rt.vm.NewArray(f.Name, f.Value)
		}
		return rt.vm.NewArray(pairs...)
	})
	rt.method(obj, "keys", func(goja.FunctionCall) goja.Value {
		fields := h.Sorted()
		names := make([]interface{}, len(fields))
		for i, f := range fields {
			names[i] = f.Name
		}
		return rt.vm.NewArray(names...)
	})
	return obj
}
