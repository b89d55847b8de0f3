// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package script

import (
	"github.com/dop251/goja"
	"github.com/gogama/fetchx"
)

func (rt *Runtime) newAbortController(call goja.ConstructorCall) *goja.Object {
	c := fetchx.NewAbortController()
	obj := call.This
	rt.setNative(obj, c)

	signal := rt.newAbortSignal(c.Signal())
	must(obj.DefineDataProperty("signal", signal, goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE))
	rt.method(obj, "abort", func(call goja.FunctionCall) goja.Value {
		var reason error
		if v := call.Argument(0); !goja.IsUndefined(v) {
			reason = &scriptReason{value: v}
		}
		c.Abort(reason)
		return goja.Undefined()
	})
	return nil
}

func (rt *Runtime) newAbortSignal(s *fetchx.AbortSignal) *goja.Object {
	obj := rt.vm.NewObject()
	rt.setNative(obj, s)

	var onabort goja.Value = goja.Null()
	var listeners []goja.Value

	rt.getter(obj, "aborted", func() interface{} { return s.Aborted() })
	rt.getter(obj, "reason", func() interface{} {
		if reason := s.Reason(); reason != nil {
			return rt.toValue(reason)
		}
		return goja.Undefined()
	})
	rt.accessor(obj, "onabort", func() interface{} { return onabort }, func(v goja.Value) {
		onabort = v
	})
	rt.method(obj, "addEventListener", func(call goja.FunctionCall) goja.Value {
		if call.Argument(0).String() == "abort" {
			listeners = append(listeners, call.Argument(1))
		}
		return goja.Undefined()
	})
	rt.method(obj, "removeEventListener", func(call goja.FunctionCall) goja.Value {
		if call.Argument(0).String() == "abort" {
			listeners = removeValue(listeners, call.Argument(1))
		}
		return goja.Undefined()
	})

	s.OnAbort(func(error) {
		evt := rt.vm.NewObject()
		must(evt.Set("type", "abort"))
		must(evt.Set("target", obj))
		if fn, ok := goja.AssertFunction(onabort); ok {
			rt.invoke(fn, obj, evt)
		}
		for _, l := range append([]goja.Value(nil), listeners...) {
			if fn, ok := goja.AssertFunction(l); ok {
				rt.invoke(fn, obj, evt)
			}
		}
	})
	return obj
}

// removeValue removes the first element of vs that is the same value
// as v.
func removeValue(vs []goja.Value, v goja.Value) []goja.Value {
	for i, x := range vs {
		if x.SameAs(v) {
			return append(vs[:i:i], vs[i+1:]...)
		}
	}
	return vs
}
