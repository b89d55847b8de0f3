// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package script

import (
	"errors"
	"time"

	"github.com/dop251/goja"
	"github.com/gogama/fetchx/failure"
	"github.com/gogama/fetchx/xhr"
)

var errResponseType = errors.New(`responseText needs responseType "" or "text"`)

var readyStates = []xhr.State{xhr.Unsent, xhr.Opened, xhr.HeadersReceived, xhr.Loading, xhr.Done}

func (rt *Runtime) xhrConstructor() *goja.Object {
	ctor := rt.vm.ToValue(rt.newXHR).(*goja.Object)
	for _, s := range readyStates {
		must(ctor.Set(s.String(), int(s)))
	}
	return ctor
}

type scriptListener struct {
	fn goja.Value
	id xhr.ListenerID
}

// xhrBinding holds the script-side state of one XMLHttpRequest.
type xhrBinding struct {
	rt           *Runtime
	x            *xhr.XMLHttpRequest
	obj          *goja.Object
	responseType string
	handlers     map[xhr.EventType]goja.Value
	listeners    map[xhr.EventType][]scriptListener
}

func (rt *Runtime) newXHR(call goja.ConstructorCall) *goja.Object {
	b := &xhrBinding{
		rt:        rt,
		x:         xhr.New(rt.client),
		obj:       call.This,
		handlers:  make(map[xhr.EventType]goja.Value),
		listeners: make(map[xhr.EventType][]scriptListener),
	}
	rt.setNative(b.obj, b.x)
	for _, s := range readyStates {
		must(b.obj.Set(s.String(), int(s)))
	}
	b.bindMethods()
	b.bindProperties()
	for _, typ := range xhr.EventTypes() {
		b.bindHandler(typ)
	}
	return nil
}

func (b *xhrBinding) bindMethods() {
	rt, x := b.rt, b.x
	rt.method(b.obj, "open", func(call goja.FunctionCall) goja.Value {
		async := true
		if v := call.Argument(2); len(call.Arguments) > 2 && !goja.IsUndefined(v) {
			async = v.ToBoolean()
		}
		if err := x.Open(call.Argument(0).String(), call.Argument(1).String(), async); err != nil {
			rt.throw(err)
		}
		return goja.Undefined()
	})
	rt.method(b.obj, "setRequestHeader", func(call goja.FunctionCall) goja.Value {
		if err := x.SetRequestHeader(call.Argument(0).String(), call.Argument(1).String()); err != nil {
			rt.throw(err)
		}
		return goja.Undefined()
	})
	rt.method(b.obj, "send", func(call goja.FunctionCall) goja.Value {
		var payload interface{}
		if v := call.Argument(0); !nullish(v) {
			payload = rt.toBody(v)
		}
		if err := x.Send(payload); err != nil {
			rt.throw(err)
		}
		return goja.Undefined()
	})
	rt.method(b.obj, "abort", func(goja.FunctionCall) goja.Value {
		x.Abort()
		return goja.Undefined()
	})
	rt.method(b.obj, "getResponseHeader", func(call goja.FunctionCall) goja.Value {
		v, ok := x.GetResponseHeader(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return rt.vm.ToValue(v)
	})
	rt.method(b.obj, "getAllResponseHeaders", func(goja.FunctionCall) goja.Value {
		return rt.vm.ToValue(x.GetAllResponseHeaders())
	})
	rt.method(b.obj, "addEventListener", func(call goja.FunctionCall) goja.Value {
		b.addListener(xhr.EventType(call.Argument(0).String()), call.Argument(1))
		return goja.Undefined()
	})
	rt.method(b.obj, "removeEventListener", func(call goja.FunctionCall) goja.Value {
		b.removeListener(xhr.EventType(call.Argument(0).String()), call.Argument(1))
		return goja.Undefined()
	})
}

func (b *xhrBinding) bindProperties() {
	rt, x := b.rt, b.x
	rt.getter(b.obj, "readyState", func() interface{} { return int(x.ReadyState()) })
	rt.getter(b.obj, "status", func() interface{} { return x.Status() })
	rt.getter(b.obj, "statusText", func() interface{} { return x.StatusText() })
	rt.getter(b.obj, "responseURL", func() interface{} { return x.ResponseURL() })
	rt.getter(b.obj, "responseText", func() interface{} {
		if b.responseType != "" && b.responseType != "text" {
			rt.throw(failure.New(failure.InvalidState, "ResponseText", "", errResponseType))
		}
		return x.ResponseText()
	})
	rt.getter(b.obj, "response", b.response)
	rt.accessor(b.obj, "responseType", func() interface{} { return b.responseType }, func(v goja.Value) {
		switch t := v.String(); t {
		case "", "text", "json", "arraybuffer":
			b.responseType = t
		}
	})
	rt.accessor(b.obj, "timeout", func() interface{} {
		return x.Timeout().Milliseconds()
	}, func(v goja.Value) {
		x.SetTimeout(time.Duration(v.ToInteger()) * time.Millisecond)
	})
	rt.accessor(b.obj, "withCredentials", func() interface{} { return x.WithCredentials() }, func(v goja.Value) {
		if err := x.SetWithCredentials(v.ToBoolean()); err != nil {
			rt.throw(err)
		}
	})
}

// response follows responseType. Text is visible while loading; the
// other types only once the request is DONE.
func (b *xhrBinding) response() interface{} {
	switch b.responseType {
	case "", "text":
		return b.x.ResponseText()
	}
	if b.x.ReadyState() != xhr.Done || b.x.Err() != nil {
		return goja.Null()
	}
	if b.responseType == "arraybuffer" {
		return b.rt.vm.NewArrayBuffer(b.x.Response())
	}
	v, err := b.rt.parseJSON(b.x.ResponseText())
	if err != nil {
		return goja.Null()
	}
	return v
}

// bindHandler installs the on<type> property. The handler takes its
// place among the listeners when it is first set, as in a browser.
func (b *xhrBinding) bindHandler(typ xhr.EventType) {
	registered := false
	b.handlers[typ] = goja.Null()
	b.rt.accessor(b.obj, "on"+string(typ), func() interface{} {
		return b.handlers[typ]
	}, func(v goja.Value) {
		if _, ok := goja.AssertFunction(v); !ok {
			v = goja.Null()
		}
		b.handlers[typ] = v
		if registered {
			return
		}
		registered = true
		b.x.AddEventListener(typ, func(evt xhr.Event) {
			if fn, ok := goja.AssertFunction(b.handlers[typ]); ok {
				b.rt.invoke(fn, b.obj, b.event(evt))
			}
		})
	})
}

func (b *xhrBinding) addListener(typ xhr.EventType, v goja.Value) {
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return
	}
	for _, l := range b.listeners[typ] {
		if l.fn.SameAs(v) {
			return
		}
	}
	id := b.x.AddEventListener(typ, func(evt xhr.Event) {
		b.rt.invoke(fn, b.obj, b.event(evt))
	})
	b.listeners[typ] = append(b.listeners[typ], scriptListener{fn: v, id: id})
}

func (b *xhrBinding) removeListener(typ xhr.EventType, v goja.Value) {
	ls := b.listeners[typ]
	for i, l := range ls {
		if l.fn.SameAs(v) {
			b.x.RemoveEventListener(l.id)
			b.listeners[typ] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

func (b *xhrBinding) event(evt xhr.Event) *goja.Object {
	obj := b.rt.vm.NewObject()
	must(obj.Set("type", string(evt.Type)))
	must(obj.Set("target", b.obj))
	must(obj.Set("currentTarget", b.obj))
	must(obj.Set("loaded", evt.Loaded))
	must(obj.Set("total", evt.Total))
	must(obj.Set("lengthComputable", evt.LengthComputable))
	return obj
}
