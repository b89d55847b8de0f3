// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package script

import (
	"github.com/dop251/goja"
	"github.com/gogama/fetchx/body"
)

// newFormData constructs a FormData backed by a *body.FormData. A
// value given as an ArrayBuffer or typed array becomes a file entry.
func (rt *Runtime) newFormData(call goja.ConstructorCall) *goja.Object {
	fd := body.NewFormData()
	obj := call.This
	rt.setNative(obj, fd)

	rt.method(obj, "append", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if blob, ok := rt.toBlob(call.Argument(1)); ok {
			fd.AppendFile(name, blob, filename(call.Argument(2)))
		} else {
			fd.Append(name, call.Argument(1).String())
		}
		return goja.Undefined()
	})
	rt.method(obj, "set", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if blob, ok := rt.toBlob(call.Argument(1)); ok {
			fd.SetFile(name, blob, filename(call.Argument(2)))
		} else {
			fd.Set(name, call.Argument(1).String())
		}
		return goja.Undefined()
	})
	rt.method(obj, "get", func(call goja.FunctionCall) goja.Value {
		e, ok := fd.Get(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return rt.entryValue(e)
	})
	rt.method(obj, "getAll", func(call goja.FunctionCall) goja.Value {
		entries := fd.GetAll(call.Argument(0).String())
		values := make([]interface{}, len(entries))
		for i, e := range entries {
			values[i] = rt.entryValue(e)
		}
		return rt.vm.NewArray(values...)
	})
	rt.method(obj, "has", func(call goja.FunctionCall) goja.Value {
		return rt.vm.ToValue(fd.Has(call.Argument(0).String()))
	})
	rt.method(obj, "delete", func(call goja.FunctionCall) goja.Value {
		fd.Delete(call.Argument(0).String())
		return goja.Undefined()
	})
	rt.method(obj, "entries", func(goja.FunctionCall) goja.Value {
		entries := fd.Entries()
		pairs := make([]interface{}, len(entries))
		for i, e := range entries {
			pairs[i] = rt.vm.NewArray(e.Name, rt.entryValue(e))
		}
		return rt.vm.NewArray(pairs...)
	})
	return nil
}

func (rt *Runtime) toBlob(v goja.Value) (body.Blob, bool) {
	switch x := v.Export().(type) {
	case goja.ArrayBuffer:
		return body.Blob{Data: x.Bytes()}, true
	case []byte:
		return body.Blob{Data: x}, true
	}
	return body.Blob{}, false
}

// entryValue returns a text entry as a string and a file entry as an
// object with name, type and size.
func (rt *Runtime) entryValue(e body.FormEntry) goja.Value {
	if !e.IsFile() {
		return rt.vm.ToValue(e.Value)
	}
	obj := rt.vm.NewObject()
	must(obj.Set("name", e.File.Name))
	must(obj.Set("type", e.File.Type))
	must(obj.Set("size", len(e.File.Data)))
	return obj
}

func filename(v goja.Value) string {
	if nullish(v) {
		return ""
	}
	return v.String()
}
