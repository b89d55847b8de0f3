// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package script

import (
	"time"

	"github.com/dop251/goja"
)

func (rt *Runtime) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(rt.vm.NewTypeError("setTimeout requires a function as first argument"))
	}
	delay := call.Argument(1).ToInteger()
	if delay < 0 {
		delay = 0
	}
	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	rt.nextTimer++
	id := rt.nextTimer
	rt.timers[id] = rt.loop.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
		if _, ok := rt.timers[id]; !ok {
			return
		}
		delete(rt.timers, id)
		rt.invoke(fn, goja.Undefined(), args...)
	})
	return rt.vm.ToValue(id)
}

// clearTimeout silently ignores unknown ids.
func (rt *Runtime) clearTimeout(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if stop, ok := rt.timers[id]; ok {
		delete(rt.timers, id)
		stop()
	}
	return goja.Undefined()
}
