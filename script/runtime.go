// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package script

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/gogama/fetchx"
	"github.com/gogama/fetchx/loop"
	"github.com/rs/zerolog"
)

// ModuleName is the name under which the bindings can be required.
const ModuleName = "fetchx"

var errPending = errors.New("fetchx/script: promise still pending after loop went idle")

// A RejectionError reports a promise rejected with a value that is not
// a Go error.
type RejectionError struct {
	Value goja.Value
}

func (e *RejectionError) Error() string {
	return "fetchx/script: promise rejected: " + e.Value.String()
}

// A Runtime is a goja runtime with the fetchx bindings installed.
type Runtime struct {
	vm        *goja.Runtime
	client    *fetchx.Client
	loop      *loop.Loop
	logger    *zerolog.Logger
	printer   console.Printer
	nativeKey *goja.Symbol

	nextTimer int64
	timers    map[int64]func() bool
}

// An Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger for callback failures and, unless
// WithPrinter is also given, console output. The default is the
// client's logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithPrinter sends console output to p instead of the logger.
func WithPrinter(p console.Printer) Option {
	return func(rt *Runtime) {
		rt.printer = p
	}
}

// New creates a runtime whose bindings dispatch through c. A nil c
// selects a zero value Client.
func New(c *fetchx.Client, opts ...Option) *Runtime {
	if c == nil {
		c = &fetchx.Client{}
	}
	nop := zerolog.Nop()
	rt := &Runtime{
		vm:        goja.New(),
		client:    c,
		loop:      c.Loop(),
		logger:    &nop,
		nativeKey: goja.NewSymbol("fetchx.native"),
		timers:    make(map[int64]func() bool),
	}
	if c.Logger != nil {
		rt.logger = c.Logger
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.printer == nil {
		rt.printer = &logPrinter{logger: rt.logger}
	}
	registry := require.NewRegistry()
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(rt.printer))
	registry.RegisterNativeModule(ModuleName, rt.loadModule)
	registry.Enable(rt.vm)
	console.Enable(rt.vm)

	rt.install(rt.vm.GlobalObject())
	return rt
}

// VM returns the underlying goja runtime.
func (rt *Runtime) VM() *goja.Runtime {
	return rt.vm
}

// Client returns the client the bindings dispatch through.
func (rt *Runtime) Client() *fetchx.Client {
	return rt.client
}

// Run evaluates src and then runs the loop until it is idle or ctx is
// done. When ctx is done the script is interrupted.
//
// If the completion value of src is a promise, Run returns its
// fulfilled value, or its rejection reason as an error. A promise
// still pending once the loop is idle is an error too.
func (rt *Runtime) Run(ctx context.Context, src string) (goja.Value, error) {
	rt.vm.ClearInterrupt()
	stop := context.AfterFunc(ctx, func() {
		rt.vm.Interrupt(ctx.Err())
	})
	defer stop()

	v, err := rt.vm.RunString(src)
	if err != nil {
		return nil, err
	}
	if err = rt.loop.Run(ctx); err != nil {
		return nil, err
	}
	return rt.settled(v)
}

func (rt *Runtime) settled(v goja.Value) (goja.Value, error) {
	if v == nil {
		return goja.Undefined(), nil
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, rt.toError(p.Result())
	default:
		return nil, errPending
	}
}

func (rt *Runtime) install(target *goja.Object) {
	must(target.Set("fetch", rt.fetch))
	must(target.Set("FormData", rt.newFormData))
	must(target.Set("AbortController", rt.newAbortController))
	must(target.Set("XMLHttpRequest", rt.xhrConstructor()))
	must(target.Set("setTimeout", rt.setTimeout))
	must(target.Set("clearTimeout", rt.clearTimeout))
}

func (rt *Runtime) loadModule(vm *goja.Runtime, module *goja.Object) {
	if vm != rt.vm {
		panic(vm.NewGoError(fmt.Errorf("fetchx/script: module %q is bound to another runtime", ModuleName)))
	}
	rt.install(module.Get("exports").(*goja.Object))
}

// invoke calls a script callback from Go. A thrown exception is logged,
// not propagated, just as a browser reports errors thrown by event
// handlers.
func (rt *Runtime) invoke(fn goja.Callable, this goja.Value, args ...goja.Value) {
	if _, err := fn(this, args...); err != nil {
		rt.logger.Error().Err(err).Msg("fetchx/script: callback threw")
	}
}

// native returns the Go value hidden behind a bound object, or nil.
func (rt *Runtime) native(v goja.Value) interface{} {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	n := obj.GetSymbol(rt.nativeKey)
	if n == nil {
		return nil
	}
	return n.Export()
}

func (rt *Runtime) setNative(obj *goja.Object, x interface{}) {
	must(obj.DefineDataPropertySymbol(rt.nativeKey, rt.vm.ToValue(x), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE))
}

// method installs a non-enumerable function property.
func (rt *Runtime) method(obj *goja.Object, name string, fn func(goja.FunctionCall) goja.Value) {
	must(obj.DefineDataProperty(name, rt.vm.ToValue(fn), goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE))
}

// getter installs a read-only accessor property.
func (rt *Runtime) getter(obj *goja.Object, name string, get func() interface{}) {
	rt.accessor(obj, name, get, nil)
}

func (rt *Runtime) accessor(obj *goja.Object, name string, get func() interface{}, set func(goja.Value)) {
	getter := rt.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return rt.vm.ToValue(get())
	})
	var setter goja.Value
	if set != nil {
		setter = rt.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	must(obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE))
}

func nullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
