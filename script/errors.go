// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package script

import (
	"errors"

	"github.com/dop251/goja"
	"github.com/gogama/fetchx/failure"
)

// scriptReason carries a script value used as an abort reason through
// Go code, so that it can be handed back to the script unchanged.
type scriptReason struct {
	value goja.Value
}

func (r *scriptReason) Error() string {
	return r.value.String()
}

// toValue converts a Go error into a script Error whose name is the
// failure kind. Reasons which came from the script are returned as is.
func (rt *Runtime) toValue(err error) goja.Value {
	var reason *scriptReason
	if errors.As(err, &reason) {
		return reason.value
	}
	obj := rt.vm.NewGoError(err)
	must(obj.Set("name", errorName(err)))
	return obj
}

// toError converts a script value back into a Go error.
func (rt *Runtime) toError(v goja.Value) error {
	if obj, ok := v.(*goja.Object); ok {
		if x := obj.Get("value"); x != nil {
			if err, ok := x.Export().(error); ok {
				return err
			}
		}
	}
	return &RejectionError{Value: v}
}

// throw raises err as a script exception.
func (rt *Runtime) throw(err error) {
	panic(rt.toValue(err))
}

func errorName(err error) string {
	var fe *failure.Error
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	var kind failure.Kind
	if errors.As(err, &kind) {
		return kind.String()
	}
	return "Error"
}
