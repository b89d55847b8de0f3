// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package script binds a fetchx.Client into a goja JavaScript runtime.

A Runtime installs the following globals, all driven by the client's
event loop:

	fetch(url, init?)          → Promise<Response>
	FormData                   append, set, get, getAll, has, delete, entries
	AbortController            signal, abort(reason?)
	XMLHttpRequest             open, setRequestHeader, send, abort, ...
	setTimeout, clearTimeout
	console                    log, info, debug, warn, error
	require('fetchx')          the same bindings, as a module

Promises are settled from loop tasks, so a script only observes results
while the loop runs. Run evaluates a script and then runs the loop until
it is idle:

	rt := script.New(client)
	v, err := rt.Run(ctx, `
		fetch('/api/items').then(r => r.json()).then(items => items.length)
	`)

When the script's completion value is a promise, Run returns its
fulfilled value or its rejection as an error.

Failures surface in JavaScript as Error objects whose name is the
failure kind, for example "AbortError" or "NetworkError".

A Runtime is not safe for concurrent use. Every method must be called
from the goroutine which runs the loop.
*/
package script
