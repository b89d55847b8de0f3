// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package xhr implements the XMLHttpRequest state machine on top of a
fetchx.Client.

An XMLHttpRequest moves through the ready states UNSENT, OPENED,
HEADERS_RECEIVED, LOADING and DONE. In asynchronous mode every state
change fires readystatechange, body chunks fire progress, and the
request ends with exactly one of load, error, abort or timeout followed
by loadend:

	x := xhr.New(client)
	x.AddEventListener(xhr.Load, func(evt xhr.Event) {
		fmt.Println(evt.Target.Status(), evt.Target.ResponseText())
	})
	_ = x.Open("GET", "/api/items", true)
	_ = x.Send(nil)
	_ = client.Loop().Run(ctx)

In synchronous mode Send blocks the loop until the response is
complete, no event is fired, and failures are returned by Send.
*/
package xhr
