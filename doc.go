// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package fetchx provides the browser fetch and XMLHttpRequest network
APIs for code running on a single-threaded cooperative event loop.

Create a Client to begin making requests. Relative URLs are resolved
against the client's BaseURL, which also decides which targets are
same-origin.

	base, _ := url.Parse("https://app.example.com/index.html")
	client := &fetchx.Client{BaseURL: base}
	future := client.Fetch("/api/items", nil)
	future.Then(func(resp *fetchx.Response, err error) {
		...
	})
	err := client.Loop().Run(ctx)

Futures, response body drains and the xhr package deliver their
results as tasks on the client's event loop (package loop), so all
callbacks run on the goroutine calling Run.

For blocking use outside a loop, use Do and the helper functions:

	ex, err := client.Get("https://www.example.com")
	...
	ex, err := client.PostForm("http://example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

For control over how the client sends HTTP requests and receives HTTP
responses, set a custom Transport. It must not follow redirects
itself, since the client does.

For control over redirects, set a redirect policy using package
redirect:

	client := &fetchx.Client{
		RedirectPolicy: redirect.Hops(5).And(redirect.SameOrigin),
	}

For control over asynchronous request timeouts, set a timeout policy
using package timeout:

	client := &fetchx.Client{
		TimeoutPolicy: timeout.Fixed(10*time.Second),
	}

To hook into the fine-grained details of the dispatch, install a
handler into the appropriate handler chain:

	handlers := &fetchx.HandlerGroup{}
	handlers.PushBack(fetchx.BeforeHop, fetchx.HandlerFunc(
		func(_ fetchx.Event, e *request.Execution) {
			log.Printf("Hop %d to %s", e.Hop, e.Request.URL.String())
		})
	)
	client := &fetchx.Client{
		Handlers: handlers,
	}
*/
package fetchx
