// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package loop provides the single-threaded cooperative event loop that
drives script execution and I/O completion callbacks.

All callbacks run one at a time on the goroutine that calls Run, in the
order they were submitted. I/O is done on other goroutines, which hand
their results back to the loop with Submit. Because completions are
queued as they happen, the ordering between concurrent requests is
"first I/O completion wins", not issue order.

Run returns when the loop is idle: no task is queued and nothing holds
the loop open. Code that starts I/O calls Hold first, so that Run keeps
waiting until the I/O completes:

	release := l.Hold()
	go func() {
		result := doIO()
		l.Submit(func() { deliver(result) })
		release()
	}()

Block marks a region of loop-goroutine code that must complete without
yielding, as synchronous XMLHttpRequest does. While blocked the loop
refuses to run (Run and Tick return ErrReentrant), so no unrelated
callback can run during the blocking call. Tasks submitted meanwhile
stay queued and run after the blocking call returns. Block is a
compatibility hazard: a long blocking call starves every other pending
operation sharing the loop.
*/
package loop
