// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"io/ioutil"

	"github.com/gogama/fetchx/failure"
	"github.com/gogama/fetchx/loop"
	"github.com/gogama/fetchx/request"
)

// DoSync dispatches a request synchronously, blocking the loop until
// the whole response body has been read into Execution.Body.
//
// While DoSync runs the loop is blocked: no other task runs, and
// completions of other requests stay queued until DoSync returns. No
// timeout policy is applied. The response body is closed before DoSync
// returns.
//
// DoSync returns an InvalidState failure if the loop is already
// blocked by another DoSync.
func (c *Client) DoSync(r *request.Request) (*request.Execution, error) {
	r = r.Clone()
	r.Mode = request.Sync

	var e *request.Execution
	var err error
	blockErr := c.Loop().Block(func() {
		e, err = c.Do(r)
		if err != nil {
			return
		}
		e.Body, err = ioutil.ReadAll(e.Response.Body)
		_ = e.Response.Body.Close()
		if err != nil {
			err = failure.Wrap("Read", r.URL.String(), err)
			e.Err = err
		}
	})
	if blockErr == loop.ErrReentrant {
		return &request.Execution{Request: r}, failure.New(failure.InvalidState, "Send", r.URL.String(), blockErr)
	}
	return e, err
}
