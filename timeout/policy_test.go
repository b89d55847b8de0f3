// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"syscall"
	"testing"
	"time"

	"github.com/gogama/fetchx/request"
	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	assert.Equal(t, time.Duration(0), DefaultPolicy.Timeout(&request.Execution{}))
	assert.Equal(t, time.Duration(0), Infinite.Timeout(&request.Execution{Err: syscall.ETIMEDOUT}))
}

func TestFixed(t *testing.T) {
	p := Fixed(33 * time.Hour)
	assert.Equal(t, 33*time.Hour, p.Timeout(&request.Execution{}))
	assert.Equal(t, 33*time.Hour, p.Timeout(&request.Execution{Hop: 3, Err: syscall.ETIMEDOUT}))
}

func TestByMethod(t *testing.T) {
	m := map[string]time.Duration{"POST": time.Minute}
	p := ByMethod(m, time.Second)
	m["GET"] = time.Hour
	post, _ := request.New("POST", "http://a.com", nil)
	get, _ := request.New("GET", "http://a.com", nil)
	assert.Equal(t, time.Minute, p.Timeout(&request.Execution{Request: post}))
	assert.Equal(t, time.Second, p.Timeout(&request.Execution{Request: get}))
	assert.Equal(t, time.Second, p.Timeout(&request.Execution{}))
}

func TestPolicyFunc(t *testing.T) {
	p := PolicyFunc(func(e *request.Execution) time.Duration {
		return time.Duration(e.Hop) * time.Second
	})
	assert.Equal(t, 2*time.Second, p.Timeout(&request.Execution{Hop: 2}))
}
