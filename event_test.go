// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvents(t *testing.T) {
	assert.Len(t, eventNames, numEvents)
	assert.Len(t, Events(), numEvents)
	for i, evt := range Events() {
		assert.Equal(t, Event(i), evt)
		assert.Equal(t, eventNames[i], evt.Name())
		assert.Equal(t, evt.Name(), evt.String())
	}
	assert.Equal(t, "BeforeHop", BeforeHop.Name())
	assert.Equal(t, "AfterTimeout", AfterTimeout.String())
}
