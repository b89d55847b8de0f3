// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package body

import (
	"crypto/rand"
	"io"
	"strconv"
	"sync/atomic"
)

// DefaultBoundaryPrefix is the literal prefix of boundary tokens made
// by DefaultBoundary.
const DefaultBoundaryPrefix = "----FetchxFormDataBoundary"

const (
	boundaryRandomLen = 16
	boundaryAlphabet  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// A BoundaryFunc produces multipart boundary tokens. It is called once
// per encode, and again if the token it returned occurs in the form
// content.
type BoundaryFunc func() string

// DefaultBoundary is the BoundaryFunc used by an Encoder whose
// Boundary field is nil.
var DefaultBoundary = NewBoundaryGenerator(DefaultBoundaryPrefix, rand.Reader)

// FixedBoundary returns a BoundaryFunc that always returns b. It is
// intended for tests that compare encoded output byte for byte.
func FixedBoundary(b string) BoundaryFunc {
	return func() string {
		return b
	}
}

// NewBoundaryGenerator returns a BoundaryFunc producing tokens of the
// form prefix + counter + "." + suffix, where counter increments on
// every call and suffix is a run of ASCII letters and digits drawn
// from random. If random fails, the suffix is omitted and the counter
// alone keeps tokens distinct.
//
// The returned function is safe for concurrent use if random is.
func NewBoundaryGenerator(prefix string, random io.Reader) BoundaryFunc {
	var counter uint64
	return func() string {
		n := atomic.AddUint64(&counter, 1) - 1
		token := prefix + strconv.FormatUint(n, 10) + "."
		var raw [boundaryRandomLen]byte
		if _, err := io.ReadFull(random, raw[:]); err != nil {
			return token
		}
		suffix := make([]byte, boundaryRandomLen)
		for i, b := range raw {
			suffix[i] = boundaryAlphabet[int(b)%len(boundaryAlphabet)]
		}
		return token + string(suffix)
	}
}
