// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package origin

import (
	"net/url"

	"github.com/gogama/fetchx/header"
)

// Credentials is the credentials mode of a request.
type Credentials int

const (
	// SameOrigin sends forwardable headers only to the document's own
	// origin. This is the default.
	SameOrigin Credentials = iota
	// Include sends forwardable headers to every origin. It is what
	// XMLHttpRequest's withCredentials and fetch's
	// credentials: "include" select.
	Include
	// Omit never sends forwardable headers.
	Omit
)

func (c Credentials) String() string {
	switch c {
	case Include:
		return "include"
	case Omit:
		return "omit"
	default:
		return "same-origin"
	}
}

// ParseCredentials converts a fetch credentials string to a
// Credentials. Unknown strings select SameOrigin.
func ParseCredentials(s string) Credentials {
	switch s {
	case "include":
		return Include
	case "omit":
		return Omit
	default:
		return SameOrigin
	}
}

// DefaultForwardable lists the header names a Guard treats as
// forwardable when its Forwardable field is nil.
var DefaultForwardable = []string{"Authorization"}

// A Guard applies the same-origin credential rule relative to a
// document URL. The zero value has no document, so that every target
// is cross-origin.
type Guard struct {
	// Document is the URL of the hosting document.
	Document *url.URL
	// Forwardable names the headers that are only sent same-origin.
	// If nil, DefaultForwardable is used.
	Forwardable []string
}

// Origin returns the origin of the guard's document.
func (g *Guard) Origin() Origin {
	return Of(g.Document)
}

// Allows reports whether forwardable headers may be sent to target
// under the given credentials mode.
func (g *Guard) Allows(target *url.URL, creds Credentials) bool {
	switch creds {
	case Include:
		return true
	case Omit:
		return false
	default:
		return g.Origin().Same(Of(target))
	}
}

// Apply strips the forwardable headers from h when Allows(target,
// creds) is false, and returns the names it removed.
func (g *Guard) Apply(target *url.URL, h *header.Header, creds Credentials) []string {
	if g.Allows(target, creds) {
		return nil
	}
	return Strip(h, g.forwardable())
}

// Strip removes every header in names from h and returns the names
// that were present.
func Strip(h *header.Header, names []string) []string {
	var stripped []string
	for _, name := range names {
		if h.Has(name) {
			h.Del(name)
			stripped = append(stripped, name)
		}
	}
	return stripped
}

// ForwardableNames returns the header names the guard protects.
func (g *Guard) ForwardableNames() []string {
	return g.forwardable()
}

func (g *Guard) forwardable() []string {
	if g.Forwardable != nil {
		return g.Forwardable
	}
	return DefaultForwardable
}
