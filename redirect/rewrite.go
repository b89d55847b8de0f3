// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package redirect

import (
	"net/http"
	"strings"

	"github.com/gogama/fetchx/header"
)

// IsRedirect reports whether status is a redirect status the
// dispatcher follows: 301, 302, 303, 307 or 308.
func IsRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// Method returns the method of the next hop after a redirect with the
// given status from a request with the given method.
//
// A 301 or 302 response to POST, and a 303 response to anything but
// HEAD, switch the method to GET. Every other combination keeps the
// method, and so 307 and 308 always do.
func Method(status int, method string) string {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound:
		if method == http.MethodPost {
			return http.MethodGet
		}
	case http.StatusSeeOther:
		if method != http.MethodHead {
			return http.MethodGet
		}
	}
	return method
}

// KeepsBody reports whether the request body survives a redirect that
// changed the method from before to after. The body is only resent when
// the method is unchanged.
func KeepsBody(before, after string) bool {
	return before == after
}

// DropBodyHeaders removes every Content-* header from h. They describe
// the request body and must not follow a redirect that dropped it.
func DropBodyHeaders(h *header.Header) {
	for _, f := range h.Entries() {
		if strings.HasPrefix(strings.ToLower(f.Name), "content-") {
			h.Del(f.Name)
		}
	}
}
