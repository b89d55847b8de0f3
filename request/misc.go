// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"fmt"
	urlpkg "net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var normalizedMethods = []string{"DELETE", "GET", "HEAD", "OPTIONS", "POST", "PUT", "PATCH"}

var forbiddenMethods = []string{"CONNECT", "TRACE", "TRACK"}

// NormalizeMethod validates method and returns its normalized form.
//
// An empty method means GET. A method that is not an HTTP token is an
// error, as is CONNECT, TRACE or TRACK in any casing. The well-known
// methods DELETE, GET, HEAD, OPTIONS, POST, PUT and PATCH are
// upper-cased; any other token is passed through unchanged, since
// extension methods are case-sensitive.
func NormalizeMethod(method string) (string, error) {
	if method == "" {
		return "GET", nil
	}
	if !validMethod(method) {
		return "", fmt.Errorf("fetchx/request: invalid method %q", method)
	}
	for _, m := range forbiddenMethods {
		if strings.EqualFold(method, m) {
			return "", fmt.Errorf("fetchx/request: forbidden method %q", method)
		}
	}
	for _, m := range normalizedMethods {
		if strings.EqualFold(method, m) {
			return m, nil
		}
	}
	return method, nil
}

// NullBodyMethod reports whether requests with the given normalized
// method may not carry a body.
func NullBodyMethod(method string) bool {
	return method == "GET" || method == "HEAD"
}

// Resolve parses rawURL and resolves it against base, which may be
// nil. The result must be absolute: a relative reference with no base
// to resolve against is an error. An empty port ("host:") is removed.
func Resolve(rawURL string, base *urlpkg.URL) (*urlpkg.URL, error) {
	u, err := urlpkg.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("fetchx/request: cannot resolve relative URL %q without a base URL", rawURL)
	}
	u.Host = removeEmptyPort(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}

func validMethod(method string) bool {
	/*
	     Method         = "OPTIONS"                ; Section 9.2
	                    | "GET"                    ; Section 9.3
	                    | "HEAD"                   ; Section 9.4
	                    | "POST"                   ; Section 9.5
	                    | "PUT"                    ; Section 9.6
	                    | "DELETE"                 ; Section 9.7
	                    | "TRACE"                  ; Section 9.8
	                    | "CONNECT"                ; Section 9.9
	                    | extension-method
	   extension-method = token
	     token          = 1*<any CHAR except CTLs or separators>
	*/
	return strings.IndexFunc(method, isNotToken) == -1
}

func isNotToken(r rune) bool {
	return !httpguts.IsTokenRune(r)
}

// hasPort is lifted verbatim from net/http/http.go
//
// Given a string of the form "host", "host:port", or "[ipv6::address]:port",
// return true if the string includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort strips the empty port in ":port" to "" as mandated
// by RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
