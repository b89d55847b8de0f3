// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package origin

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// An Origin is a (scheme, host, port) triple. The zero value is the
// opaque origin.
type Origin struct {
	Scheme string
	Host   string
	Port   string
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Of returns the origin of u. The scheme and host are lower-cased, an
// internationalized host is converted to its ASCII form, and a missing
// port is replaced by the scheme's default. A nil URL, a URL whose
// scheme is not http or https, or a URL whose host cannot be converted
// yields the opaque origin.
func Of(u *url.URL) Origin {
	if u == nil {
		return Origin{}
	}
	scheme := strings.ToLower(u.Scheme)
	defaultPort, ok := defaultPorts[scheme]
	if !ok {
		return Origin{}
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Origin{}
	}
	if !strings.Contains(host, ":") {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return Origin{}
		}
		host = ascii
	}
	port := u.Port()
	if port == "" {
		port = defaultPort
	}
	return Origin{Scheme: scheme, Host: host, Port: port}
}

// Parse parses rawURL and returns its origin.
func Parse(rawURL string) (Origin, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Origin{}, err
	}
	return Of(u), nil
}

// Opaque reports whether o is the opaque origin.
func (o Origin) Opaque() bool {
	return o.Scheme == ""
}

// Same reports whether o and other are the same origin. An opaque
// origin is never the same as any origin.
func (o Origin) Same(other Origin) bool {
	return !o.Opaque() && o == other
}

// String serializes o the way the Origin request header does, omitting
// a default port. The opaque origin serializes as "null".
func (o Origin) String() string {
	if o.Opaque() {
		return "null"
	}
	host := o.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if o.Port == defaultPorts[o.Scheme] {
		return o.Scheme + "://" + host
	}
	return o.Scheme + "://" + net.JoinHostPort(o.Host, o.Port)
}

// SameURL reports whether a and b have the same origin.
func SameURL(a, b *url.URL) bool {
	return Of(a).Same(Of(b))
}
