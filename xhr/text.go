// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xhr

import (
	"mime"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText decodes a response body to a string. The encoding is
// named by the charset parameter of contentType, defaulting to UTF-8,
// and a byte order mark overrides it. Undecodable input is replaced by
// U+FFFD.
func decodeText(b []byte, contentType string) string {
	dec := lookupEncoding(contentType).NewDecoder()
	s, _, err := transform.Bytes(unicode.BOMOverride(dec), b)
	if err != nil {
		s, _, _ = transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), b)
	}
	return string(s)
}

func lookupEncoding(contentType string) encoding.Encoding {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return unicode.UTF8
	}
	label := params["charset"]
	if label == "" {
		return unicode.UTF8
	}
	if enc, _ := charset.Lookup(label); enc != nil {
		return enc
	}
	if enc, err := ianaindex.IANA.Encoding(label); err == nil && enc != nil {
		return enc
	}
	return unicode.UTF8
}
