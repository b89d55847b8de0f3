// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package fetchx

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// decodeResponse replaces the body of resp with a decoding reader if
// its Content-Encoding is one the client negotiated. The decoder is
// created lazily on first read so that a body which is never read costs
// nothing, and so that a malformed stream surfaces as a read error.
func decodeResponse(resp *http.Response) {
	if resp.Body == nil || resp.Body == http.NoBody {
		return
	}
	coding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch coding {
	case "gzip", "x-gzip", "deflate", "br":
	default:
		return
	}
	resp.Body = &decodingBody{coding: coding, raw: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
}

type decodingBody struct {
	coding string
	raw    io.ReadCloser
	r      io.Reader
	err    error
}

func (b *decodingBody) Read(p []byte) (int, error) {
	if b.r == nil && b.err == nil {
		b.r, b.err = newDecoder(b.coding, b.raw)
	}
	if b.err != nil {
		return 0, b.err
	}
	return b.r.Read(p)
}

func (b *decodingBody) Close() error {
	if c, ok := b.r.(io.Closer); ok {
		_ = c.Close()
	}
	return b.raw.Close()
}

func newDecoder(coding string, raw io.Reader) (io.Reader, error) {
	switch coding {
	case "br":
		return brotli.NewReader(raw), nil
	case "deflate":
		// Servers disagree whether "deflate" means zlib-wrapped or raw
		// DEFLATE. Browsers accept both.
		br := bufio.NewReader(raw)
		head, err := br.Peek(2)
		if err == nil && isZlibHeader(head) {
			return zlib.NewReader(br)
		}
		return flate.NewReader(br), nil
	default:
		return gzip.NewReader(raw)
	}
}

func isZlibHeader(b []byte) bool {
	return b[0]&0x0f == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}
