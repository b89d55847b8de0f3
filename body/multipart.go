// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package body

import (
	"bytes"
	"strings"
)

const defaultBlobName = "blob"

var dispositionEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\r", "%0D",
	"\n", "%0A",
)

// EncodeMultipart serializes fd as a multipart/form-data body using
// the given boundary. The output is exactly:
//
//	--<boundary>\r\n
//	Content-Disposition: form-data; name="<name>"[; filename="<file>"]\r\n
//	[Content-Type: <type>\r\n]
//	\r\n
//	<value>\r\n
//
// for every entry in order, followed by "--<boundary>--\r\n". The
// filename and Content-Type lines are present only for file entries.
// Names and filenames have backslash and double quote escaped with a
// backslash, and CR and LF percent-encoded.
//
// EncodeMultipart does not check the boundary against the entries.
func EncodeMultipart(fd *FormData, boundary string) []byte {
	var buf bytes.Buffer
	for _, e := range fd.Entries() {
		buf.WriteString("--")
		buf.WriteString(boundary)
		buf.WriteString("\r\nContent-Disposition: form-data; name=\"")
		buf.WriteString(dispositionEscaper.Replace(e.Name))
		buf.WriteByte('"')
		if e.File != nil {
			filename := e.File.Name
			if filename == "" {
				filename = defaultBlobName
			}
			buf.WriteString("; filename=\"")
			buf.WriteString(dispositionEscaper.Replace(filename))
			buf.WriteString("\"\r\nContent-Type: ")
			buf.WriteString(blobType(e.File))
			buf.WriteString("\r\n\r\n")
			buf.Write(e.File.Data)
		} else {
			buf.WriteString("\r\n\r\n")
			buf.WriteString(normalizeNewlines(e.Value))
		}
		buf.WriteString("\r\n")
	}
	buf.WriteString("--")
	buf.WriteString(boundary)
	buf.WriteString("--\r\n")
	return buf.Bytes()
}

// MultipartContentType returns the Content-Type header value for a
// multipart body delimited by boundary.
func MultipartContentType(boundary string) string {
	return "multipart/form-data; boundary=" + boundary
}

// collides reports whether boundary occurs verbatim anywhere in the
// content of fd.
func collides(fd *FormData, boundary string) bool {
	b := []byte(boundary)
	for _, e := range fd.Entries() {
		if strings.Contains(e.Name, boundary) {
			return true
		}
		if e.File == nil {
			if strings.Contains(e.Value, boundary) {
				return true
			}
			continue
		}
		if strings.Contains(e.File.Name, boundary) ||
			strings.Contains(e.File.Type, boundary) ||
			bytes.Contains(e.File.Data, b) {
			return true
		}
	}
	return false
}

func blobType(b *Blob) string {
	if b.Type == "" {
		return octetStream
	}
	return b.Type
}

// normalizeNewlines converts lone CR and lone LF in text values to
// CRLF, as HTML form submission does.
func normalizeNewlines(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
