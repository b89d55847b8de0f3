// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package body

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	octetStream          = "application/octet-stream"
	textContentType      = "text/plain;charset=UTF-8"
	jsonContentType      = "application/json"
	urlEncodedFormatType = "application/x-www-form-urlencoded;charset=UTF-8"
)

// maxBoundaryAttempts bounds how many boundary tokens Encode tries
// before giving up on a form whose content keeps colliding.
const maxBoundaryAttempts = 8

// ErrBoundaryCollision is returned when every generated boundary token
// occurred verbatim in the form content.
var ErrBoundaryCollision = errors.New("fetchx/body: boundary occurs in form content")

// Encoded is the wire form of a body: the bytes to send and the
// suggested Content-Type. An empty ContentType means the body carries
// no type of its own.
type Encoded struct {
	Bytes       []byte
	ContentType string
}

// An Encoder converts body values to their wire form. The zero value
// is ready to use and generates boundaries with DefaultBoundary.
type Encoder struct {
	// Boundary produces multipart boundary tokens. If nil,
	// DefaultBoundary is used.
	Boundary BoundaryFunc
}

// Encode returns the wire form of v.
//
// Text is UTF-8 encoded and typed text/plain;charset=UTF-8. JSON is
// marshalled with encoding/json and typed application/json. Binary is
// passed through with its own type or application/octet-stream.
// URLEncoded is typed application/x-www-form-urlencoded;charset=UTF-8.
// Form is delegated to EncodeMultipart with a freshly generated
// boundary and typed multipart/form-data.
func (enc *Encoder) Encode(v Value) (Encoded, error) {
	switch v.kind {
	case None:
		return Encoded{}, nil
	case Text:
		return Encoded{Bytes: []byte(v.text), ContentType: textContentType}, nil
	case JSON:
		b, err := json.Marshal(v.json)
		if err != nil {
			return Encoded{}, fmt.Errorf("fetchx/body: %w", err)
		}
		return Encoded{Bytes: b, ContentType: jsonContentType}, nil
	case Binary:
		ct := v.contentType
		if ct == "" {
			ct = octetStream
		}
		return Encoded{Bytes: v.data, ContentType: ct}, nil
	case URLEncoded:
		return Encoded{Bytes: []byte(v.values.Encode()), ContentType: urlEncodedFormatType}, nil
	case Form:
		return enc.multipart(v.form)
	default:
		return Encoded{}, fmt.Errorf("fetchx/body: unknown body kind %v", v.kind)
	}
}

func (enc *Encoder) multipart(fd *FormData) (Encoded, error) {
	next := DefaultBoundary
	if enc != nil && enc.Boundary != nil {
		next = enc.Boundary
	}
	for i := 0; i < maxBoundaryAttempts; i++ {
		boundary := next()
		if boundary == "" || collides(fd, boundary) {
			continue
		}
		return Encoded{
			Bytes:       EncodeMultipart(fd, boundary),
			ContentType: MultipartContentType(boundary),
		}, nil
	}
	return Encoded{}, ErrBoundaryCollision
}
