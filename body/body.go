// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package body

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/url"
)

// A Kind identifies the type of logical body carried by a Value.
type Kind int

const (
	// None is an empty body.
	None Kind = iota
	// Text is a string body encoded as UTF-8.
	Text
	// JSON is a JSON-serializable Go value.
	JSON
	// Binary is an opaque byte sequence.
	Binary
	// Form is a multipart form entry list.
	Form
	// URLEncoded is an application/x-www-form-urlencoded form.
	URLEncoded
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Text:
		return "text"
	case JSON:
		return "json"
	case Binary:
		return "binary"
	case Form:
		return "form"
	case URLEncoded:
		return "urlencoded"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// A Value is a logical request body. The zero value is an empty body.
type Value struct {
	kind        Kind
	text        string
	data        []byte
	contentType string
	json        interface{}
	form        *FormData
	values      url.Values
}

// TextValue returns a text body.
func TextValue(s string) Value {
	return Value{kind: Text, text: s}
}

// JSONValue returns a body that encodes v as JSON.
func JSONValue(v interface{}) Value {
	return Value{kind: JSON, json: v}
}

// BinaryValue returns a binary body. If contentType is empty, the
// encoded body is labelled application/octet-stream.
func BinaryValue(b []byte, contentType string) Value {
	return Value{kind: Binary, data: b, contentType: contentType}
}

// FormValue returns a multipart form body.
func FormValue(fd *FormData) Value {
	return Value{kind: Form, form: fd}
}

// URLEncodedValue returns a URL-encoded form body.
func URLEncodedValue(values url.Values) Value {
	return Value{kind: URLEncoded, values: values}
}

// Kind returns the kind of body v carries.
func (v Value) Kind() Kind {
	return v.kind
}

// Empty reports whether v is the empty body.
func (v Value) Empty() bool {
	return v.kind == None
}

// From converts a generic body parameter to a Value.
//
// The conversion logic is:
//
// • nil becomes the empty body.
//
// • A Value or *Value is returned as is.
//
// • A string becomes a Text body.
//
// • A []byte becomes a Binary body, as does a Blob or *Blob (which
// also contributes its type).
//
// • A *FormData becomes a Form body, and a url.Values becomes a
// URLEncoded body.
//
// • An io.Reader is read to the end (and closed, if it is also an
// io.Closer) and becomes a Binary body. If reading or closing fails,
// the error is returned.
//
// • Any other value becomes a JSON body.
func From(body interface{}) (Value, error) {
	switch x := body.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return x, nil
	case *Value:
		if x == nil {
			return Value{}, nil
		}
		return *x, nil
	case string:
		return TextValue(x), nil
	case []byte:
		return BinaryValue(x, ""), nil
	case Blob:
		return BinaryValue(x.Data, x.Type), nil
	case *Blob:
		return BinaryValue(x.Data, x.Type), nil
	case *FormData:
		return FormValue(x), nil
	case url.Values:
		return URLEncodedValue(x), nil
	case io.ReadCloser:
		b, err := ioutil.ReadAll(x)
		if err != nil {
			return Value{}, err
		}
		err = x.Close()
		if err != nil {
			return Value{}, err
		}
		return BinaryValue(b, ""), nil
	case io.Reader:
		return From(ioutil.NopCloser(x))
	default:
		return JSONValue(x), nil
	}
}
