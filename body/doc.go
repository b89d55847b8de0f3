// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package body turns logical request body values into wire bytes plus a
suggested Content-Type.

A body Value is tagged with a Kind: text, JSON-serializable data,
binary data, a URL-encoded form, or a multipart form. Build one with
the Text, JSON, Binary, URLEncoded and Form constructors, or let From
pick one for an arbitrary Go value:

	v, err := body.From(map[string]int{"a": 1}) // JSON
	...
	enc, err := new(body.Encoder).Encode(v)
	// enc.Bytes == []byte(`{"a":1}`)
	// enc.ContentType == "application/json"

Multipart forms are encoded with a boundary token produced by the
Encoder's BoundaryFunc. The default generator produces tokens of the
form "----FetchxFormDataBoundary<counter>.<random>" and a fresh token
is produced for every call to Encode. Tests that need byte-exact
output install FixedBoundary:

	enc := body.Encoder{Boundary: body.FixedBoundary("B")}

Apart from boundary generation, encoding is pure and deterministic.
*/
package body
