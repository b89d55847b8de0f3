// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package origin computes URL origins and gates credential headers on
// same-origin comparisons.
//
// An Origin is the (scheme, host, port) triple of an http or https
// URL. Two URLs are same-origin when their origins are equal. Every
// other scheme yields an opaque origin, which is not same-origin with
// anything, itself included.
//
// A Guard holds the origin of the hosting document. Headers it
// considers forwardable (Authorization by default) are preserved on
// same-origin requests and stripped from cross-origin requests unless
// the request opted into cross-origin credentials.
package origin
