// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package header provides Header, the ordered, case-insensitive header
// multimap used for both request and response headers.
//
// A Header keeps every (name, value) pair it is given, in the order it
// was given, so that repeated fields such as Set-Cookie can be replayed
// onto the wire distinctly. Reads through Get fold all values for a
// name into a single comma-joined string, the way browser Headers
// objects do.
package header

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/textproto"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// ErrEmptyName is returned when a header name is empty after trimming.
var ErrEmptyName = errors.New("fetchx/header: empty header name")

// A Field is a single header (name, value) pair.
type Field struct {
	Name  string
	Value string
}

// A Header is an ordered sequence of header fields with ASCII
// case-insensitive name lookups. The zero value is an empty header
// ready to use.
//
// A Header is owned by exactly one request or response and is not
// safe for concurrent mutation.
type Header struct {
	fields []Field
}

// New returns an empty header.
func New() *Header {
	return &Header{}
}

// FromHTTP converts a net/http header map into a Header. Since the map
// carries no ordering between names, names are sorted so the result is
// deterministic; values for one name keep their order.
func FromHTTP(h http.Header) *Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	out := &Header{}
	for _, name := range names {
		for _, value := range h[name] {
			out.fields = append(out.fields, Field{Name: name, Value: trim(value)})
		}
	}
	return out
}

// Set replaces all values for name with the single value given. The
// replacement takes the position of the first existing field with
// that name, or is appended if there is none.
func (h *Header) Set(name, value string) error {
	name, value, err := normalize(name, value)
	if err != nil {
		return err
	}
	replaced := false
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
			continue
		}
		if !replaced {
			kept = append(kept, Field{Name: name, Value: value})
			replaced = true
		}
	}
	h.fields = kept
	if !replaced {
		h.fields = append(h.fields, Field{Name: name, Value: value})
	}
	return nil
}

// Append adds a value for name, keeping any existing values.
func (h *Header) Append(name, value string) error {
	name, value, err := normalize(name, value)
	if err != nil {
		return err
	}
	h.fields = append(h.fields, Field{Name: name, Value: value})
	return nil
}

// Get returns all values for name joined with ", ". The second return
// value is false if the header has no field called name.
func (h *Header) Get(name string) (string, bool) {
	values := h.Values(name)
	if len(values) == 0 {
		return "", false
	}
	return strings.Join(values, ", "), true
}

// Values returns the distinct values stored for name, in order.
func (h *Header) Values(name string) []string {
	if h == nil {
		return nil
	}
	name = trim(name)
	var values []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

// Has reports whether the header contains a field called name.
func (h *Header) Has(name string) bool {
	if h == nil {
		return false
	}
	name = trim(name)
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Del removes every field called name.
func (h *Header) Del(name string) {
	if h == nil {
		return
	}
	name = trim(name)
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

// Len returns the number of stored fields.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}

// Entries returns a copy of the stored fields in insertion order.
func (h *Header) Entries() []Field {
	if h == nil {
		return nil
	}
	out := make([]Field, len(h.fields))
	copy(out, h.fields)
	return out
}

// Sorted returns one field per distinct name, with the name lower-cased
// and all of its values comma-joined, sorted by name. This is the view
// browsers expose when iterating a Headers object.
func (h *Header) Sorted() []Field {
	if h == nil {
		return nil
	}
	index := make(map[string]int)
	var out []Field
	for _, f := range h.fields {
		lower := strings.ToLower(f.Name)
		if i, ok := index[lower]; ok {
			out[i].Value += ", " + f.Value
			continue
		}
		index[lower] = len(out)
		out = append(out, Field{Name: lower, Value: f.Value})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// String formats the header the way XMLHttpRequest's
// getAllResponseHeaders does: one "name: value\r\n" line per Sorted
// field.
func (h *Header) String() string {
	var sb strings.Builder
	for _, f := range h.Sorted() {
		sb.WriteString(f.Name)
		sb.WriteString(": ")
		sb.WriteString(f.Value)
		sb.WriteString("\r\n")
	}
	return sb.String()
}

// Clone returns a deep copy of h. Cloning a nil header returns an
// empty one.
func (h *Header) Clone() *Header {
	out := &Header{}
	if h != nil {
		out.fields = make([]Field, len(h.fields))
		copy(out.fields, h.fields)
	}
	return out
}

// HTTP returns the wire form of h. Names are canonicalized (for
// example "content-type" becomes "Content-Type") while every value is
// kept distinctly, in order.
func (h *Header) HTTP() http.Header {
	out := make(http.Header, h.Len())
	if h == nil {
		return out
	}
	for _, f := range h.fields {
		key := textproto.CanonicalMIMEHeaderKey(f.Name)
		out[key] = append(out[key], f.Value)
	}
	return out
}

// ApplyDefaultCharset appends "; charset=<charset>" to a textual
// Content-Type that has no charset parameter. An empty charset
// disables the rule.
//
// Whether a default charset should be added at all is a policy choice
// of the hosting environment, so callers opt in explicitly.
func (h *Header) ApplyDefaultCharset(charset string) {
	if charset == "" {
		return
	}
	ct, ok := h.Get("Content-Type")
	if !ok || ct == "" {
		return
	}
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil || !textual(mediaType) {
		return
	}
	if _, has := params["charset"]; has {
		return
	}
	_ = h.Set("Content-Type", ct+"; charset="+charset)
}

func textual(mediaType string) bool {
	switch {
	case strings.HasPrefix(mediaType, "text/"):
		return true
	case mediaType == "application/json",
		mediaType == "application/javascript",
		mediaType == "application/xml",
		strings.HasSuffix(mediaType, "+json"),
		strings.HasSuffix(mediaType, "+xml"):
		return true
	}
	return false
}

func normalize(name, value string) (string, string, error) {
	name = trim(name)
	value = trim(value)
	if name == "" {
		return "", "", ErrEmptyName
	}
	if !httpguts.ValidHeaderFieldName(name) {
		return "", "", fmt.Errorf("fetchx/header: invalid header name %q", name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", fmt.Errorf("fetchx/header: invalid value for header %q", name)
	}
	return name, value, nil
}

// trim removes leading and trailing HTTP whitespace (SP, HT, CR, LF).
func trim(s string) string {
	return strings.Trim(s, " \t\r\n")
}
