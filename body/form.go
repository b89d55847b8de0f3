// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package body

// A Blob is a named chunk of binary data with a MIME type, the value
// type of a file entry in a FormData.
type Blob struct {
	// Name is the file name sent in the Content-Disposition header.
	// An empty name is sent as "blob".
	Name string
	// Type is the MIME type of the data. An empty type is sent as
	// application/octet-stream.
	Type string
	// Data is the blob content.
	Data []byte
}

// A FormEntry is one entry of a FormData. Exactly one of Value and
// File is meaningful: File is non-nil for file entries.
type FormEntry struct {
	Name  string
	Value string
	File  *Blob
}

// IsFile reports whether the entry holds a Blob.
func (e FormEntry) IsFile() bool {
	return e.File != nil
}

// FormData is an ordered list of form entries. The zero value is an
// empty form ready to use. Entry order is preserved and determines the
// order of parts in the multipart encoding.
type FormData struct {
	entries []FormEntry
}

// NewFormData returns an empty form.
func NewFormData() *FormData {
	return &FormData{}
}

// Append adds a text entry.
func (fd *FormData) Append(name, value string) {
	fd.entries = append(fd.entries, FormEntry{Name: name, Value: value})
}

// AppendFile adds a file entry. If filename is non-empty it overrides
// the blob's own name.
func (fd *FormData) AppendFile(name string, b Blob, filename string) {
	if filename != "" {
		b.Name = filename
	}
	fd.entries = append(fd.entries, FormEntry{Name: name, File: &b})
}

// Set replaces all entries called name with a single text entry, at
// the position of the first one.
func (fd *FormData) Set(name, value string) {
	fd.set(FormEntry{Name: name, Value: value})
}

// SetFile is like Set but for a file entry.
func (fd *FormData) SetFile(name string, b Blob, filename string) {
	if filename != "" {
		b.Name = filename
	}
	fd.set(FormEntry{Name: name, File: &b})
}

func (fd *FormData) set(entry FormEntry) {
	replaced := false
	kept := fd.entries[:0]
	for _, e := range fd.entries {
		if e.Name != entry.Name {
			kept = append(kept, e)
		} else if !replaced {
			kept = append(kept, entry)
			replaced = true
		}
	}
	fd.entries = kept
	if !replaced {
		fd.entries = append(fd.entries, entry)
	}
}

// Get returns the first entry called name.
func (fd *FormData) Get(name string) (FormEntry, bool) {
	for _, e := range fd.entries {
		if e.Name == name {
			return e, true
		}
	}
	return FormEntry{}, false
}

// GetAll returns every entry called name, in order.
func (fd *FormData) GetAll(name string) []FormEntry {
	var out []FormEntry
	for _, e := range fd.entries {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether the form contains an entry called name.
func (fd *FormData) Has(name string) bool {
	_, ok := fd.Get(name)
	return ok
}

// Delete removes every entry called name.
func (fd *FormData) Delete(name string) {
	kept := fd.entries[:0]
	for _, e := range fd.entries {
		if e.Name != name {
			kept = append(kept, e)
		}
	}
	fd.entries = kept
}

// Len returns the number of entries.
func (fd *FormData) Len() int {
	if fd == nil {
		return 0
	}
	return len(fd.entries)
}

// Entries returns a copy of the entries in order.
func (fd *FormData) Entries() []FormEntry {
	if fd == nil {
		return nil
	}
	out := make([]FormEntry, len(fd.entries))
	copy(out, fd.entries)
	return out
}
