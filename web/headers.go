package web

import "strings"

// Headers is a response header multimap. Keys are case-insensitive per
// RFC 9110 Section 5.1 and keep the spelling of their first write;
// insertion order of distinct keys is preserved for serialization.
// Set is last-write-wins on duplicate keys, Add appends.
//
// Headers is not safe for concurrent use; each response owns its own.
type Headers struct {
	pairs []HeaderPair
}

// NewHeaders returns an empty header multimap.
func NewHeaders() *Headers {
	return &Headers{}
}

// Get returns the first value for the named header, or "".
func (h *Headers) Get(name string) string {
	for _, p := range h.pairs {
		if strings.EqualFold(p.Name, name) {
			return p.Value
		}
	}
	return ""
}

// Values returns all values for the named header in insertion order.
func (h *Headers) Values(name string) []string {
	var values []string
	for _, p := range h.pairs {
		if strings.EqualFold(p.Name, name) {
			values = append(values, p.Value)
		}
	}
	return values
}

// Has reports whether the named header is present.
func (h *Headers) Has(name string) bool {
	for _, p := range h.pairs {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// Set replaces every existing value of the named header with value,
// keeping the position of the first occurrence. A new key is appended.
func (h *Headers) Set(name, value string) {
	out := h.pairs[:0]
	replaced := false
	for _, p := range h.pairs {
		if strings.EqualFold(p.Name, name) {
			if !replaced {
				p.Value = value
				replaced = true
				out = append(out, p)
			}
			continue
		}
		out = append(out, p)
	}
	h.pairs = out
	if !replaced {
		h.pairs = append(h.pairs, HeaderPair{Name: name, Value: value})
	}
}

// Add appends a value without touching existing ones.
func (h *Headers) Add(name, value string) {
	h.pairs = append(h.pairs, HeaderPair{Name: name, Value: value})
}

// Del removes every value of the named header.
func (h *Headers) Del(name string) {
	out := h.pairs[:0]
	for _, p := range h.pairs {
		if !strings.EqualFold(p.Name, name) {
			out = append(out, p)
		}
	}
	h.pairs = out
}

// Len returns the number of stored pairs.
func (h *Headers) Len() int {
	return len(h.pairs)
}

// Pairs returns the stored pairs in insertion order. The slice is shared:
// callers must not modify it.
func (h *Headers) Pairs() []HeaderPair {
	return h.pairs
}

// Clone returns an independent copy.
func (h *Headers) Clone() *Headers {
	clone := &Headers{pairs: make([]HeaderPair, len(h.pairs))}
	copy(clone.pairs, h.pairs)
	return clone
}
