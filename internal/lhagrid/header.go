package lhagrid

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Header is the key-value block at the top of a member file.
// It keeps the verbatim bytes it was parsed from so that a member can be
// written back without reformatting, and a parsed view for field lookups.
type Header struct {
	raw  []byte
	root *yaml.Node // mapping node, nil for an empty header
}

// NewHeader parses raw as a YAML mapping. raw is copied.
func NewHeader(raw []byte) (Header, error) {
	h := Header{raw: bytes.Clone(raw)}
	if len(bytes.TrimSpace(raw)) == 0 {
		return h, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Header{}, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return h, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return Header{}, fmt.Errorf("header is not a key-value mapping")
	}
	h.root = root
	return h, nil
}

// MustHeader is like NewHeader but panics on error. It is meant for
// package-level literals.
func MustHeader(raw string) Header {
	h, err := NewHeader([]byte(raw))
	if err != nil {
		panic(err)
	}
	return h
}

// Raw returns the verbatim header bytes. The caller must not modify them.
func (h Header) Raw() []byte {
	return h.raw
}

// Keys returns the header keys in document order.
func (h Header) Keys() []string {
	if h.root == nil {
		return nil
	}
	keys := make([]string, 0, len(h.root.Content)/2)
	for i := 0; i+1 < len(h.root.Content); i += 2 {
		keys = append(keys, h.root.Content[i].Value)
	}
	return keys
}

func (h Header) lookup(key string) *yaml.Node {
	if h.root == nil {
		return nil
	}
	for i := 0; i+1 < len(h.root.Content); i += 2 {
		if h.root.Content[i].Value == key {
			return h.root.Content[i+1]
		}
	}
	return nil
}

// Has reports whether key is present.
func (h Header) Has(key string) bool {
	return h.lookup(key) != nil
}

// Float returns the numeric value stored under key.
func (h Header) Float(key string) (float64, error) {
	n := h.lookup(key)
	if n == nil {
		return 0, fmt.Errorf("header key %q not found", key)
	}
	var f float64
	if err := n.Decode(&f); err != nil {
		return 0, fmt.Errorf("header key %q: %w", key, err)
	}
	return f, nil
}

// String returns the string value stored under key.
func (h Header) String(key string) (string, error) {
	n := h.lookup(key)
	if n == nil {
		return "", fmt.Errorf("header key %q not found", key)
	}
	var s string
	if err := n.Decode(&s); err != nil {
		return "", fmt.Errorf("header key %q: %w", key, err)
	}
	return s, nil
}

// Strings returns the sequence of strings stored under key.
func (h Header) Strings(key string) ([]string, error) {
	n := h.lookup(key)
	if n == nil {
		return nil, fmt.Errorf("header key %q not found", key)
	}
	var out []string
	if err := n.Decode(&out); err != nil {
		return nil, fmt.Errorf("header key %q: %w", key, err)
	}
	return out, nil
}
