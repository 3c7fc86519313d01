package pdfset

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	keyNumMembers = "NumMembers"
	keySetDesc    = "SetDesc"
	keyProcesses  = "mcscales_processes"
)

// Info is a set-level .info document. It is held as a YAML node tree so that
// rewriting it keeps key order, comments and scalar styles of every entry
// that was not explicitly changed.
type Info struct {
	doc *yaml.Node
}

// ParseInfo parses an .info document. An empty document yields an empty
// mapping.
func ParseInfo(data []byte) (*Info, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("info document is not a key-value mapping")
	}
	return &Info{doc: &doc}, nil
}

// ReadInfo parses the .info file at path.
func ReadInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := ParseInfo(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return info, nil
}

func (i *Info) root() *yaml.Node {
	return i.doc.Content[0]
}

func (i *Info) lookup(key string) *yaml.Node {
	root := i.root()
	for k := 0; k+1 < len(root.Content); k += 2 {
		if root.Content[k].Value == key {
			return root.Content[k+1]
		}
	}
	return nil
}

// Keys returns the keys in document order.
func (i *Info) Keys() []string {
	root := i.root()
	keys := make([]string, 0, len(root.Content)/2)
	for k := 0; k+1 < len(root.Content); k += 2 {
		keys = append(keys, root.Content[k].Value)
	}
	return keys
}

// Has reports whether key is present.
func (i *Info) Has(key string) bool {
	return i.lookup(key) != nil
}

// Decode decodes the value under key into v.
func (i *Info) Decode(key string, v any) error {
	n := i.lookup(key)
	if n == nil {
		return fmt.Errorf("info key %q not found", key)
	}
	if err := n.Decode(v); err != nil {
		return fmt.Errorf("info key %q: %w", key, err)
	}
	return nil
}

// Int returns the integer under key.
func (i *Info) Int(key string) (int, error) {
	var v int
	err := i.Decode(key, &v)
	return v, err
}

// String returns the string under key.
func (i *Info) String(key string) (string, error) {
	var v string
	err := i.Decode(key, &v)
	return v, err
}

// Strings returns the sequence of strings under key.
func (i *Info) Strings(key string) ([]string, error) {
	var v []string
	err := i.Decode(key, &v)
	return v, err
}

// NumMembers returns the NumMembers entry, which must be at least 1.
func (i *Info) NumMembers() (int, error) {
	n, err := i.Int(keyNumMembers)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("info key %q: %d is not a positive member count", keyNumMembers, n)
	}
	return n, nil
}

// Processes returns the mcscales_processes entry.
func (i *Info) Processes() ([]string, error) {
	return i.Strings(keyProcesses)
}

// Set replaces the value under key, or appends the entry when key is new.
// A replaced value keeps its line comment.
func (i *Info) Set(key string, value any) error {
	var n yaml.Node
	if err := n.Encode(value); err != nil {
		return fmt.Errorf("info key %q: %w", key, err)
	}
	root := i.root()
	for k := 0; k+1 < len(root.Content); k += 2 {
		if root.Content[k].Value == key {
			n.LineComment = root.Content[k+1].LineComment
			root.Content[k+1] = &n
			return nil
		}
	}
	root.Content = append(root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&n,
	)
	return nil
}

// Clone returns a deep copy of i.
func (i *Info) Clone() *Info {
	return &Info{doc: cloneNode(i.doc, make(map[*yaml.Node]*yaml.Node))}
}

func cloneNode(n *yaml.Node, seen map[*yaml.Node]*yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if c, ok := seen[n]; ok {
		return c
	}
	c := *n
	seen[n] = &c
	c.Alias = cloneNode(n.Alias, seen)
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for k, child := range n.Content {
			c.Content[k] = cloneNode(child, seen)
		}
	}
	return &c
}

// Bytes encodes the document.
func (i *Info) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(i.doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes the document to path.
func (i *Info) WriteFile(path string) error {
	data, err := i.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
