// Package kvconfig projects a nested YAML configuration document plus a list
// of dotted-path overrides onto the flat key=value file the simulator reads.
//
// The document is a generic tree of mappings (map[string]any), sequences
// ([]any) and scalars. Overrides may only replace existing scalar keys: a
// path that does not resolve yields a *ConfigPathError and no file is written.
package kvconfig

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a nested configuration tree. The zero value is an empty mapping.
// A Document loaded as a sweep template is treated as immutable; Project
// always works on a Clone.
type Document struct {
	root map[string]any
}

// NewDocument wraps an already-decoded mapping. The mapping is deep-copied.
func NewDocument(root map[string]any) *Document {
	return &Document{root: cloneMap(root)}
}

// LoadDocument reads and parses a YAML document from path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config template: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config template %s: %w", path, err)
	}
	return doc, nil
}

// ParseDocument parses YAML bytes whose top level must be a mapping.
func ParseDocument(data []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return &Document{root: map[string]any{}}, nil
	}
	root, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top level must be a mapping, got %T", raw)
	}
	return &Document{root: root}, nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return &Document{root: map[string]any{}}
	}
	return &Document{root: cloneMap(d.root)}
}

// Lookup resolves a dotted path to its value.
func (d *Document) Lookup(path string) (any, error) {
	parent, leaf, err := d.resolveParent(path)
	if err != nil {
		return nil, err
	}
	v, ok := parent[leaf]
	if !ok {
		return nil, &ConfigPathError{Path: path, Segment: leaf, Reason: "does not exist"}
	}
	return v, nil
}

// Has reports whether path resolves to an existing key.
func (d *Document) Has(path string) bool {
	_, err := d.Lookup(path)
	return err == nil
}

// Set replaces the value at an existing dotted path. It never creates keys:
// every segment must already exist, intermediate segments must be mappings
// and the leaf must not be a mapping.
func (d *Document) Set(path string, value any) error {
	parent, leaf, err := d.resolveParent(path)
	if err != nil {
		return err
	}
	cur, ok := parent[leaf]
	if !ok {
		return &ConfigPathError{Path: path, Segment: leaf, Reason: "does not exist"}
	}
	if _, isMap := cur.(map[string]any); isMap {
		return &ConfigPathError{Path: path, Segment: leaf, Reason: "is a mapping and cannot be replaced by a value"}
	}
	parent[leaf] = normalize(value)
	return nil
}

// Map returns a deep copy of the underlying tree.
func (d *Document) Map() map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return cloneMap(d.root)
}

// resolveParent walks every segment but the last and returns the mapping
// holding the leaf.
func (d *Document) resolveParent(path string) (map[string]any, string, error) {
	if path == "" {
		return nil, "", &ConfigPathError{Path: path, Segment: "", Reason: "is empty"}
	}
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return nil, "", &ConfigPathError{Path: path, Segment: s, Reason: "is empty"}
		}
	}

	cur := d.root
	if cur == nil {
		cur = map[string]any{}
	}
	for _, seg := range segments[:len(segments)-1] {
		next, ok := cur[seg]
		if !ok {
			return nil, "", &ConfigPathError{Path: path, Segment: seg, Reason: "does not exist"}
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, "", &ConfigPathError{Path: path, Segment: seg, Reason: fmt.Sprintf("is a %s, not a mapping", kindName(next))}
		}
		cur = m
	}
	return cur, segments[len(segments)-1], nil
}

// normalize converts YAML-decoded trees into map[string]any / []any form.
// yaml.v3 yields map[any]any for mappings with non-string keys.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return uint64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return normalize(m).(map[string]any)
}

func kindName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "mapping"
	case []any:
		return "sequence"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}
