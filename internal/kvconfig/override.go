package kvconfig

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Override replaces the value at a dotted path of the template.
type Override struct {
	Path  string
	Value any
}

// String renders the override in path=value form.
func (o Override) String() string {
	return fmt.Sprintf("%s=%v", o.Path, o.Value)
}

// ParseOverride parses a "path=value" argument. The value is decoded as a
// YAML scalar, so "0.2" becomes a float, "true" a boolean and "fixed" a string.
func ParseOverride(s string) (Override, error) {
	path, raw, ok := strings.Cut(s, "=")
	if !ok {
		return Override{}, fmt.Errorf("override %q must have the form path=value", s)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Override{}, fmt.Errorf("override %q has an empty path", s)
	}

	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return Override{}, fmt.Errorf("override %q: invalid value: %w", s, err)
	}
	switch value.(type) {
	case map[string]any, map[any]any, []any:
		return Override{}, fmt.Errorf("override %q: value must be a scalar", s)
	case nil:
		// "a.b=" keeps the empty string rather than null.
		if strings.TrimSpace(raw) == "" {
			value = ""
		}
	}

	return Override{Path: path, Value: value}, nil
}

// ParseOverrides parses each argument with ParseOverride, preserving order.
func ParseOverrides(args []string) ([]Override, error) {
	out := make([]Override, 0, len(args))
	for _, a := range args {
		o, err := ParseOverride(a)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
