package kvconfig

import "fmt"

// ConfigPathError reports an override whose dotted path does not resolve
// to an existing key in the template.
type ConfigPathError struct {
	// Path is the full dotted path of the override.
	Path string

	// Segment is the first segment that failed to resolve.
	Segment string

	// Reason describes why resolution stopped at Segment.
	Reason string
}

func (e *ConfigPathError) Error() string {
	return fmt.Sprintf("config path %q: segment %q %s", e.Path, e.Segment, e.Reason)
}

// SchemaError reports a required flat-config field that is missing from the
// projected document or holds a value of the wrong kind.
type SchemaError struct {
	// Field is the flat key being extracted.
	Field string

	// Source is the dotted document path the field is read from.
	Source string

	// Reason describes the violation.
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Source != "" && e.Source != e.Field {
		return fmt.Sprintf("schema: field %s (from %s) %s", e.Field, e.Source, e.Reason)
	}
	return fmt.Sprintf("schema: field %s %s", e.Field, e.Reason)
}
