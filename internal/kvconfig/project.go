package kvconfig

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nvandessel/gridsweep/internal/constants"
)

// Entry is one key=value line of a flat config.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// FlatConfig is the projected configuration in file order.
type FlatConfig struct {
	Entries []Entry
}

// Get returns the rendered value for key.
func (c *FlatConfig) Get(key string) (string, bool) {
	for _, e := range c.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Bytes renders the file content: one key=value line per entry, newline terminated.
func (c *FlatConfig) Bytes() []byte {
	var buf bytes.Buffer
	for _, e := range c.Entries {
		buf.WriteString(e.Key)
		buf.WriteByte('=')
		buf.WriteString(e.Value)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// WriteFile writes the flat config to path, creating parent directories.
func (c *FlatConfig) WriteFile(path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create flat config: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close flat config: %w", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if _, err := w.Write(c.Bytes()); err != nil {
		return fmt.Errorf("failed to write flat config: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write flat config: %w", err)
	}
	return nil
}

// Project applies overrides in order to a clone of template and extracts the
// Schema fields into a FlatConfig. The template is never modified.
func Project(template *Document, overrides []Override) (*FlatConfig, error) {
	doc := template.Clone()
	for _, o := range overrides {
		if err := doc.Set(o.Path, o.Value); err != nil {
			return nil, err
		}
	}

	controller, err := activeController(doc)
	if err != nil {
		return nil, err
	}

	flat := &FlatConfig{Entries: make([]Entry, 0, len(Schema))}
	for _, field := range Schema {
		v, lookupErr := doc.Lookup(field.source())
		if lookupErr != nil {
			if field.Family != "" && field.Family != controller {
				// Inactive families fall back to simulator defaults.
				continue
			}
			return nil, &SchemaError{Field: field.Key, Source: field.source(), Reason: "is required but missing"}
		}

		rendered, renderErr := render(v, field.Kind)
		if renderErr != nil {
			return nil, &SchemaError{Field: field.Key, Source: field.source(), Reason: renderErr.Error()}
		}
		flat.Entries = append(flat.Entries, Entry{Key: field.Key, Value: rendered})
	}

	return flat, nil
}

// ProjectToFile projects and writes the result to path. Nothing is written
// when projection fails.
func ProjectToFile(template *Document, overrides []Override, path string) (*FlatConfig, error) {
	flat, err := Project(template, overrides)
	if err != nil {
		return nil, err
	}
	if err := flat.WriteFile(path); err != nil {
		return nil, err
	}
	return flat, nil
}

func activeController(doc *Document) (string, error) {
	v, err := doc.Lookup(constants.ControllerPath)
	if err != nil {
		return "", &SchemaError{Field: constants.ControllerPath, Reason: "is required but missing"}
	}
	name, ok := v.(string)
	if !ok {
		return "", &SchemaError{Field: constants.ControllerPath, Reason: fmt.Sprintf("must be a string, got %s", kindName(v))}
	}
	if !knownFamily(name) {
		return "", &SchemaError{Field: constants.ControllerPath, Reason: fmt.Sprintf("names unknown controller family %q", name)}
	}
	return name, nil
}

// render formats a value in the simulator's wire form.
func render(v any, kind Kind) (string, error) {
	switch kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("must be a string, got %s", kindName(v))
		}
		return s, nil

	case KindBool:
		switch t := v.(type) {
		case bool:
			if t {
				return "1", nil
			}
			return "0", nil
		default:
			n, ok := number(v)
			if !ok {
				return "", fmt.Errorf("must be a boolean, got %s", kindName(v))
			}
			if n != 0 {
				return "1", nil
			}
			return "0", nil
		}

	default:
		switch t := v.(type) {
		case int:
			return strconv.Itoa(t), nil
		case int64:
			return strconv.FormatInt(t, 10), nil
		case uint64:
			return strconv.FormatUint(t, 10), nil
		case float64:
			if math.IsNaN(t) || math.IsInf(t, 0) {
				return "", fmt.Errorf("must be a finite number, got %v", t)
			}
			return strconv.FormatFloat(t, 'f', -1, 64), nil
		default:
			return "", fmt.Errorf("must be a number, got %s", kindName(v))
		}
	}
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
