// Package schema loads, checks and normalizes template definitions.
//
// A template arrives as JSON (API, CLI) or YAML (CLI). Loading runs in a
// fixed order:
//
//  1. Structural check against the embedded JSON Schema
//  2. Decode into core.Template
//  3. Normalize: fill IDs, machine names and slug; strip markup from text
//  4. Semantic check: struct tags plus unique field IDs and names
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/csvstandard/internal/core"
)

//go:embed template.schema.json
var templateSchema string

var schemaLoader = gojsonschema.NewStringLoader(templateSchema)

// Format is a template file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension. Anything that is
// not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// FieldError is one problem found in a template definition.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a template definition.
// It wraps core.ErrInvalidTemplate.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(core.ErrInvalidTemplate.Error())
	for i, fe := range e.Errors {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "%s: %s", fe.Field, fe.Message)
	}
	return sb.String()
}

func (e *ValidationError) Unwrap() error {
	return core.ErrInvalidTemplate
}

// Load checks, decodes, normalizes and validates a template definition.
func Load(data []byte, format Format) (*core.Template, error) {
	if err := CheckStructure(data, format); err != nil {
		return nil, err
	}

	t, err := Decode(data, format)
	if err != nil {
		return nil, err
	}

	Normalize(t)

	if err := Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadFile reads and loads a template file. The format follows the extension.
func LoadFile(path string) (*core.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	t, err := Load(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadDir loads every .json, .yaml and .yml file in dir, sorted by file
// name. Other files are ignored. The first invalid file fails the whole load.
func LoadDir(dir string) ([]core.Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read template dir: %w", err)
	}

	var out []core.Template
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}

		t, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

// Decode unmarshals a template without checking it.
func Decode(data []byte, format Format) (*core.Template, error) {
	var t core.Template
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %v", core.ErrInvalidTemplate, err)
		}
	default:
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("%w: decode json: %v", core.ErrInvalidTemplate, err)
		}
	}
	return &t, nil
}

// CheckStructure validates the raw document against the embedded JSON Schema.
// YAML is converted to its JSON data model first.
func CheckStructure(data []byte, format Format) error {
	var doc interface{}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%w: decode yaml: %v", core.ErrInvalidTemplate, err)
		}
		doc = jsonCompatible(doc)
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%w: decode json: %v", core.ErrInvalidTemplate, err)
		}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidTemplate, err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return verr
}

// jsonCompatible rewrites values produced by yaml.v3 into the shapes
// encoding/json produces: map keys become strings, timestamps become strings.
func jsonCompatible(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		for k, val := range x {
			x[k] = jsonCompatible(val)
		}
		return x
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, val := range x {
			m[fmt.Sprint(k)] = jsonCompatible(val)
		}
		return m
	case []interface{}:
		for i, val := range x {
			x[i] = jsonCompatible(val)
		}
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return v
	}
}
