package tool

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/google/jsonschema-go/jsonschema"
)

// ValidationError reports arguments that do not satisfy a tool's parameter schema.
type ValidationError struct {
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return "validation error: " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CreateSchema derives a JSON schema object from a Go struct using
// jsonschema.ForType. A `jsonschema:"..."` field tag becomes the property
// description; fields without omitempty are required. Unknown properties are
// allowed so that models adding stray keys do not fail the call.
func CreateSchema(structType any) (map[string]any, error) {
	t := reflect.TypeOf(structType)
	if t == nil {
		return nil, fmt.Errorf("tool: cannot derive schema from nil")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("tool: cannot derive schema from %s, want struct", t)
	}

	s, err := jsonschema.ForType(t, nil)
	if err != nil {
		return nil, fmt.Errorf("tool: derive schema: %w", err)
	}
	s.AdditionalProperties = nil

	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	var params map[string]any
	if err := json.Unmarshal(b, &params); err != nil {
		return nil, err
	}

	return params, nil
}

// compileSchema converts a parameter map into a resolved schema ready for
// validation. A nil or empty map accepts any object.
func compileSchema(params map[string]any) (*jsonschema.Resolved, error) {
	s := &jsonschema.Schema{Type: "object"}
	if len(params) > 0 {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("tool: encode parameters: %w", err)
		}
		s = &jsonschema.Schema{}
		if err := json.Unmarshal(b, s); err != nil {
			return nil, fmt.Errorf("tool: decode parameters: %w", err)
		}
	}

	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("tool: resolve parameters: %w", err)
	}

	return resolved, nil
}

func validate(resolved *jsonschema.Resolved, params map[string]any) error {
	if params == nil {
		params = map[string]any{}
	}
	if err := resolved.Validate(params); err != nil {
		return &ValidationError{Message: err.Error(), Err: err}
	}
	return nil
}
