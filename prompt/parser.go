package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// ErrOutputParsing is returned when model output cannot be turned into a
// schema conforming object.
var ErrOutputParsing = errors.New("prompt: failed to parse model output")

// Field describes one property of the structured output.
type Field struct {
	Name        string
	Description string
	// Type is a JSON schema type name. Empty means "string".
	Type string
	// Minimum bounds numeric fields from below when set.
	Minimum *float64
}

// StructuredOutputParser describes the object a model has to produce and
// parses the model's answer back into it.
type StructuredOutputParser struct {
	fields   []Field
	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
}

// NewStructuredOutputParser builds a parser whose schema is an object with
// every field required.
func NewStructuredOutputParser(fields ...Field) (*StructuredOutputParser, error) {
	if len(fields) == 0 {
		return nil, errors.New("prompt: structured output parser needs at least one field")
	}

	fields = slices.Clone(fields)
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(fields)),
	}

	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("prompt: field %d has no name", i)
		}
		if _, dup := schema.Properties[f.Name]; dup {
			return nil, fmt.Errorf("prompt: duplicate field %q", f.Name)
		}
		if f.Type == "" {
			fields[i].Type = "string"
		}
		schema.Properties[f.Name] = &jsonschema.Schema{
			Type:        fields[i].Type,
			Description: f.Description,
			Minimum:     f.Minimum,
		}
		schema.Required = append(schema.Required, f.Name)
		schema.PropertyOrder = append(schema.PropertyOrder, f.Name)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("prompt: resolve output schema: %w", err)
	}

	return &StructuredOutputParser{
		fields:   fields,
		schema:   schema,
		resolved: resolved,
	}, nil
}

// Fields returns the parser's fields in schema order.
func (p *StructuredOutputParser) Fields() []Field {
	return slices.Clone(p.fields)
}

// Schema returns the JSON encoding of the output schema.
func (p *StructuredOutputParser) Schema() string {
	b, err := json.Marshal(p.schema)
	if err != nil {
		// A schema built from Fields always marshals.
		panic(err)
	}
	return string(b)
}

// FormatInstructions returns the natural-language instructions telling a
// model how to shape its answer.
func (p *StructuredOutputParser) FormatInstructions() string {
	var b strings.Builder

	b.WriteString("You must format your output as a JSON value that adheres to a given \"JSON Schema\" instance.\n\n")
	b.WriteString("\"JSON Schema\" is a declarative language that allows you to annotate and validate JSON documents.\n\n")
	b.WriteString("For example, the example \"JSON Schema\" instance {\"properties\": {\"foo\": {\"description\": \"a list of test words\", \"type\": \"array\", \"items\": {\"type\": \"string\"}}}, \"required\": [\"foo\"]}\n")
	b.WriteString("would match an object with one required property, \"foo\". The \"type\" property specifies \"foo\" must be an \"array\", and the \"description\" property semantically describes it as \"a list of test words\". The items within \"foo\" must be strings.\n")
	b.WriteString("Thus, the object {\"foo\": [\"bar\", \"baz\"]} is a well-formatted instance of this example \"JSON Schema\". The object {\"properties\": {\"foo\": [\"bar\", \"baz\"]}} is not well-formatted.\n\n")
	b.WriteString("Your output will be parsed and type-checked according to the provided schema instance, so make sure all fields in your output match the schema exactly and there are no trailing commas!\n\n")
	b.WriteString("Here is the JSON Schema instance your output must adhere to. Include the enclosing markdown codeblock:\n")
	b.WriteString("```json\n")
	b.WriteString(p.Schema())
	b.WriteString("\n```\n")

	return b.String()
}

// Parse extracts the JSON object from text, repairs common syntax slips and
// validates the result against the schema.
func (p *StructuredOutputParser) Parse(text string) (map[string]any, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object found", ErrOutputParsing)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		var syntaxErr *json.SyntaxError
		if !errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("%w: %w", ErrOutputParsing, err)
		}

		repaired, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			return nil, fmt.Errorf("%w: %w", ErrOutputParsing, err)
		}
		if err := json.Unmarshal([]byte(repaired), &out); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOutputParsing, err)
		}
	}

	if err := p.resolved.Validate(out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutputParsing, err)
	}

	return out, nil
}

// extractJSON prefers a fenced code block and falls back to the outermost braces.
func extractJSON(text string) string {
	if start := strings.Index(text, "```"); start >= 0 {
		body := text[start+3:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		if s := strings.TrimSpace(body); s != "" {
			return s
		}
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
