package prompt

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"text/template"
)

// ErrMissingVariable is returned when a declared input variable is not supplied.
var ErrMissingVariable = errors.New("prompt: missing input variable")

// TemplateOptions configures a Template.
type TemplateOptions struct {
	// PartialVariables are bound at construction and merged under the caller's values.
	PartialVariables map[string]any
}

// Template is a parsed prompt with declared input variables. It is safe for
// concurrent use once constructed.
type Template struct {
	text           string
	inputVariables []string
	partials       map[string]any
	tmpl           *template.Template
}

// NewTemplate parses text as a text/template. Variables are referenced as
// {{.name}}; referencing an unknown key fails at Format time.
func NewTemplate(text string, inputVariables []string, optFns ...func(o *TemplateOptions)) (*Template, error) {
	opts := TemplateOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("prompt: parse template: %w", err)
	}

	partials := make(map[string]any, len(opts.PartialVariables))
	maps.Copy(partials, opts.PartialVariables)

	for _, name := range inputVariables {
		if _, ok := partials[name]; ok {
			return nil, fmt.Errorf("prompt: variable %q declared both as input and partial", name)
		}
	}

	return &Template{
		text:           text,
		inputVariables: append([]string(nil), inputVariables...),
		partials:       partials,
		tmpl:           tmpl,
	}, nil
}

// InputVariables returns the names callers must supply to Format.
func (t *Template) InputVariables() []string {
	return append([]string(nil), t.inputVariables...)
}

// Text returns the raw template text.
func (t *Template) Text() string { return t.text }

// Format renders the template with values merged over the partial variables.
func (t *Template) Format(values map[string]any) (string, error) {
	data := make(map[string]any, len(t.partials)+len(values))
	maps.Copy(data, t.partials)

	for _, name := range t.inputVariables {
		v, ok := values[name]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMissingVariable, name)
		}
		data[name] = v
	}

	var b strings.Builder
	if err := t.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("prompt: render template: %w", err)
	}

	return b.String(), nil
}
