// Package activity defines the "create activity" capability: the structured
// output parser describing an activity, the prompt that asks for one and the
// tool exposing it to the agent executor.
package activity

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/hupe1980/activityagent/core"
	"github.com/hupe1980/activityagent/model"
	"github.com/hupe1980/activityagent/prompt"
	"github.com/hupe1980/activityagent/tool"
)

const (
	// ToolName is the function name the model calls.
	ToolName = "create_activity"
	// ToolDescription tells the model what the tool is for.
	ToolDescription = "Uses user input to create activity JSON object"

	// PromptText is the activity prompt. format_instructions is bound from
	// the parser, instruction is the user's input.
	PromptText = "Structure the output based on user's input.\n{{.format_instructions}}\n{{.instruction}}"

	// InstructionVariable is the prompt's single input variable.
	InstructionVariable = "instruction"
	// FormatInstructionsVariable is the prompt's partial variable.
	FormatInstructionsVariable = "format_instructions"
)

// Activity is a named activity with a duration in seconds.
type Activity struct {
	Name     string `json:"name"`
	Duration int    `json:"duration"`
}

// Mode selects what the tool returns.
type Mode string

const (
	// ModeRender returns the rendered prompt text.
	ModeRender Mode = "render"
	// ModeStructured asks the model for the activity and returns the parsed object.
	ModeStructured Mode = "structured"
)

// ParseMode converts a configuration string into a Mode. Empty means ModeRender.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRender:
		return ModeRender, nil
	case ModeStructured:
		return ModeStructured, nil
	default:
		return "", fmt.Errorf("activity: unknown tool mode %q", s)
	}
}

var minDuration float64

// NewParser returns the parser describing an activity.
func NewParser() (*prompt.StructuredOutputParser, error) {
	return prompt.NewStructuredOutputParser(
		prompt.Field{Name: "name", Description: "name of user's activity", Type: "string"},
		prompt.Field{Name: "duration", Description: "time duration in seconds of user's activity", Type: "integer", Minimum: &minDuration},
	)
}

// NewPrompt returns the activity prompt with the parser's format instructions bound.
func NewPrompt(parser *prompt.StructuredOutputParser) (*prompt.Template, error) {
	if parser == nil {
		return nil, errors.New("activity: parser is required")
	}
	return prompt.NewTemplate(PromptText, []string{InstructionVariable}, func(o *prompt.TemplateOptions) {
		o.PartialVariables = map[string]any{
			FormatInstructionsVariable: parser.FormatInstructions(),
		}
	})
}

// ToolOptions configures the activity tool.
type ToolOptions struct {
	Mode Mode
	// Model and Parser are required in ModeStructured.
	Model  model.Model
	Parser *prompt.StructuredOutputParser
}

type toolArgs struct {
	Input string `json:"input" jsonschema:"the user's request describing the activity"`
}

// NewTool builds the create_activity tool over tmpl.
func NewTool(tmpl *prompt.Template, optFns ...func(o *ToolOptions)) (tool.Tool, error) {
	if tmpl == nil {
		return nil, errors.New("activity: prompt template is required")
	}

	opts := ToolOptions{Mode: ModeRender}
	for _, fn := range optFns {
		fn(&opts)
	}

	var run func(tc *core.ToolContext, input string) (any, error)
	switch opts.Mode {
	case ModeRender:
		run = func(tc *core.ToolContext, input string) (any, error) {
			out, err := render(tmpl, input)
			if err != nil {
				return nil, err
			}
			tc.LogInfo("activity.prompt.rendered", "length", len(out))
			return out, nil
		}
	case ModeStructured:
		if opts.Model == nil || opts.Parser == nil {
			return nil, errors.New("activity: structured mode requires a model and a parser")
		}
		run = func(tc *core.ToolContext, input string) (any, error) {
			return structured(tc, tmpl, opts.Model, opts.Parser, input)
		}
	default:
		return nil, fmt.Errorf("activity: unknown tool mode %q", opts.Mode)
	}

	ft, err := tool.NewFunctionToolFromStruct(ToolName, ToolDescription, toolArgs{}, func(tc *core.ToolContext, args map[string]any) (any, error) {
		input, ok := args["input"].(string)
		if !ok {
			return nil, tool.NewToolError(ToolName, "input must be a string", tool.CodeValidation)
		}
		return run(tc, input)
	})
	if err != nil {
		return nil, err
	}

	return ft, nil
}

func render(tmpl *prompt.Template, input string) (string, error) {
	return tmpl.Format(map[string]any{InstructionVariable: input})
}

func structured(tc *core.ToolContext, tmpl *prompt.Template, llm model.Model, parser *prompt.StructuredOutputParser, input string) (Activity, error) {
	text, err := render(tmpl, input)
	if err != nil {
		return Activity{}, err
	}

	resp, err := model.Collect(tc.Context(), llm, model.Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, text)},
	})
	if err != nil {
		return Activity{}, err
	}

	obj, err := parser.Parse(resp.Content.Text())
	if err != nil {
		return Activity{}, err
	}

	act, err := FromMap(obj)
	if err != nil {
		return Activity{}, err
	}

	tc.LogDebug("activity.parsed", "name", act.Name, "duration", act.Duration)

	return act, nil
}

// FromMap converts a parsed object into an Activity.
func FromMap(obj map[string]any) (Activity, error) {
	name, ok := obj["name"].(string)
	if !ok {
		return Activity{}, fmt.Errorf("activity: name must be a string, got %T", obj["name"])
	}

	var duration int
	switch d := obj["duration"].(type) {
	case float64:
		if d != math.Trunc(d) {
			return Activity{}, fmt.Errorf("activity: duration must be an integer, got %v", d)
		}
		if d < 0 || d >= math.MaxInt32 {
			return Activity{}, fmt.Errorf("activity: duration out of range, got %v", d)
		}
		duration = int(d)
	case int:
		duration = d
	case int64:
		if d > math.MaxInt32 {
			return Activity{}, fmt.Errorf("activity: duration out of range, got %v", d)
		}
		duration = int(d)
	default:
		return Activity{}, fmt.Errorf("activity: duration must be a number, got %T", obj["duration"])
	}

	if duration < 0 {
		return Activity{}, fmt.Errorf("activity: duration must not be negative, got %d", duration)
	}

	return Activity{Name: name, Duration: duration}, nil
}
