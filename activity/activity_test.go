package activity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hupe1980/activityagent/core"
	"github.com/hupe1980/activityagent/logging"
	"github.com/hupe1980/activityagent/model"
	"github.com/hupe1980/activityagent/prompt"
	"github.com/hupe1980/activityagent/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newToolContext() *core.ToolContext {
	return core.NewToolContext(context.Background(), "run-1", "agent", "call_1", logging.NoOpLogger{})
}

func setup(t *testing.T) (*prompt.StructuredOutputParser, *prompt.Template) {
	t.Helper()
	parser, err := NewParser()
	require.NoError(t, err)
	tmpl, err := NewPrompt(parser)
	require.NoError(t, err)
	return parser, tmpl
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeRender, false},
		{"render", ModeRender, false},
		{" Structured ", ModeStructured, false},
		{"llm", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewPrompt_Rendering(t *testing.T) {
	parser, tmpl := setup(t)

	out, err := tmpl.Format(map[string]any{"instruction": "Create an activity named Reading that lasts for 10 minutes"})
	require.NoError(t, err)

	want := "Structure the output based on user's input.\n" +
		parser.FormatInstructions() + "\n" +
		"Create an activity named Reading that lasts for 10 minutes"
	assert.Equal(t, want, out)
	assert.Equal(t, []string{"instruction"}, tmpl.InputVariables())
}

func TestNewTool_Render(t *testing.T) {
	parser, tmpl := setup(t)

	activityTool, err := NewTool(tmpl)
	require.NoError(t, err)
	assert.Equal(t, "create_activity", activityTool.Name())
	assert.Equal(t, "Uses user input to create activity JSON object", activityTool.Description())
	assert.Equal(t, []any{"input"}, activityTool.Parameters()["required"])

	out, err := activityTool.Call(newToolContext(), map[string]any{"input": "Reading for 10 minutes"})
	require.NoError(t, err)

	text, ok := out.(string)
	require.True(t, ok)
	assert.Contains(t, text, parser.FormatInstructions())
	assert.True(t, strings.HasSuffix(text, "\nReading for 10 minutes"))
}

func TestNewTool_RenderContainsInputProperty(t *testing.T) {
	parser, tmpl := setup(t)
	activityTool, err := NewTool(tmpl)
	require.NoError(t, err)
	instructions := parser.FormatInstructions()

	rapid.Check(t, func(rt *rapid.T) {
		input := rapid.String().Draw(rt, "input")

		out, err := activityTool.Call(newToolContext(), map[string]any{"input": input})
		if err != nil {
			rt.Fatalf("call: %v", err)
		}
		text := out.(string)
		if !strings.Contains(text, instructions) {
			rt.Fatalf("format instructions missing")
		}
		if !strings.Contains(text, input) {
			rt.Fatalf("input %q missing from %q", input, text)
		}
	})
}

func TestNewTool_InvalidArgs(t *testing.T) {
	_, tmpl := setup(t)
	activityTool, err := NewTool(tmpl)
	require.NoError(t, err)

	_, err = activityTool.Call(newToolContext(), map[string]any{})
	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeValidation, toolErr.Code)

	_, err = activityTool.Call(newToolContext(), map[string]any{"input": 42})
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeValidation, toolErr.Code)
}

func TestNewTool_Structured(t *testing.T) {
	parser, tmpl := setup(t)

	llm := model.NewMockModel("mock", "mock")
	llm.EnqueueText("```json\n{\"name\": \"Reading\", \"duration\": 600}\n```")

	activityTool, err := NewTool(tmpl, func(o *ToolOptions) {
		o.Mode = ModeStructured
		o.Model = llm
		o.Parser = parser
	})
	require.NoError(t, err)

	out, err := activityTool.Call(newToolContext(), map[string]any{"input": "Reading for 10 minutes"})
	require.NoError(t, err)
	assert.Equal(t, Activity{Name: "Reading", Duration: 600}, out)

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Contents[0].Text(), "Reading for 10 minutes")
	assert.Empty(t, reqs[0].Tools)
}

func TestNewTool_StructuredFailures(t *testing.T) {
	parser, tmpl := setup(t)

	t.Run("unparseable", func(t *testing.T) {
		llm := model.NewMockModel("mock", "mock")
		llm.EnqueueText("I could not do that")

		activityTool, err := NewTool(tmpl, func(o *ToolOptions) {
			o.Mode = ModeStructured
			o.Model = llm
			o.Parser = parser
		})
		require.NoError(t, err)

		_, err = activityTool.Call(newToolContext(), map[string]any{"input": "x"})
		assert.ErrorIs(t, err, prompt.ErrOutputParsing)
	})

	t.Run("model error", func(t *testing.T) {
		llm := model.NewMockModel("mock", "mock")
		llm.EnqueueError(errors.New("dial tcp: connection refused"))

		activityTool, err := NewTool(tmpl, func(o *ToolOptions) {
			o.Mode = ModeStructured
			o.Model = llm
			o.Parser = parser
		})
		require.NoError(t, err)

		_, err = activityTool.Call(newToolContext(), map[string]any{"input": "x"})
		var pe *model.ProviderError
		assert.ErrorAs(t, err, &pe)
	})
}

func TestNewTool_Config(t *testing.T) {
	_, err := NewTool(nil)
	assert.Error(t, err)

	_, tmpl := setup(t)
	_, err = NewTool(tmpl, func(o *ToolOptions) { o.Mode = ModeStructured })
	assert.Error(t, err)

	_, err = NewTool(tmpl, func(o *ToolOptions) { o.Mode = "other" })
	assert.Error(t, err)
}

func TestFromMap(t *testing.T) {
	act, err := FromMap(map[string]any{"name": "Reading", "duration": float64(600)})
	require.NoError(t, err)
	assert.Equal(t, Activity{Name: "Reading", Duration: 600}, act)

	_, err = FromMap(map[string]any{"name": 1, "duration": 1})
	assert.Error(t, err)
	_, err = FromMap(map[string]any{"name": "x", "duration": 1.5})
	assert.Error(t, err)
	_, err = FromMap(map[string]any{"name": "x", "duration": "1"})
	assert.Error(t, err)
	_, err = FromMap(map[string]any{"name": "x", "duration": float64(-5)})
	assert.Error(t, err)
	_, err = FromMap(map[string]any{"name": "x", "duration": 1e20})
	assert.Error(t, err)
	_, err = FromMap(map[string]any{"name": "x", "duration": -1})
	assert.Error(t, err)
}

func TestNewParser_RejectsNegativeDuration(t *testing.T) {
	parser, err := NewParser()
	require.NoError(t, err)

	_, err = parser.Parse(`{"name":"R","duration":-5}`)
	assert.ErrorIs(t, err, prompt.ErrOutputParsing)

	obj, err := parser.Parse(`{"name":"R","duration":0}`)
	require.NoError(t, err)
	assert.Equal(t, "R", obj["name"])
}
