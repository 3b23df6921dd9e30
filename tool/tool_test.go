package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/activityagent/core"
	"github.com/hupe1980/activityagent/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------- Schema & Validation Tests --------------------

type sampleSchema struct {
	A string `json:"a" jsonschema:"Field A"`
	B int    `json:"b,omitempty" jsonschema:"Omit empty field"`
	c int
}

func TestCreateSchema(t *testing.T) {
	schema, err := CreateSchema(sampleSchema{})
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "additionalProperties")

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, 2)

	a := props["a"].(map[string]any)
	assert.Equal(t, "string", a["type"])
	assert.Equal(t, "Field A", a["description"])

	b := props["b"].(map[string]any)
	assert.Equal(t, "integer", b["type"])

	assert.Equal(t, []any{"a"}, schema["required"])
}

func TestCreateSchema_NonStruct(t *testing.T) {
	_, err := CreateSchema("nope")
	assert.Error(t, err)

	_, err = CreateSchema(nil)
	assert.Error(t, err)

	schema, err := CreateSchema(&sampleSchema{})
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])
}

func validateParameters(params, schema map[string]any) error {
	resolved, err := compileSchema(schema)
	if err != nil {
		return err
	}
	return validate(resolved, params)
}

func TestValidateParameters(t *testing.T) {
	for _, required := range []any{[]any{"x"}, []string{"x"}} {
		schema := map[string]any{
			"type": "object",
			"properties": map[string]any{
				"x": map[string]any{"type": "integer"},
			},
			"required": required,
		}

		assert.NoError(t, validateParameters(map[string]any{"x": 5}, schema))
		assert.NoError(t, validateParameters(map[string]any{"x": 5.0}, schema))

		err := validateParameters(map[string]any{}, schema)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Message, "x")

		err = validateParameters(map[string]any{"x": "not-int"}, schema)
		assert.ErrorAs(t, err, &vErr)

		err = validateParameters(map[string]any{"x": 1.5}, schema)
		assert.ErrorAs(t, err, &vErr)
	}
}

func TestValidateParameters_ExtraFieldsAllowed(t *testing.T) {
	schema := map[string]any{"type": "object", "properties": map[string]any{}}
	assert.NoError(t, validateParameters(map[string]any{"extra": true}, schema))
	assert.NoError(t, validateParameters(map[string]any{"extra": true}, nil))
}

// -------------------- FunctionTool Tests --------------------

func newToolContext(fcID string) *core.ToolContext {
	return core.NewToolContext(context.Background(), "run-1", "Agent", fcID, logging.NoOpLogger{})
}

func TestFunctionTool_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	sumTool, err := NewFunctionTool("sum", "Add numbers", params, func(_ *core.ToolContext, args map[string]any) (any, error) {
		a := args["a"].(float64)
		b := args["b"].(float64)
		return a + b, nil
	})
	require.NoError(t, err)

	result, err := sumTool.Call(newToolContext("fc1"), map[string]any{"a": 2.0, "b": 3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, result)
	assert.Equal(t, "sum", sumTool.Name())
	assert.Equal(t, "Add numbers", sumTool.Description())
	assert.Equal(t, params, sumTool.Parameters())
}

func TestFunctionTool_ValidationError(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
		},
		"required": []string{"a"},
	}
	called := false
	tTool, err := NewFunctionTool("test", "Test", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		called = true
		return 0, nil
	})
	require.NoError(t, err)

	_, err = tTool.Call(newToolContext("fc2"), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
	assert.False(t, called)

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	boom := errors.New("boom")
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	execTool, err := NewFunctionTool("fail", "Fails", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, boom
	})
	require.NoError(t, err)

	_, err = execTool.Call(newToolContext("fc3"), map[string]any{})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.ErrorIs(t, err, boom)
}

func TestFunctionTool_ToolErrorPassthrough(t *testing.T) {
	custom := NewToolError("custom", "nope", "E_CUSTOM")
	execTool, err := NewFunctionTool("custom", "Custom", map[string]any{"type": "object"}, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, custom
	})
	require.NoError(t, err)

	_, err = execTool.Call(newToolContext("fc4"), map[string]any{})
	assert.Same(t, custom, err)
}

func TestFunctionToolFromStruct(t *testing.T) {
	type args struct {
		Input string `json:"input" jsonschema:"user input"`
	}
	echo, err := NewFunctionToolFromStruct("echo", "Echo", args{}, func(_ *core.ToolContext, a map[string]any) (any, error) {
		return a["input"], nil
	})
	require.NoError(t, err)

	assert.Equal(t, []any{"input"}, echo.Parameters()["required"])

	out, err := echo.Call(newToolContext("fc5"), map[string]any{"input": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	_, err = echo.Call(newToolContext("fc6"), map[string]any{})
	assert.Error(t, err)
}

func TestNewFunctionTool_Invalid(t *testing.T) {
	noop := func(*core.ToolContext, map[string]any) (any, error) { return nil, nil }

	_, err := NewFunctionTool("", "x", nil, noop)
	assert.Error(t, err)

	_, err = NewFunctionTool("x", "x", nil, nil)
	assert.Error(t, err)

	_, err = NewFunctionTool("x", "x", map[string]any{"type": 42}, noop)
	assert.Error(t, err)
}

// -------------------- ToolError Formatting --------------------

func TestToolErrorFormatting(t *testing.T) {
	err := NewToolError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")

	plain := &ToolError{Tool: "demo", Message: "x"}
	assert.Equal(t, "tool error in demo: x", plain.Error())
}
