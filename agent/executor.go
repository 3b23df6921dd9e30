package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/activityagent/core"
	"github.com/hupe1980/activityagent/logging"
	"github.com/hupe1980/activityagent/memory"
	"github.com/hupe1980/activityagent/model"
	"github.com/hupe1980/activityagent/tool"
)

// Input and output keys of Call.
const (
	InputKey             = "input"
	OutputKey            = "output"
	IntermediateStepsKey = "intermediate_steps"
)

// DefaultInstructions is the system prompt used when Options.Instructions is empty.
const DefaultInstructions = `Assistant is a helpful assistant able to help with a wide range of tasks.
Assistant has access to tools. When a tool is relevant to the user's request, call it and use its result to answer.
When no tool is needed, answer the user directly.`

// Options configures an Executor.
//
// Use functional options with NewExecutor to override defaults.
type Options struct {
	Name         string
	Instructions string
	Memory       memory.Memory
	// MaxIterations bounds the number of model turns per Call.
	MaxIterations int
	// Verbose logs each step at info level instead of debug.
	Verbose bool
	// HandleToolErrors feeds tool errors back to the model as observations
	// instead of failing the call.
	HandleToolErrors bool
	// ReturnIntermediateSteps adds the executed steps to the result.
	ReturnIntermediateSteps bool
	Logger                  logging.Logger
}

// Step records one tool call and the observation it produced.
type Step struct {
	Action      core.FunctionCall `json:"action"`
	Observation string            `json:"observation"`
}

// Executor runs the conversational tool-calling loop. An Executor holds no
// per-call state and may serve concurrent calls; an attached memory is shared
// by all of them.
type Executor struct {
	llm     model.Model
	tools   map[string]tool.Tool
	toolDef []model.ToolDefinition
	opts    Options
}

// NewExecutor creates an executor over llm with the given tools. Tool names
// must be unique.
func NewExecutor(llm model.Model, tools []tool.Tool, optFns ...func(o *Options)) (*Executor, error) {
	if llm == nil {
		return nil, errors.New("agent: model is required")
	}

	opts := Options{
		Name:          "agent",
		Instructions:  DefaultInstructions,
		MaxIterations: 15,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxIterations <= 0 {
		return nil, fmt.Errorf("agent: max iterations must be positive, got %d", opts.MaxIterations)
	}

	registry := make(map[string]tool.Tool, len(tools))
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		if t == nil {
			return nil, errors.New("agent: nil tool")
		}
		if _, dup := registry[t.Name()]; dup {
			return nil, fmt.Errorf("agent: duplicate tool name %q", t.Name())
		}
		registry[t.Name()] = t
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return &Executor{llm: llm, tools: registry, toolDef: defs, opts: opts}, nil
}

// SetMemory attaches (or, with nil, detaches) conversational memory.
func (e *Executor) SetMemory(m memory.Memory) { e.opts.Memory = m }

// Memory returns the attached memory, if any.
func (e *Executor) Memory() memory.Memory { return e.opts.Memory }

// Run is a convenience wrapper around Call returning only the final output.
func (e *Executor) Run(ctx context.Context, input string) (string, error) {
	out, err := e.Call(ctx, map[string]any{InputKey: input})
	if err != nil {
		return "", err
	}
	s, _ := out[OutputKey].(string)
	return s, nil
}

// Call executes the loop for inputs["input"] and returns a result holding
// "output" and, when enabled, "intermediate_steps".
func (e *Executor) Call(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	input, ok := inputs[InputKey].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingInput, InputKey)
	}

	runID := core.NewID()
	logger := logging.With(e.opts.Logger, "agent", e.opts.Name, "run_id", runID)
	start := time.Now()

	contents, err := e.history(ctx, inputs)
	if err != nil {
		return nil, err
	}
	contents = append(contents, core.NewTextContent(core.RoleUser, input))

	e.trace(logger, "agent.run.start", "input", input, "history", len(contents)-1, "tools", len(e.tools))

	var steps []Step
	for iteration := 1; iteration <= e.opts.MaxIterations; iteration++ {
		resp, err := model.Collect(ctx, e.llm, model.Request{
			Instructions: e.opts.Instructions,
			Contents:     contents,
			Tools:        e.toolDef,
		})
		if err != nil {
			logger.Error("agent.model.error", "iteration", iteration, "error", err)
			return nil, err
		}

		resp.Content = withCallIDs(resp.Content)
		calls := resp.Content.FunctionCalls()
		e.trace(logger, "agent.model.response",
			"iteration", iteration,
			"finish_reason", resp.FinishReason,
			"tool_calls", len(calls),
			"text", resp.Content.Text(),
		)

		if len(calls) == 0 {
			output := resp.Content.Text()
			if err := e.save(ctx, inputs, output); err != nil {
				return nil, err
			}

			e.trace(logger, "agent.run.finish",
				"iterations", iteration,
				"output", output,
				"duration_ms", time.Since(start).Milliseconds(),
			)

			result := map[string]any{OutputKey: output}
			if e.opts.ReturnIntermediateSteps {
				result[IntermediateStepsKey] = steps
			}
			return result, nil
		}

		resp.Content.Role = core.RoleAssistant
		contents = append(contents, resp.Content)

		responses := make([]core.Part, 0, len(calls))
		for _, fc := range calls {
			observation, err := e.executeCall(ctx, runID, logger, fc)
			fr := core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: observation}
			if err != nil {
				if !e.opts.HandleToolErrors {
					return nil, fmt.Errorf("%w: %s: %w", ErrToolExecution, fc.Name, err)
				}
				fr.Response = ""
				fr.Error = err.Error()
				observation = err.Error()
			}

			e.trace(logger, "agent.tool.observation", "tool", fc.Name, "function_call_id", fc.ID, "observation", observation)

			steps = append(steps, Step{Action: fc, Observation: observation})
			responses = append(responses, core.FunctionResponsePart{FunctionResponse: fr})
		}
		contents = append(contents, core.Content{Role: core.RoleTool, Parts: responses})
	}

	logger.Warn("agent.run.max_iterations", "max_iterations", e.opts.MaxIterations)

	return nil, fmt.Errorf("%w (%d)", ErrMaxIterations, e.opts.MaxIterations)
}

// withCallIDs returns c with a generated ID on every function call that has
// none, so the assistant turn and the tool responses reference the same call.
func withCallIDs(c core.Content) core.Content {
	parts := make([]core.Part, len(c.Parts))
	for i, p := range c.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok && fc.FunctionCall.ID == "" {
			fc.FunctionCall.ID = core.NewID()
			p = fc
		}
		parts[i] = p
	}
	c.Parts = parts
	return c
}

// history loads prior messages from memory.
func (e *Executor) history(ctx context.Context, inputs map[string]any) ([]core.Content, error) {
	if e.opts.Memory == nil {
		return nil, nil
	}

	vars, err := e.opts.Memory.LoadMemoryVariables(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", ErrMemory, err)
	}

	var contents []core.Content
	for _, key := range e.opts.Memory.MemoryVariables() {
		switch v := vars[key].(type) {
		case []core.Content:
			contents = append(contents, v...)
		case string:
			if v != "" {
				contents = append(contents, core.NewTextContent(core.RoleSystem, v))
			}
		case nil:
		default:
			return nil, fmt.Errorf("%w: unsupported memory value %T for %q", ErrMemory, v, key)
		}
	}
	return contents, nil
}

func (e *Executor) save(ctx context.Context, inputs map[string]any, output string) error {
	if e.opts.Memory == nil {
		return nil
	}
	if err := e.opts.Memory.SaveContext(ctx, inputs, map[string]any{OutputKey: output}); err != nil {
		return fmt.Errorf("%w: save: %w", ErrMemory, err)
	}
	return nil
}

// executeCall runs one tool call. Unknown tools yield a corrective
// observation rather than an error.
func (e *Executor) executeCall(ctx context.Context, runID string, logger logging.Logger, fc core.FunctionCall) (string, error) {
	impl, ok := e.tools[fc.Name]
	if !ok {
		logger.Warn("agent.tool.unknown", "tool", fc.Name)
		return fmt.Sprintf("%s is not a valid tool, try another one.", fc.Name), nil
	}

	e.trace(logger, "agent.tool.start", "tool", fc.Name, "function_call_id", fc.ID, "arguments", fc.Arguments)

	toolCtx := core.NewToolContext(ctx, runID, e.opts.Name, fc.ID, logger)
	start := time.Now()

	var (
		result any
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Value: r, Stack: debug.Stack()}
				logger.Error("agent.tool.panic", "tool", fc.Name, "recover", r)
			}
		}()
		result, err = callTool(impl, toolCtx, fc.Arguments)
	}()

	logger.Debug("agent.tool.executed",
		"tool", fc.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	if err != nil {
		logger.Error("agent.tool.error", "tool", fc.Name, "error", err)
		return "", err
	}

	return observationText(result), nil
}

// callTool decodes the JSON arguments and invokes the tool.
func callTool(impl tool.Tool, toolCtx *core.ToolContext, args string) (any, error) {
	argMap := map[string]any{}
	if args != "" {
		if err := json.Unmarshal([]byte(args), &argMap); err != nil {
			return nil, &tool.ToolError{
				Tool:    impl.Name(),
				Message: fmt.Sprintf("failed to unmarshal args: %v", err),
				Code:    tool.CodeValidation,
				Err:     err,
			}
		}
	}
	return impl.Call(toolCtx, argMap)
}

// observationText renders a tool result for the model.
func observationText(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func (e *Executor) trace(logger logging.Logger, msg string, args ...any) {
	if e.opts.Verbose {
		logger.Info(msg, args...)
		return
	}
	logger.Debug(msg, args...)
}
