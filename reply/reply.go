// Package reply assembles the activity agent for one instruction and runs it:
// it wires the structured output parser, the activity prompt and tool, the
// model binding and the seeded conversational memory into an agent executor.
package reply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/activityagent/activity"
	"github.com/hupe1980/activityagent/agent"
	"github.com/hupe1980/activityagent/core"
	"github.com/hupe1980/activityagent/logging"
	"github.com/hupe1980/activityagent/memory"
	"github.com/hupe1980/activityagent/model"
	"github.com/hupe1980/activityagent/tool"
)

const (
	// DefaultInstruction is used when the caller supplies none.
	DefaultInstruction = "Create an activity named Reading that lasts for 10 minutes"
	// Greeting seeds the conversation history.
	Greeting = "Hi there! I am your productivity assistant, how can I help you today?"
	// MemoryKey is the variable the history is exposed under.
	MemoryKey = "chat_history"
)

// ErrMissingCredential is returned when no model credential is configured.
var ErrMissingCredential = errors.New("reply: missing model credential")

// ModelFactory builds a model client for the given credential.
type ModelFactory func(credential string) (model.Model, error)

// Options configures a Generator.
type Options struct {
	Credential string
	NewModel   ModelFactory
	// Instruction is used when Generate receives an empty instruction.
	Instruction      string
	EnableMemory     bool
	ToolMode         activity.Mode
	Verbose          bool
	MaxIterations    int
	HandleToolErrors bool
	ReturnSteps      bool
	Logger           logging.Logger
}

// Generator produces one chat reply per call. Every call builds its own
// template, tool, memory and executor; a Generator is safe for concurrent use.
type Generator struct {
	opts Options
}

// New creates a Generator.
func New(optFns ...func(o *Options)) (*Generator, error) {
	opts := Options{
		Instruction:   DefaultInstruction,
		ToolMode:      activity.ModeRender,
		Verbose:       true,
		MaxIterations: 15,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.NewModel == nil {
		return nil, errors.New("reply: model factory is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if _, err := activity.ParseMode(string(opts.ToolMode)); err != nil {
		return nil, err
	}

	return &Generator{opts: opts}, nil
}

// Generate runs the agent for instruction (or the default instruction when
// empty) and returns the executor's result unchanged. Failures are returned
// as *Error.
func (g *Generator) Generate(ctx context.Context, instruction string) (map[string]any, error) {
	if instruction == "" {
		instruction = g.opts.Instruction
	}

	runID := core.NewID()
	logger := logging.With(g.opts.Logger, "reply_id", runID)
	start := time.Now()

	result, err := g.generate(ctx, logger, instruction)
	if err != nil {
		rerr := classify(err)
		logger.Error("reply.failed",
			"kind", string(rerr.Kind),
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, rerr
	}

	logger.Info("reply.result",
		"result", result,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

func (g *Generator) generate(ctx context.Context, logger logging.Logger, instruction string) (map[string]any, error) {
	if g.opts.Credential == "" {
		return nil, ErrMissingCredential
	}

	llm, err := g.opts.NewModel(g.opts.Credential)
	if err != nil {
		return nil, fmt.Errorf("reply: create model: %w", err)
	}

	exec, err := g.newExecutor(llm, logger)
	if err != nil {
		return nil, err
	}

	return exec.Call(ctx, map[string]any{agent.InputKey: instruction})
}

func (g *Generator) newExecutor(llm model.Model, logger logging.Logger) (*agent.Executor, error) {
	parser, err := activity.NewParser()
	if err != nil {
		return nil, err
	}

	tmpl, err := activity.NewPrompt(parser)
	if err != nil {
		return nil, err
	}

	activityTool, err := activity.NewTool(tmpl, func(o *activity.ToolOptions) {
		o.Mode = g.opts.ToolMode
		o.Model = llm
		o.Parser = parser
	})
	if err != nil {
		return nil, err
	}

	exec, err := agent.NewExecutor(llm, []tool.Tool{activityTool}, func(o *agent.Options) {
		o.Name = "productivity_assistant"
		o.Verbose = g.opts.Verbose
		o.MaxIterations = g.opts.MaxIterations
		o.HandleToolErrors = g.opts.HandleToolErrors
		o.ReturnIntermediateSteps = g.opts.ReturnSteps
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	if g.opts.EnableMemory {
		exec.SetMemory(NewSeededMemory())
	}

	return exec, nil
}

// NewSeededMemory returns a fresh buffer memory holding the greeting.
func NewSeededMemory() *memory.BufferMemory {
	return memory.NewBufferMemory(func(o *memory.BufferOptions) {
		o.ChatHistory = memory.NewChatMessageHistory(core.NewTextContent(core.RoleAssistant, Greeting))
		o.MemoryKey = MemoryKey
		o.ReturnMessages = true
		o.InputKey = agent.InputKey
		o.OutputKey = agent.OutputKey
	})
}
