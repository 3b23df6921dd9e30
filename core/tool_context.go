package core

import (
	"context"

	"github.com/hupe1980/activityagent/logging"
)

// ToolContext is the scoped surface handed to a tool for a single function
// call. It carries the run's context (cancellation), correlation identifiers
// and a logger pre-bound to the run.
type ToolContext struct {
	ctx            context.Context
	runID          string
	agentName      string
	functionCallID string
	logger         logging.Logger
}

// NewToolContext constructs a tool context for one function call of a run.
// A nil ctx is replaced by context.Background and a nil logger by a
// logging.NoOpLogger.
func NewToolContext(ctx context.Context, runID, agentName, functionCallID string, logger logging.Logger) *ToolContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ToolContext{
		ctx:            ctx,
		runID:          runID,
		agentName:      agentName,
		functionCallID: functionCallID,
		logger:         logger,
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// RunID returns the executor run the call belongs to.
func (tc *ToolContext) RunID() string { return tc.runID }

// AgentName returns the name of the agent that requested the call.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// LogDebug logs at debug level with the call's correlation fields attached.
func (tc *ToolContext) LogDebug(msg string, args ...any) {
	tc.logger.Debug(msg, tc.fields(args)...)
}

// LogInfo logs at info level with the call's correlation fields attached.
func (tc *ToolContext) LogInfo(msg string, args ...any) {
	tc.logger.Info(msg, tc.fields(args)...)
}

func (tc *ToolContext) fields(args []any) []any {
	return append([]any{"run_id", tc.runID, "fc_id", tc.functionCallID}, args...)
}
