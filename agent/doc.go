// Package agent implements the conversational tool-calling executor that
// drives a model.Model with a set of tool.Tool implementations.
//
// Execution model:
//   - Call loads conversation history from the attached memory (if any) and
//     appends the caller's input as a user message
//   - Each iteration asks the model for a turn; requested tool calls are run
//     in order and their observations are fed back as tool messages
//   - The loop ends when the model answers without tool calls, or fails with
//     ErrMaxIterations once the iteration budget is spent
//
// Model failures surface as *model.ProviderError, tool failures as
// ErrToolExecution (unless HandleToolErrors feeds them back to the model).
// Nothing is swallowed: every error is returned to the caller.
package agent
