package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput is returned when the inputs lack the input key.
	ErrMissingInput = errors.New("agent: missing input")
	// ErrToolExecution wraps a failed tool call.
	ErrToolExecution = errors.New("agent: tool execution failed")
	// ErrMaxIterations is returned when the model keeps requesting tools.
	ErrMaxIterations = errors.New("agent: max iterations reached")
	// ErrMemory wraps memory load or save failures.
	ErrMemory = errors.New("agent: memory failure")
)

// PanicError reports a recovered tool panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string { return fmt.Sprintf("panic recovered: %v", p.Value) }
