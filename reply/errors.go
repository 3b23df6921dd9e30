package reply

import (
	"errors"
	"fmt"

	"github.com/hupe1980/activityagent/agent"
	"github.com/hupe1980/activityagent/model"
)

// Kind classifies a failed generation.
type Kind string

// Failure kinds. A provider 401/403 counts as an invalid credential.
const (
	KindInvalidCredential Kind = "invalid_credential"
	KindModelProvider     Kind = "model_provider_failure"
	KindToolExecution     Kind = "tool_execution_failure"
	KindExecutor          Kind = "executor_failure"
)

// Error is returned by Generate.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

func classify(err error) *Error {
	var pe *model.ProviderError
	switch {
	case errors.Is(err, ErrMissingCredential):
		return &Error{Kind: KindInvalidCredential, Err: err}
	case errors.As(err, &pe):
		if pe.IsAuth() {
			return &Error{Kind: KindInvalidCredential, Err: err}
		}
		return &Error{Kind: KindModelProvider, Err: err}
	case errors.Is(err, agent.ErrToolExecution):
		return &Error{Kind: KindToolExecution, Err: err}
	default:
		return &Error{Kind: KindExecutor, Err: err}
	}
}
