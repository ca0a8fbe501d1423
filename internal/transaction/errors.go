package transaction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quantmind-br/pkgtx/internal/core"
)

// ErrAlreadyRun is returned when an orchestrator is asked to run a second time
var ErrAlreadyRun = errors.New("transaction orchestrator already used")

// ErrInvalidState is returned when an operation is called out of order
var ErrInvalidState = errors.New("invalid transaction state")

// ResolutionError reports a plan build status outside the known success codes
type ResolutionError struct {
	Status      core.PlanStatus
	Diagnostics []string
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("dependency resolution failed with status %d", e.Status)
	if len(e.Diagnostics) > 0 {
		msg += ": " + e.Diagnostics[0]
	}
	return msg
}

// PartialFailureError reports a committed transaction in which some members failed.
// The whole invocation counts as failed.
type PartialFailureError struct {
	Failed []string
}

func (e *PartialFailureError) Error() string {
	return "transaction failed for packages: " + strings.Join(e.Failed, ", ")
}

// UnexpectedError wraps a panic recovered while the transaction was running
type UnexpectedError struct {
	Value any
	Stack []byte
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("unexpected failure: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error
func (e *UnexpectedError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
