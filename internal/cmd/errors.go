package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/quantmind-br/pkgtx/internal/history"
	"github.com/quantmind-br/pkgtx/internal/lock"
	"github.com/quantmind-br/pkgtx/internal/transaction"
)

// ExitCodeForError maps a command error to the process exit code
func ExitCodeForError(err error) int {
	if err == nil {
		return core.ExitSuccess
	}

	var (
		resolution *transaction.ResolutionError
		partial    *transaction.PartialFailureError
		unexpected *transaction.UnexpectedError
		builder    *errbuilder.ErrBuilder
	)

	switch {
	case errors.As(err, &resolution):
		return core.ExitResolutionFailed
	case errors.As(err, &partial):
		return core.ExitTransactionFailed
	case errors.As(err, &unexpected):
		return core.ExitGeneral
	case errors.Is(err, context.Canceled):
		return core.ExitInterrupted
	case errors.Is(err, lock.ErrLocked):
		return core.ExitLocked
	case errors.Is(err, history.ErrDatabase):
		return core.ExitDatabase
	case errors.Is(err, history.ErrNotFound):
		return core.ExitInvalidArgs
	case errors.Is(err, exec.ErrNotFound):
		return core.ExitCommandNotFound
	case errors.As(err, &builder):
		switch errbuilder.CodeOf(builder) {
		case errbuilder.CodeInvalidArgument:
			return core.ExitInvalidArgs
		case errbuilder.CodeNotFound:
			return core.ExitCommandNotFound
		}
	}

	return core.ExitGeneral
}

// DescribeError returns the one-line summary of err and, when verbose is set,
// the extra detail lines: resolution diagnostics or the recovered panic stack
func DescribeError(err error, verbose bool) (summary string, details []string) {
	summary = errorMessage(err)
	if !verbose {
		return summary, nil
	}

	var resolution *transaction.ResolutionError
	if errors.As(err, &resolution) {
		details = append(details, resolution.Diagnostics...)
	}

	var partial *transaction.PartialFailureError
	if errors.As(err, &partial) {
		for _, name := range partial.Failed {
			details = append(details, "failed: "+name)
		}
	}

	var unexpected *transaction.UnexpectedError
	if errors.As(err, &unexpected) {
		details = append(details, strings.Split(strings.TrimRight(string(unexpected.Stack), "\n"), "\n")...)
	}

	return summary, details
}

func errorMessage(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) && strings.TrimSpace(builder.Msg) != "" {
		return builder.Msg
	}
	return err.Error()
}

// invalidArgument builds a usage error reported with exit code 2
func invalidArgument(format string, args ...any) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf(format, args...))
}
