package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/3leaps/skybrowse/pkg/provider"
	"github.com/3leaps/skybrowse/pkg/transfer"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (exit code %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode returns the exit code for an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}

// storeExitError picks the exit code for a store failure. An error that
// already carries an exit code is returned as is.
func storeExitError(message string, err error) error {
	var ee *ExitError
	var verr *transfer.ValidationError
	switch {
	case errors.As(err, &ee):
		return err
	case errors.As(err, &verr):
		return exitError(foundry.ExitInvalidArgument, message, err)
	case errors.Is(err, context.Canceled):
		return exitError(foundry.ExitSignalInt, message, err)
	case provider.IsNotFound(err), provider.IsContainerNotFound(err):
		return exitError(foundry.ExitFileNotFound, message, err)
	case provider.IsUnsupported(err):
		return exitError(foundry.ExitInvalidArgument, message, err)
	}
	return exitError(foundry.ExitExternalServiceUnavailable, message, err)
}
