package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/3leaps/skybrowse/pkg/output"
)

var errNotSeekable = errors.New("reader is not seekable")

// JobError is the failure of one job. Sibling jobs in the batch continue.
type JobError struct {
	Kind  Kind
	Name  string
	Phase string
	Err   error
}

func (e *JobError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Kind, e.Name, e.Phase, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Name, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

func jobError(job Job, phase string, err error) error {
	if err == nil {
		return nil
	}
	return &JobError{Kind: job.Kind(), Name: job.Name(), Phase: phase, Err: err}
}

// classifyErrCode maps a job failure to an output error code.
func classifyErrCode(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return output.ErrCodeInvalidInput
	case errors.Is(err, context.Canceled):
		return output.ErrCodeTimeout
	case isSizeMismatch(err):
		return output.ErrCodeTransferFailed
	}
	if code := output.CodeFor(err); code != output.ErrCodeInternal {
		return code
	}
	return output.ErrCodeTransferFailed
}

func isSizeMismatch(err error) bool {
	var sm *SizeMismatchError
	return errors.As(err, &sm)
}
