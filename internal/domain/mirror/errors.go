package mirror

import (
	"errors"
	"strings"
)

var (
	ErrNoUpstream          = errors.New("no upstream remote found")
	ErrInvalidUpstreamURL  = errors.New("invalid upstream url")
	ErrInvalidTransition   = errors.New("sync record already succeeded")
	ErrRecordNotFound      = errors.New("sync record not found")
	ErrScanInProgress      = errors.New("scan in progress")
	ErrNoSuchRemote        = errors.New("no such remote")
	ErrCommandTimeout      = errors.New("git command timed out")
	ErrWorkspaceUnreadable = errors.New("workspace root unreadable")
)

// StageError is a per-repository failure that ends in a Failed record.
type StageError struct {
	Cause   FailureCause
	Op      string
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Message
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func newStageError(cause FailureCause, op string, out CommandOutput, err error) *StageError {
	if errors.Is(err, ErrCommandTimeout) {
		cause = CauseTimeout
	}

	message := out.Stderr
	if strings.TrimSpace(message) == "" && err != nil {
		message = err.Error()
	}

	return &StageError{
		Cause:   cause,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
