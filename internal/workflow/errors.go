package workflow

import (
	"errors"
	"fmt"

	"github.com/fpang/photo-critic/internal/critique"
)

var (
	// ErrRequestInFlight rejects a request issued while another is outstanding.
	ErrRequestInFlight = errors.New("a request is already in progress")
	ErrNoImage         = errors.New("no image selected")
	ErrNoAnalysis      = errors.New("no analysis available")
	ErrNoEditedImage   = errors.New("no edited image available")
	// ErrNotPending rejects a result event when no request is outstanding.
	ErrNotPending = errors.New("no request is pending")
)

// PreconditionError reports an event that is not valid in the current state.
// It is returned synchronously and never changes state.
type PreconditionError struct {
	Action string
	Phase  Phase
	Err    error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot %s while %s: %v", e.Action, e.Phase, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

func precondition(action string, phase Phase, err error) *PreconditionError {
	return &PreconditionError{Action: action, Phase: phase, Err: err}
}

// classify maps a request failure to the kind and message stored in an error state.
func classify(err error) (ErrorKind, string) {
	if err == nil {
		return ErrorKindTransport, "request failed"
	}
	var verr *critique.ValidationError
	if errors.As(err, &verr) {
		return ErrorKindValidation, "The critique came back malformed: " + verr.Error()
	}
	return ErrorKindTransport, err.Error()
}
