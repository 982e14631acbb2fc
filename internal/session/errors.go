package session

import "errors"

var (
	// ErrExportInProgress rejects an export while another one is pending.
	ErrExportInProgress = errors.New("session: export already in progress")

	// ErrNotEditing rejects an operation outside the editing states.
	ErrNotEditing = errors.New("session: not editing")

	// ErrClosed is returned once the session has been torn down.
	ErrClosed = errors.New("session: closed")
)

// PreconditionError reports that the session cannot start: the upload step
// did not hand off, or no staged source image exists. It is recovered by
// redirecting to the upload step, not shown to the user.
type PreconditionError struct {
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return "session: precondition failed: " + e.Reason + ": " + e.Err.Error()
	}
	return "session: precondition failed: " + e.Reason
}

func (e *PreconditionError) Unwrap() error { return e.Err }
