package skifflib

import "errors"

var (
	// ErrWriteBusy rejects a write that arrived while another was pending.
	ErrWriteBusy = errors.New("skiff: write already pending")
	// ErrWritesSuspended rejects writes issued after a contention rejection
	// in suspending mode, before ResumeWriting.
	ErrWritesSuspended = errors.New("skiff: writes suspended")
	// ErrNotSuspended rejects ResumeWriting outside the suspended sub-state.
	ErrNotSuspended = errors.New("skiff: writing is not suspended")
	// ErrWriteAfterClose rejects writes issued once a close is in progress
	// or the write side has been shut down.
	ErrWriteAfterClose = errors.New("skiff: write after close")
	// ErrReadSideClosed rejects read-side commands once the remote has
	// finished sending.
	ErrReadSideClosed = errors.New("skiff: read side closed")
	// ErrClosePending rejects a second close while one is in progress.
	ErrClosePending = errors.New("skiff: close already in progress")

	ErrAlreadyRegistered = errors.New("skiff: connection already registered")
	ErrNotRegistered     = errors.New("skiff: connection not registered")
	ErrConnClosed        = errors.New("skiff: connection closed")
)
