package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCronExpression indicates an endDate repeat rule that cannot be parsed
	ErrInvalidCronExpression = errors.New("invalid cron expression")
	// ErrUnsupportedRepeatUnit indicates a completionDate offset with an unknown unit letter
	ErrUnsupportedRepeatUnit = errors.New("unsupported repeat unit")
	// ErrInvalidOffset indicates a completionDate offset code that is not letter+count
	ErrInvalidOffset = errors.New("invalid repeat offset")
	// ErrUnknownRepeatType indicates a repeatType outside completionDate/endDate
	ErrUnknownRepeatType = errors.New("unknown repeat type")
	// ErrMissingAnchor indicates a recurrence evaluated without its anchor date
	ErrMissingAnchor = errors.New("missing recurrence anchor")

	// ErrTaskNotFoundLocally indicates done/undone on an id that is not loaded
	ErrTaskNotFoundLocally = errors.New("task not found locally")
	// ErrInvalidTask indicates a draft or update that fails validation
	ErrInvalidTask = errors.New("invalid task")
	// ErrInvalidTag indicates a tag draft or update that fails validation
	ErrInvalidTag = errors.New("invalid tag")

	// ErrRemoteCallFailed is matched by every *RemoteError
	ErrRemoteCallFailed = errors.New("remote call failed")
	// ErrMissingConfiguration indicates the base URL or credential is absent
	ErrMissingConfiguration = errors.New("missing configuration")
)

// RemoteError describes a failed call to the remote task API
type RemoteError struct {
	Op         string
	Method     string
	Path       string
	StatusCode int // 0 when the request never produced a response
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s %s: status %d: %v", e.Op, e.Method, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Method, e.Path, e.Err)
}

// Unwrap exposes the transport or decode error
func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is reports RemoteError as ErrRemoteCallFailed
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteCallFailed
}

// IsRemote checks if an error came from the remote API
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemoteCallFailed)
}

// StatusCode returns the HTTP status of a remote failure, or 0
func StatusCode(err error) int {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode
	}
	return 0
}
