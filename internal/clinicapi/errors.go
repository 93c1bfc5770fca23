package clinicapi

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a target entity that no longer exists server-side.
var ErrNotFound = errors.New("clinicapi: not found")

// RemoteError is a network or server failure on a request. Mutations that
// had an optimistic effect roll back when they see one; the operator may
// retry the original gesture.
type RemoteError struct {
	Status int
	Body   string
	// Err is the underlying transport error, when the request never got a
	// response. Status is 0 in that case.
	Err error
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("clinicapi: request failed: %s", e.Body)
	}
	return fmt.Sprintf("clinicapi: server returned %d: %s", e.Status, e.Body)
}

// Unwrap exposes the transport cause, so errors.Is still sees cancellation
// and deadline sentinels through the classification wrapper.
func (e *RemoteError) Unwrap() error { return e.Err }

// IsNotFound reports whether err classifies as a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
